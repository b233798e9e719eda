package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/calendar"
)

var errCalendarDisabled = apperror.New(http.StatusServiceUnavailable, "calendar_disabled", "Google Calendar not configured")

// GET /api/admin/calendar/connect
// Returns the consent URL; the admin's browser follows it and Google
// redirects back to /oauth2callback.
func (a *App) CalendarConnectHandler(c *gin.Context) {
	if a.Calendar == nil {
		a.respondError(c, errCalendarDisabled)
		return
	}
	state, err := a.signState()
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"authUrl": a.Calendar.AuthCodeURL(state)})
}

// GET /oauth2callback?code=...&state=...
func (a *App) CalendarCallbackHandler(c *gin.Context) {
	if a.Calendar == nil {
		a.respondError(c, errCalendarDisabled)
		return
	}
	if !a.verifyState(c.Query("state")) {
		a.respondError(c, apperror.Unauthorized())
		return
	}
	code := c.Query("code")
	if code == "" {
		a.respondError(c, apperror.Validation("authorization code required"))
		return
	}

	if err := a.Calendar.Exchange(c.Request.Context(), code); err != nil {
		a.Logger.Warn("calendar token exchange failed", "err", err)
		a.respondError(c, apperror.Validation("failed to exchange code for token"))
		return
	}
	a.Logger.Info("calendar connected")
	c.JSON(http.StatusOK, gin.H{"message": "Authorization successful", "connected": true})
}

// GET /api/admin/calendar/status
func (a *App) CalendarStatusHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusOK, calendarStatusResp{})
		return
	}
	connected, expiry, err := a.Calendar.Status(c.Request.Context())
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	resp := calendarStatusResp{Configured: true, Connected: connected}
	if connected && !expiry.IsZero() {
		resp.Expiry = &expiry
	}
	c.JSON(http.StatusOK, resp)
}

// DELETE /api/admin/calendar
func (a *App) CalendarDisconnectHandler(c *gin.Context) {
	if a.Calendar == nil {
		a.respondError(c, errCalendarDisabled)
		return
	}
	if err := a.Calendar.Disconnect(c.Request.Context()); err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	a.Logger.Info("calendar disconnected")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/admin/calendar/events?time_min=RFC3339&time_max=RFC3339
// Defaults to the next seven days.
func (a *App) CalendarEventsHandler(c *gin.Context) {
	if a.Calendar == nil {
		a.respondError(c, errCalendarDisabled)
		return
	}
	from := time.Now()
	to := from.AddDate(0, 0, 7)
	if raw := c.Query("time_min"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.respondError(c, apperror.Validation("invalid time_min"))
			return
		}
		from = t
	}
	if raw := c.Query("time_max"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.respondError(c, apperror.Validation("invalid time_max"))
			return
		}
		to = t
	}
	if !from.Before(to) {
		a.respondError(c, apperror.Validation("time_min must be before time_max"))
		return
	}

	events, err := a.Calendar.ListEvents(c.Request.Context(), from, to)
	if errors.Is(err, calendar.ErrNotConnected) {
		a.respondError(c, apperror.Conflict("calendar not connected"))
		return
	}
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	c.JSON(http.StatusOK, calendarEventsResp{Events: events, Count: len(events)})
}
