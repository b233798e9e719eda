package app

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/booking"
	"interview-scheduler/internal/model"
)

// GET /api/admin/slots?from=YYYY-MM-DD&days=N
func (a *App) AdminSlotsHandler(c *gin.Context) {
	q := booking.Query{View: booking.ViewAdmin, Round: c.Query("round"), From: c.Query("from")}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			a.respondError(c, apperror.Validation("days must be a positive integer"))
			return
		}
		q.Days = days
	}
	avail, err := a.Bookings.Availability(c.Request.Context(), q)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

// GET /api/admin/bookings?date=YYYY-MM-DD
func (a *App) ListBookingsHandler(c *gin.Context) {
	list, err := a.Bookings.ListBookings(c.Request.Context(), c.Query("date"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if list == nil {
		list = []booking.BookingView{}
	}
	c.JSON(http.StatusOK, bookingsResp{Bookings: list, Count: len(list)})
}

// POST /api/admin/bookings
func (a *App) ManualBookingHandler(c *gin.Context) {
	a.book(c, true)
}

// DELETE /api/admin/bookings/:date/:slotId
func (a *App) CancelBookingHandler(c *gin.Context) {
	b, err := a.Bookings.Cancel(c.Request.Context(), c.Param("date"), c.Param("slotId"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "booking": b})
}

// POST /api/admin/bookings/:date/:slotId/reschedule
func (a *App) RescheduleHandler(c *gin.Context) {
	var req rescheduleReq
	if !a.bindJSON(c, &req) {
		return
	}
	b, err := a.Bookings.Reschedule(c.Request.Context(), c.Param("date"), c.Param("slotId"), req.NewDate, req.NewSlotID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "booking": b})
}

// PATCH /api/admin/bookings/:date/:slotId/final-round
func (a *App) FinalRoundEligibilityHandler(c *gin.Context) {
	var req finalRoundReq
	if !a.bindJSON(c, &req) {
		return
	}
	if req.Eligible == nil {
		a.respondError(c, apperror.Validation("eligible is required"))
		return
	}
	b, err := a.Bookings.SetFinalRoundEligible(c.Request.Context(), c.Param("date"), c.Param("slotId"), *req.Eligible)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "booking": b})
}

// POST /api/admin/blocks/slots/:date/:slotId
func (a *App) BlockSlotHandler(c *gin.Context) {
	a.blockResult(c, a.Bookings.BlockSlot(c.Request.Context(), c.Param("date"), c.Param("slotId")))
}

// DELETE /api/admin/blocks/slots/:date/:slotId
func (a *App) UnblockSlotHandler(c *gin.Context) {
	a.blockResult(c, a.Bookings.UnblockSlot(c.Request.Context(), c.Param("date"), c.Param("slotId")))
}

// POST /api/admin/blocks/days/:date
func (a *App) BlockDayHandler(c *gin.Context) {
	a.blockResult(c, a.Bookings.BlockDay(c.Request.Context(), c.Param("date")))
}

// DELETE /api/admin/blocks/days/:date
func (a *App) UnblockDayHandler(c *gin.Context) {
	a.blockResult(c, a.Bookings.UnblockDay(c.Request.Context(), c.Param("date")))
}

func (a *App) blockResult(c *gin.Context, err error) {
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PUT /api/admin/config
func (a *App) UpdateConfigHandler(c *gin.Context) {
	var cfg model.SlotConfig
	if !a.bindJSON(c, &cfg) {
		return
	}
	saved, err := a.Bookings.UpdateConfig(c.Request.Context(), cfg)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configResp{Config: saved, Timezone: a.Bookings.Location().String()})
}
