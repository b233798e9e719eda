package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/booking"
)

// GET /api/config
func (a *App) GetConfigHandler(c *gin.Context) {
	cfg, err := a.Bookings.EffectiveConfig(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configResp{Config: cfg, Timezone: a.Bookings.Location().String()})
}

// GET /api/slots?round=first|final
func (a *App) GetSlotsHandler(c *gin.Context) {
	avail, err := a.Bookings.Availability(c.Request.Context(), booking.Query{
		View:  booking.ViewPublic,
		Round: c.Query("round"),
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

// POST /api/bookings
func (a *App) CreateBookingHandler(c *gin.Context) {
	a.book(c, false)
}

func (a *App) book(c *gin.Context, asAdmin bool) {
	var req booking.BookRequest
	if !a.bindJSON(c, &req) {
		return
	}
	res, err := a.Bookings.Book(c.Request.Context(), req, asAdmin)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookingResp{Booking: res.Booking, WhatsappMessage: res.WhatsappMessage})
}

// POST /api/final-round/verify
func (a *App) VerifyFinalRoundHandler(c *gin.Context) {
	var req verifyReq
	if !a.bindJSON(c, &req) {
		return
	}
	prior, err := a.Bookings.VerifyFinalRound(c.Request.Context(), req.Contact)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verifyResp{
		Eligible:          true,
		Name:              prior.Name,
		Email:             prior.Email,
		Whatsapp:          prior.Whatsapp,
		JoiningPreference: prior.JoiningPreference,
	})
}
