package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// Availability handles GET /v1/rooms/:id/availability.  The query must
// carry date, start_time and end_time.  The answer is advisory: a later
// booking attempt can still conflict.
func (h *ReservationHandler) Availability(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	date, start, end := c.QueryParam("date"), c.QueryParam("start_time"), c.QueryParam("end_time")
	if date == "" || start == "" || end == "" {
		return badRequest(c, "date, start_time and end_time are required")
	}
	available, err := h.Svc.CheckAvailability(c.Request().Context(), roomID, date, start, end)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":    roomID,
		"date":       date,
		"start_time": start,
		"end_time":   end,
		"available":  available,
	})
}

// Schedule handles GET /v1/rooms/:id/schedule?date=YYYY-MM-DD and lists
// the room's confirmed and completed reservations for the day, earliest
// first.
func (h *ReservationHandler) Schedule(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	date, err := model.ParseDate(c.QueryParam("date"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	items, err := h.Svc.GetSchedule(c.Request().Context(), roomID, date)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id": roomID,
		"date":    date,
		"items":   items,
		"count":   len(items),
	})
}
