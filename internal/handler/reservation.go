package handler

// This file defines the HTTP handlers for meeting-room reservations.  The
// handlers only translate between HTTP and the reservation service: they
// parse path, query and body values, read the caller placed in the
// context by the auth middleware and map service errors to statuses.

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/middleware"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service"
)

// ReservationHandler exposes the reservation service over HTTP.
type ReservationHandler struct {
	Svc *service.ReservationService // reservation use cases
	Log *slog.Logger                // logs unexpected failures
}

// NewReservationHandler constructs a ReservationHandler.  The service
// must be non-nil.
func NewReservationHandler(svc *service.ReservationService, log *slog.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReservationHandler{Svc: svc, Log: log}
}

type createReservationRequest struct {
	RoomID    uint64  `json:"room_id"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Purpose   *string `json:"purpose"`
}

type updateReservationRequest struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Purpose   *string `json:"purpose"`
}

// Create handles POST /v1/reservations.  The body carries room_id, date
// (YYYY-MM-DD), start_time and end_time (HH:MM[:SS]) and an optional
// purpose.  It returns 201 with the confirmed reservation.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.RoomID == 0 {
		return badRequest(c, "room_id is required")
	}
	date, err := model.ParseDate(body.Date)
	if err != nil {
		return badRequest(c, err.Error())
	}
	start, err := model.ParseTimeOfDay(body.StartTime)
	if err != nil {
		return badRequest(c, err.Error())
	}
	end, err := model.ParseTimeOfDay(body.EndTime)
	if err != nil {
		return badRequest(c, err.Error())
	}

	r, err := h.Svc.Create(c.Request().Context(), actor, service.CreateInput{
		RoomID:  body.RoomID,
		Date:    date,
		Start:   start,
		End:     end,
		Purpose: body.Purpose,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// List handles GET /v1/reservations.  Admins and facility managers see
// every reservation and may filter by room_id, date and status; everyone
// else sees their own reservations, optionally filtered by status.
func (h *ReservationHandler) List(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var status model.Status
	if raw := c.QueryParam("status"); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		status = st
	}

	ctx := c.Request().Context()
	var (
		items []model.Reservation
		err   error
	)
	if actor.Role.Elevated() {
		f := model.ReservationFilter{Status: status}
		if raw := c.QueryParam("room_id"); raw != "" {
			id, perr := strconv.ParseUint(raw, 10, 64)
			if perr != nil || id == 0 {
				return badRequest(c, "invalid room_id")
			}
			f.RoomID = id
		}
		if raw := c.QueryParam("date"); raw != "" {
			d, perr := model.ParseDate(raw)
			if perr != nil {
				return badRequest(c, perr.Error())
			}
			f.Date = d
		}
		items, err = h.Svc.ListAll(ctx, f)
	} else {
		items, err = h.Svc.ListForOwner(ctx, actor.UserID, status)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return listResponse(c, items)
}

// Get handles GET /v1/reservations/:id.  Owners, elevated roles and
// auditors may read a reservation.
func (h *ReservationHandler) Get(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid reservation id")
	}
	r, err := h.Svc.GetForActor(c.Request().Context(), id, actor)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Update handles PATCH /v1/reservations/:id.  Any of start_time,
// end_time and purpose may be supplied; omitted fields keep their
// current value.
func (h *ReservationHandler) Update(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid reservation id")
	}
	var body updateReservationRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	in := service.UpdateInput{Purpose: body.Purpose}
	if body.StartTime != nil {
		t, err := model.ParseTimeOfDay(*body.StartTime)
		if err != nil {
			return badRequest(c, err.Error())
		}
		in.Start = &t
	}
	if body.EndTime != nil {
		t, err := model.ParseTimeOfDay(*body.EndTime)
		if err != nil {
			return badRequest(c, err.Error())
		}
		in.End = &t
	}

	r, err := h.Svc.Update(c.Request().Context(), id, actor, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Cancel handles DELETE /v1/reservations/:id.  The reservation is kept
// with status cancelled and returned in the response.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid reservation id")
	}
	r, err := h.Svc.Cancel(c.Request().Context(), id, actor)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// History handles GET /v1/reservations/:id/history and returns the audit
// trail newest first.
func (h *ReservationHandler) History(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid reservation id")
	}
	entries, err := h.Svc.GetHistory(c.Request().Context(), id, actor)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries, "count": len(entries)})
}

// ListForUser handles GET /v1/users/:id/reservations.
func (h *ReservationHandler) ListForUser(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	items, err := h.Svc.ListForUser(c.Request().Context(), userID, actor)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return listResponse(c, items)
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

// listResponse always returns items and count; an empty result is an
// empty array.
func listResponse(c echo.Context, items []model.Reservation) error {
	if items == nil {
		items = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}
