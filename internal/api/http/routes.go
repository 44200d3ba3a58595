package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-sync/internal/logger"
	"github.com/i474232898/forecast-sync/internal/prefs"
	"github.com/i474232898/forecast-sync/internal/weather"
)

var validate = validator.New()

// Handler serves the forecast API.
type Handler struct {
	service *weather.Service
	prefs   prefs.Store
	log     logger.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, prefsStore prefs.Store, log logger.Logger) {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handler{
		service: service,
		prefs:   prefsStore,
		log:     log.WithField("component", "http"),
	}

	v1 := app.Group("/api/v1")

	v1.Get("/forecast", h.forecast)
	v1.Get("/forecast/today", h.today)
	v1.Get("/forecast/stream", h.stream)
	v1.Get("/forecast/:id", h.record)

	v1.Get("/sync/status", h.syncStatus)
	v1.Post("/sync", h.sync)

	v1.Get("/preferences", h.getPreferences)
	v1.Put("/preferences", h.putPreferences)
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func (h *Handler) forecast(c *fiber.Ctx) error {
	from, err := h.fromQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	days, err := h.service.Forecast(c.UserContext(), from)
	if err != nil {
		h.log.Errorf("forecast query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load forecast")
	}

	return c.JSON(fiber.Map{
		"from": from,
		"days": days,
	})
}

func (h *Handler) today(c *fiber.Ctx) error {
	rec, err := h.service.Day(c.UserContext(), h.service.Today())
	if err != nil {
		return h.lookupError(err, "no forecast stored for today")
	}
	return c.JSON(rec)
}

func (h *Handler) record(c *fiber.Ctx) error {
	var q idParam
	if err := q.bind(c); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	rec, err := h.service.Record(c.UserContext(), q.ID)
	if err != nil {
		return h.lookupError(err, "forecast record not found")
	}
	return c.JSON(rec)
}

func (h *Handler) syncStatus(c *fiber.Ctx) error {
	st, err := h.service.Status(c.UserContext())
	if err != nil {
		h.log.Errorf("sync status failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load sync status")
	}
	return c.JSON(st)
}

func (h *Handler) sync(c *fiber.Ctx) error {
	var q syncQuery
	if err := q.bind(c); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	outcome, err := h.service.RequestSync(c.UserContext(), q.Force)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(outcomeStatus(outcome)).JSON(outcome)
}

func outcomeStatus(o weather.SyncOutcome) int {
	if o.Status != weather.SyncFailed {
		return fiber.StatusOK
	}
	switch o.Reason {
	case weather.ReasonThrottled:
		return fiber.StatusTooManyRequests
	case weather.ReasonNetwork, weather.ReasonParse:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) getPreferences(c *fiber.Ctx) error {
	snap, err := h.prefs.Settings(c.UserContext())
	if err != nil {
		h.log.Errorf("reading preferences failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load preferences")
	}
	return c.JSON(snap)
}

func (h *Handler) putPreferences(c *fiber.Ctx) error {
	var req prefs.Settings
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.prefs.Apply(c.UserContext(), req); err != nil {
		h.log.Errorf("saving preferences failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save preferences")
	}
	return h.getPreferences(c)
}

func (h *Handler) lookupError(err error, notFound string) error {
	if errors.Is(err, weather.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, notFound)
	}
	h.log.Errorf("forecast lookup failed: %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "failed to load forecast")
}

// fromQuery reads ?from= as a day key. It defaults to today.
func (h *Handler) fromQuery(c *fiber.Ctx) (int64, error) {
	raw := c.Query("from")
	if raw == "" {
		return h.service.Today(), nil
	}
	ts, err := parseTime(raw)
	if err != nil {
		return 0, err
	}
	return h.service.DateOf(ts), nil
}

// idParam holds the :id path parameter.
type idParam struct {
	ID int64 `validate:"gt=0"`
}

func (p *idParam) bind(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return errors.New("id must be an integer")
	}
	p.ID = id
	return validate.Struct(p)
}

// syncQuery holds query parameters for the sync endpoint.
type syncQuery struct {
	Force bool
}

func (q *syncQuery) bind(c *fiber.Ctx) error {
	raw := c.Query("force")
	if raw == "" {
		return nil
	}
	force, err := strconv.ParseBool(raw)
	if err != nil {
		return errors.New("force must be true or false")
	}
	q.Force = force
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
