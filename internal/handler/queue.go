package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sevasetu/token-queue/internal/event"
	"github.com/sevasetu/token-queue/internal/model"
	"github.com/sevasetu/token-queue/internal/queue"
	event_publisher "github.com/sevasetu/token-queue/internal/service"
)

// QueueHandler exposes the queue engine over HTTP: the live view and
// stats for polling clients, and the officer operations that drive the
// token state machine.  Officer authentication and role checks are done
// by middleware before any method here runs.  Every successful mutation
// publishes a lifecycle event after the store has committed; publish
// failures are ignored because the store is the source of truth.
type QueueHandler struct {
	Controller *queue.Controller
	Views      *queue.ViewBuilder
	Stats      *queue.StatsAggregator
}

// NewQueueHandler constructs a QueueHandler.  All dependencies must be
// non-nil.
func NewQueueHandler(ctrl *queue.Controller, views *queue.ViewBuilder, stats *queue.StatsAggregator) *QueueHandler {
	if ctrl == nil || views == nil || stats == nil {
		panic("nil dependency passed to NewQueueHandler")
	}
	return &QueueHandler{Controller: ctrl, Views: views, Stats: stats}
}

// GetLiveQueue handles GET /v1/queue.  Required query parameters are
// service_id and date; department_id is optional and widens the view to
// every department offering the service when omitted.  Returns the
// serving token (null when the counter is idle) and the ordered waiting
// list.
func (h *QueueHandler) GetLiveQueue(c echo.Context) error {
	key, err := queueKeyFromQuery(c, false)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	view, err := h.Views.Build(c.Request().Context(), key)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, view)
}

// ServeNext handles POST /v1/queue/serve-next.  It calls the
// highest-priority waiting token for the queue key.  409 is returned
// while a token is already being served, 404 when the queue is empty.
func (h *QueueHandler) ServeNext(c echo.Context) error {
	key, err := queueKeyFromQuery(c, true)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	tok, err := h.Controller.ServeNext(c.Request().Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrAlreadyServing):
			return c.JSON(http.StatusConflict, echo.Map{"error": "a token is already being served"})
		case errors.Is(err, queue.ErrEmptyQueue):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no waiting tokens"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.publish(c, event.ActionServing, tok, 0)
	return c.JSON(http.StatusOK, tok)
}

// ServeSpecific handles POST /v1/tokens/:id/serve.  An officer calls a
// particular waiting token out of priority order.  422 is returned when
// the token is not waiting, 409 while another token is being served.
func (h *QueueHandler) ServeSpecific(c echo.Context) error {
	id, err := tokenIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token id"})
	}
	tok, err := h.Controller.ServeSpecific(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrTokenNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "token not found"})
		case errors.Is(err, queue.ErrAlreadyServing):
			return c.JSON(http.StatusConflict, echo.Map{"error": "a token is already being served"})
		case errors.Is(err, queue.ErrTokenNotWaiting):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "token is not waiting"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.publish(c, event.ActionServing, tok, 0)
	return c.JSON(http.StatusOK, tok)
}

// Complete handles POST /v1/tokens/:id/complete.  The 409 on a
// not-serving token is a reconciliation signal, not a hard failure: the
// body tells the client to refresh its view.
func (h *QueueHandler) Complete(c echo.Context) error {
	return h.finish(c, true)
}

// Skip handles POST /v1/tokens/:id/skip.  After a skip the counter is
// idle; the officer's next serve-next resumes the queue.
func (h *QueueHandler) Skip(c echo.Context) error {
	return h.finish(c, false)
}

func (h *QueueHandler) finish(c echo.Context, complete bool) error {
	id, err := tokenIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token id"})
	}
	var tok *model.Token
	action := event.ActionSkipped
	if complete {
		action = event.ActionCompleted
		tok, err = h.Controller.Complete(c.Request().Context(), id)
	} else {
		tok, err = h.Controller.Skip(c.Request().Context(), id)
	}
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrTokenNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "token not found"})
		case errors.Is(err, queue.ErrNotServing):
			return c.JSON(http.StatusConflict, echo.Map{"error": "token is not being served", "refresh": true})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.publish(c, action, tok, 0)
	return c.JSON(http.StatusOK, tok)
}

// Recall handles POST /v1/queue/recall.  Every skipped token for the
// key returns to the waiting pool at its original priority position.
// The response carries the number actually recalled, which can be lower
// than the number of skipped tokens when concurrent requests race.
func (h *QueueHandler) Recall(c echo.Context) error {
	key, err := queueKeyFromQuery(c, true)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	count, err := h.Controller.RecallSkipped(c.Request().Context(), key)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if count > 0 {
		h.publish(c, event.ActionRecalled, &model.Token{
			DepartmentRef: key.DepartmentRef,
			ServiceRef:    key.ServiceRef,
			Date:          key.Date,
		}, count)
	}
	return c.JSON(http.StatusOK, echo.Map{"recalled_count": count})
}

// GetStats handles GET /v1/queue/stats.  All three filters are
// optional: no parameters roll up the whole system, department_id alone
// rolls up a department, and all three narrow to one day's queue.
func (h *QueueHandler) GetStats(c echo.Context) error {
	var f queue.StatsFilter
	var err error
	if f.DepartmentRef, err = optionalUintQuery(c, "department_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid department_id"})
	}
	if f.ServiceRef, err = optionalUintQuery(c, "service_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service_id"})
	}
	f.Date = c.QueryParam("date")
	stats, err := h.Stats.Stats(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, stats)
}

// publish sends a lifecycle event, ignoring broker failures.
func (h *QueueHandler) publish(c echo.Context, action string, tok *model.Token, recalled int) {
	ev := event.TokenEvent{
		Action:        action,
		DepartmentRef: tok.DepartmentRef,
		ServiceRef:    tok.ServiceRef,
		Date:          tok.Date,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if action == event.ActionRecalled {
		ev.RecalledCount = recalled
	} else {
		ev.TokenID = tok.ID
		ev.TokenNumber = tok.TokenNumber
		ev.BookingRef = tok.BookingRef
		ev.SlotTime = tok.SlotTime
	}
	_ = event_publisher.PublishTokenEvent(c.Request().Context(), ev)
}

// queueKeyFromQuery extracts the queue key from query parameters.
// service_id and date are always required; department_id only when
// requireDepartment is set (all mutating operations).
func queueKeyFromQuery(c echo.Context, requireDepartment bool) (queue.QueueKey, error) {
	var key queue.QueueKey
	var err error
	if key.ServiceRef, err = requiredUintQuery(c, "service_id"); err != nil {
		return key, err
	}
	key.Date = c.QueryParam("date")
	if key.Date == "" {
		return key, errors.New("date is required")
	}
	if requireDepartment {
		key.DepartmentRef, err = requiredUintQuery(c, "department_id")
	} else {
		key.DepartmentRef, err = optionalUintQuery(c, "department_id")
	}
	return key, err
}

func requiredUintQuery(c echo.Context, name string) (uint64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, errors.New(name + " is required")
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func optionalUintQuery(c echo.Context, name string) (uint64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func tokenIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid token id")
	}
	return id, nil
}
