package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sevasetu/token-queue/internal/model"
	"github.com/sevasetu/token-queue/internal/queue"
)

// IntakeHandler receives tokens from the external booking subsystem.
// The engine never originates a token itself: when a citizen books a
// slot, the booking service assigns the token number and priority and
// hands the token over here, already in WAITING state.  The route is
// protected by a service JWT with the BOOKING role.
type IntakeHandler struct {
	Store queue.TokenStore
}

// NewIntakeHandler constructs an IntakeHandler over the given store.
func NewIntakeHandler(store queue.TokenStore) *IntakeHandler {
	if store == nil {
		panic("nil store passed to NewIntakeHandler")
	}
	return &IntakeHandler{Store: store}
}

// intakeRequest mirrors the fields the booking subsystem owns.
type intakeRequest struct {
	BookingRef    uint64 `json:"booking_ref"`
	DepartmentRef uint64 `json:"department_ref"`
	ServiceRef    uint64 `json:"service_ref"`
	Date          string `json:"date"`
	SlotTime      string `json:"slot_time"`
	TokenNumber   int    `json:"token_number"`
	PriorityType  string `json:"priority_type"`
	PriorityRank  int    `json:"priority_rank"`
}

// CreateToken handles POST /v1/tokens.  Tokens always enter WAITING; a
// duplicate (department, date, slot, number) key returns 409 so the
// booking subsystem can renumber and retry.
func (h *IntakeHandler) CreateToken(c echo.Context) error {
	var body intakeRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PriorityType == "" {
		body.PriorityType = string(model.PriorityNone)
	}
	tok := model.Token{
		BookingRef:    body.BookingRef,
		DepartmentRef: body.DepartmentRef,
		ServiceRef:    body.ServiceRef,
		Date:          body.Date,
		SlotTime:      body.SlotTime,
		TokenNumber:   body.TokenNumber,
		PriorityType:  model.PriorityType(body.PriorityType),
		PriorityRank:  body.PriorityRank,
		Status:        model.StatusWaiting,
	}
	if msg := validateIntake(&tok); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if err := h.Store.Create(c.Request().Context(), &tok); err != nil {
		if errors.Is(err, queue.ErrDuplicateToken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "token number already issued for this slot"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, tok)
}

func validateIntake(t *model.Token) string {
	if t.BookingRef == 0 || t.DepartmentRef == 0 || t.ServiceRef == 0 {
		return "booking_ref, department_ref and service_ref are required"
	}
	if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	if t.SlotTime == "" {
		return "slot_time is required"
	}
	if t.TokenNumber <= 0 {
		return "token_number must be positive"
	}
	if !t.PriorityType.Valid() {
		return "unknown priority_type"
	}
	if t.PriorityRank < 0 {
		return "priority_rank must not be negative"
	}
	return ""
}
