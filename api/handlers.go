/*
handlers.go - HTTP API handlers for leave

PURPOSE:
  Exposes the leave lifecycle over REST. Handlers parse and validate the
  HTTP request, resolve the actor placed in the context by the auth
  middleware, delegate to timeoff.Service, and serialize the result.

ENDPOINTS:
  GET  /healthz                              Liveness
  GET  /api/leave/types                      Leave type catalog
  POST /api/leave/requests                   Submit (201)
  GET  /api/leave/requests                   List (?status=&employee_id=&year=)
  GET  /api/leave/requests/{id}              Get
  PUT  /api/leave/requests/{id}              Edit
  POST /api/leave/requests/{id}/approve      Approve
  POST /api/leave/requests/{id}/reject       Reject ({reason})
  POST /api/leave/requests/{id}/cancel       Cancel
  POST /api/leave/requests/{id}/reset        Reset ({reason})
  GET  /api/leave/requests/{id}/history      Balance movements
  GET  /api/employees/{id}/balances          Balance summaries (?year=)
  GET  /api/scenarios                        Demo scenarios (when enabled)
  POST /api/scenarios/load                   Reset and load a scenario (admin)

ERROR HANDLING:
  See errors.go. Domain errors map to 400/403/404; anything else is a
  500 with a generic message and the cause only in the log.

SEE ALSO:
  - dto.go: Request/response data structures
  - payroll_handlers.go: Payroll endpoints
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/payroll"
	"github.com/warp/hr-engine/timeoff"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Leave   *timeoff.Service
	Payroll *payroll.Generator
	DB      Pinger
	Logger  *zap.Logger

	// Scenarios enables the demo scenario endpoints when set.
	Scenarios ScenarioStore

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(leave *timeoff.Service, gen *payroll.Generator, db Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Leave: leave, Payroll: gen, DB: db, Logger: logger}
}

// Health reports liveness and database reachability.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

// ListLeaveTypes returns the leave type catalog.
// GET /api/leave/types
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Leave.LeaveTypes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = toLeaveTypeDTO(lt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// SubmitLeaveRequest creates a pending request for the caller.
// POST /api/leave/requests
func (h *Handler) SubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)

	var body LeaveRequestBody
	if !decodeBody(w, r, &body, true) {
		return
	}
	start, end, err := parseRange(body.StartDate, body.EndDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	req, err := h.Leave.Submit(r.Context(), actor, timeoff.SubmitInput{
		LeaveTypeID:     timeoff.LeaveTypeID(body.LeaveTypeID),
		StartDate:       start,
		EndDate:         end,
		DayType:         timeoff.DayType(body.DayType),
		HalfDayPosition: timeoff.HalfDayPosition(body.HalfDayPosition),
		Reason:          body.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(*req))
}

// ListLeaveRequests lists requests visible to the caller.
// GET /api/leave/requests?status=&employee_id=&year=
func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	q := r.URL.Query()

	filter := timeoff.RequestFilter{
		EmployeeID: generic.EmployeeID(q.Get("employee_id")),
		Status:     timeoff.RequestStatus(q.Get("status")),
	}
	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			h.fail(w, r, generic.FieldError("year", "must be a number"))
			return
		}
		filter.Year = year
	}

	reqs, err := h.Leave.List(r.Context(), actor, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(reqs))
}

// GetLeaveRequest returns one request.
// GET /api/leave/requests/{id}
func (h *Handler) GetLeaveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Leave.Get(r.Context(), mustActor(r), requestID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// EditLeaveRequest changes the caller's own pending request.
// PUT /api/leave/requests/{id}
func (h *Handler) EditLeaveRequest(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)

	var body LeaveRequestBody
	if !decodeBody(w, r, &body, true) {
		return
	}
	start, end, err := parseRange(body.StartDate, body.EndDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	req, err := h.Leave.Edit(r.Context(), actor, requestID(r), timeoff.EditInput{
		LeaveTypeID:     timeoff.LeaveTypeID(body.LeaveTypeID),
		StartDate:       start,
		EndDate:         end,
		DayType:         timeoff.DayType(body.DayType),
		HalfDayPosition: timeoff.HalfDayPosition(body.HalfDayPosition),
		Reason:          body.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// ApproveLeaveRequest approves a pending request.
// POST /api/leave/requests/{id}/approve
func (h *Handler) ApproveLeaveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Leave.Approve(r.Context(), mustActor(r), requestID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// RejectLeaveRequest rejects a pending request.
// POST /api/leave/requests/{id}/reject
func (h *Handler) RejectLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	req, err := h.Leave.Reject(r.Context(), mustActor(r), requestID(r), body.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// CancelLeaveRequest withdraws the caller's own pending request.
// POST /api/leave/requests/{id}/cancel
func (h *Handler) CancelLeaveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Leave.Cancel(r.Context(), mustActor(r), requestID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// ResetLeaveRequest returns an approved or rejected request to pending.
// POST /api/leave/requests/{id}/reset
func (h *Handler) ResetLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	req, err := h.Leave.Reset(r.Context(), mustActor(r), requestID(r), body.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// GetLeaveRequestHistory returns the balance movements of a request.
// GET /api/leave/requests/{id}/history
func (h *Handler) GetLeaveRequestHistory(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Leave.History(r.Context(), mustActor(r), requestID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]MovementDTO, len(movements))
	for i, m := range movements {
		dtos[i] = toMovementDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BALANCES
// =============================================================================

// GetBalances returns per leave type balances for an employee.
// GET /api/employees/{id}/balances?year=
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	year := 0
	if y := r.URL.Query().Get("year"); y != "" {
		var err error
		if year, err = strconv.Atoi(y); err != nil {
			h.fail(w, r, generic.FieldError("year", "must be a number"))
			return
		}
	}

	summaries, err := h.Leave.Summaries(r.Context(), mustActor(r), employeeID(r), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]BalanceSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = toBalanceSummaryDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeBody decodes a JSON body into dst. An empty body is accepted
// unless required.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, required bool) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && !required {
		return true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func parseRange(start, end string) (generic.TimePoint, generic.TimePoint, error) {
	fields := map[string]string{}
	s, err := parseDate(start)
	if err != nil {
		fields["start_date"] = err.Error()
	}
	e, err := parseDate(end)
	if err != nil {
		fields["end_date"] = err.Error()
	}
	if len(fields) > 0 {
		return s, e, &generic.ValidationError{Message: "invalid dates", Fields: fields}
	}
	return s, e, nil
}

func parseDate(s string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, errors.New("is required")
	}
	tp, err := generic.ParseTimePoint(s)
	if err != nil {
		return generic.TimePoint{}, errors.New("must be YYYY-MM-DD")
	}
	return tp, nil
}

// mustActor returns the authenticated actor. Routes without the auth
// middleware never call it.
func mustActor(r *http.Request) generic.Actor {
	actor, _ := ActorFrom(r.Context())
	return actor
}

func requestID(r *http.Request) timeoff.RequestID {
	return timeoff.RequestID(chi.URLParam(r, "id"))
}

func employeeID(r *http.Request) generic.EmployeeID {
	return generic.EmployeeID(chi.URLParam(r, "id"))
}
