package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/hydrosim/exchange/pkg/codec"
	"github.com/hydrosim/exchange/pkg/metrics"
	"github.com/hydrosim/exchange/pkg/session"
)

// Header names carrying the session id and variable id on data uploads.
// Uploads keep the JSON machinery out of the hot path: the payload is the
// raw request body and the routing keys travel as headers.
const (
	HeaderSessionID = "Session-ID"
	HeaderVarID     = "Var-ID"
)

var validate = validator.New()

// SessionHandler handles the session lifecycle and data exchange endpoints.
type SessionHandler struct {
	registry   *session.Registry
	metrics    metrics.ExchangeMetrics
	maxPayload int64
}

// NewSessionHandler creates a new SessionHandler.
//
// The metrics parameter may be nil when metrics are disabled. maxPayload caps
// the request body size of one data upload.
func NewSessionHandler(registry *session.Registry, m metrics.ExchangeMetrics, maxPayload int64) *SessionHandler {
	return &SessionHandler{registry: registry, metrics: m, maxPayload: maxPayload}
}

// SessionResponse is the success body for create, join and end.
type SessionResponse struct {
	Status    int        `json:"status"`
	SessionID session.ID `json:"session_id"`
}

// JoinRequest is the request body for POST /join_session.
type JoinRequest struct {
	SessionID session.ID `json:"session_id"`
	InviteeID int        `json:"invitee_id"`
}

// EndRequest is the request body for POST /end_session.
type EndRequest struct {
	SessionID session.ID `json:"session_id"`
	UserID    int        `json:"user_id"`
}

// VariableFlagResponse is the success body for GET /get_variable_flag.
type VariableFlagResponse struct {
	VarID      int `json:"var_id"`
	FlagStatus int `json:"flag_status"`
}

// VariableSizeResponse is the success body for GET /get_variable_size.
type VariableSizeResponse struct {
	VarID int `json:"var_id"`
	Size  int `json:"size"`
}

// Create handles POST /create_session.
//
// The body carries the creation parameters; the broker mints the session id
// and returns it with status CREATED. Creating twice with identical tags
// yields two independent sessions with distinct client ids.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var data session.Data
	if !decodeJSONBody(w, r, &data) {
		return
	}

	if err := validate.Struct(&data); err != nil {
		BadRequest(w, err.Error())
		return
	}

	id, err := h.registry.Create(&data)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	h.setLiveSessions()
	WriteJSONOK(w, SessionResponse{Status: int(session.StatusCreated), SessionID: id})
}

// Status handles GET /get_session_status.
//
// The session id travels as a JSON body, matching the creation response
// shape. The response body is the bare integer status.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	var id session.ID
	if !decodeJSONBody(w, r, &id) {
		return
	}

	status, err := h.registry.Status(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSONOK(w, int(status))
}

// Join handles POST /join_session.
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.registry.Join(req.SessionID, req.InviteeID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSONOK(w, SessionResponse{Status: int(session.StatusActive), SessionID: req.SessionID})
}

// Send handles POST /send_data.
//
// The payload is the raw little-endian float64 body; Session-ID and Var-ID
// headers route it to the slot. A payload whose length disagrees with the
// declared variable size is accepted, sizes are advisory.
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, varID, ok := h.slotFromHeaders(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxPayload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, CodeInvalidInput,
				fmt.Sprintf("payload exceeds limit of %d bytes", tooLarge.Limit))
			return
		}
		BadRequest(w, "failed to read request body")
		return
	}

	values, err := codec.Decode(body)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.registry.Send(id, varID, values); err != nil {
		h.writeDomainError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObservePayload("send", len(body))
	}

	WriteJSONOK(w, map[string]string{
		"status": fmt.Sprintf("data received for variable %d", varID),
	})
}

// Receive handles GET /receive_data.
//
// Drains the slot and returns the payload as an octet-stream. A second
// receive without an intervening send fails with 404.
func (h *SessionHandler) Receive(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromQuery(w, r)
	if !ok {
		return
	}
	varID, ok := varIDFromQuery(w, r)
	if !ok {
		return
	}

	values, err := h.registry.Receive(id, varID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	body := codec.Encode(values)

	if h.metrics != nil {
		h.metrics.ObservePayload("receive", len(body))
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Flag handles GET /get_variable_flag.
func (h *SessionHandler) Flag(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromQuery(w, r)
	if !ok {
		return
	}
	varID, ok := varIDFromQuery(w, r)
	if !ok {
		return
	}

	flag, err := h.registry.VariableFlag(id, varID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSONOK(w, VariableFlagResponse{VarID: varID, FlagStatus: flag})
}

// Size handles GET /get_variable_size.
func (h *SessionHandler) Size(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromQuery(w, r)
	if !ok {
		return
	}
	varID, ok := varIDFromQuery(w, r)
	if !ok {
		return
	}

	size, err := h.registry.VariableSize(id, varID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSONOK(w, VariableSizeResponse{VarID: varID, Size: size})
}

// Flags handles GET /get_flags.
// Returns the full flag table of the session, keyed by variable id.
func (h *SessionHandler) Flags(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromQuery(w, r)
	if !ok {
		return
	}

	flags, err := h.registry.Flags(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSONOK(w, flags)
}

// End handles POST /end_session.
//
// The first participant's end moves the session to PARTIAL_END; the second
// end reaches END and deletes the record.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	var req EndRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	status, err := h.registry.End(req.SessionID, req.UserID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.setLiveSessions()
	WriteJSONOK(w, SessionResponse{Status: int(status), SessionID: req.SessionID})
}

// slotFromHeaders parses the Session-ID and Var-ID headers on data uploads.
func (h *SessionHandler) slotFromHeaders(w http.ResponseWriter, r *http.Request) (session.ID, int, bool) {
	rawID := r.Header.Get(HeaderSessionID)
	if rawID == "" {
		BadRequest(w, "missing Session-ID header")
		return session.ID{}, 0, false
	}

	id, err := session.ParseID(rawID)
	if err != nil {
		BadRequest(w, err.Error())
		return session.ID{}, 0, false
	}

	rawVar := r.Header.Get(HeaderVarID)
	if rawVar == "" {
		BadRequest(w, "missing Var-ID header")
		return session.ID{}, 0, false
	}

	varID, err := strconv.Atoi(rawVar)
	if err != nil {
		BadRequest(w, "Var-ID header must be an integer")
		return session.ID{}, 0, false
	}

	return id, varID, true
}

// writeDomainError maps session package sentinels onto the wire contract.
func (h *SessionHandler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		NotFound(w, "session not found")
	case errors.Is(err, session.ErrVariableNotFound):
		NotFound(w, "variable not found in session")
	case errors.Is(err, session.ErrDataNotAvailable):
		NotFound(w, "data not available for variable")
	case errors.Is(err, session.ErrDataAlreadyPresent):
		Conflict(w, "previous payload not yet drained")
	case errors.Is(err, session.ErrSessionActive):
		Conflict(w, "session already has a joined participant")
	case errors.Is(err, session.ErrWrongInvitee):
		Forbidden(w, "invitee id does not match the session")
	case errors.Is(err, session.ErrNotParticipant):
		Forbidden(w, "user is not a participant of the session")
	default:
		BadRequest(w, err.Error())
	}
}

func (h *SessionHandler) setLiveSessions() {
	if h.metrics != nil {
		h.metrics.SetLiveSessions(h.registry.Count())
	}
}
