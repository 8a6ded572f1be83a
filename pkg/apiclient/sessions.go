package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hydrosim/exchange/pkg/codec"
	"github.com/hydrosim/exchange/pkg/session"
)

// sessionEnvelope is the success body of create, join and end.
type sessionEnvelope struct {
	Status    int        `json:"status"`
	SessionID session.ID `json:"session_id"`
}

// joinRequest is the request body for POST /join_session.
type joinRequest struct {
	SessionID session.ID `json:"session_id"`
	InviteeID int        `json:"invitee_id"`
}

// endRequest is the request body for POST /end_session.
type endRequest struct {
	SessionID session.ID `json:"session_id"`
	UserID    int        `json:"user_id"`
}

// variableFlagResponse is the success body of GET /get_variable_flag.
type variableFlagResponse struct {
	VarID      int `json:"var_id"`
	FlagStatus int `json:"flag_status"`
}

// variableSizeResponse is the success body of GET /get_variable_size.
type variableSizeResponse struct {
	VarID int `json:"var_id"`
	Size  int `json:"size"`
}

// CreateSession creates a new session and returns the broker-minted id.
func (c *Client) CreateSession(data *session.Data) (session.ID, error) {
	var resp sessionEnvelope
	if err := c.post("/create_session", data, &resp); err != nil {
		return session.ID{}, err
	}
	return resp.SessionID, nil
}

// GetSessionStatus returns the session's lifecycle state.
// An unknown session maps to StatusUnknown, matching the pre-creation
// sentinel, so pollers can treat "not yet created" and "already deleted"
// uniformly.
func (c *Client) GetSessionStatus(id session.ID) (session.Status, error) {
	var status int
	if err := c.getWithBody("/get_session_status", id, &status); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return session.StatusUnknown, nil
		}
		return session.StatusUnknown, err
	}
	return session.Status(status), nil
}

// JoinSession admits the invitee into the session.
func (c *Client) JoinSession(id session.ID, inviteeID int) error {
	return c.post("/join_session", joinRequest{SessionID: id, InviteeID: inviteeID}, nil)
}

// GetVariableFlag reads the readiness flag of one variable.
func (c *Client) GetVariableFlag(id session.ID, varID int) (int, error) {
	var resp variableFlagResponse
	if err := c.get(slotPath("/get_variable_flag", id, varID), &resp); err != nil {
		return 0, err
	}
	return resp.FlagStatus, nil
}

// GetVariableSize reads the declared size of one variable.
func (c *Client) GetVariableSize(id session.ID, varID int) (int, error) {
	var resp variableSizeResponse
	if err := c.get(slotPath("/get_variable_size", id, varID), &resp); err != nil {
		return 0, err
	}
	return resp.Size, nil
}

// GetFlags returns the session's full flag table, keyed by variable id.
func (c *Client) GetFlags(id session.ID) (map[int]int, error) {
	var flags map[int]int
	query := url.Values{"session_id": {id.String()}}
	if err := c.get("/get_flags?"+query.Encode(), &flags); err != nil {
		return nil, err
	}
	return flags, nil
}

// SendData uploads a payload into the variable's slot.
// The payload travels as raw little-endian float64 bytes; the session and
// variable ids travel as headers.
func (c *Client) SendData(id session.ID, varID int, values []float64) error {
	_, err := c.doRaw(http.MethodPost, "/send_data", codec.Encode(values), map[string]string{
		"Session-ID": id.String(),
		"Var-ID":     strconv.Itoa(varID),
	})
	return err
}

// ReceiveData drains the variable's slot and returns the payload.
func (c *Client) ReceiveData(id session.ID, varID int) ([]float64, error) {
	body, err := c.doRaw(http.MethodGet, slotPath("/receive_data", id, varID), nil, nil)
	if err != nil {
		return nil, err
	}

	values, err := codec.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("invalid payload from broker: %w", err)
	}
	return values, nil
}

// EndSession records an end request for userID and returns the resulting
// session status.
func (c *Client) EndSession(id session.ID, userID int) (session.Status, error) {
	var resp sessionEnvelope
	if err := c.post("/end_session", endRequest{SessionID: id, UserID: userID}, &resp); err != nil {
		return session.StatusUnknown, err
	}
	return session.Status(resp.Status), nil
}

// slotPath builds a query path addressing one variable of one session.
func slotPath(path string, id session.ID, varID int) string {
	query := url.Values{
		"session_id": {id.String()},
		"var_id":     {strconv.Itoa(varID)},
	}
	return path + "?" + query.Encode()
}
