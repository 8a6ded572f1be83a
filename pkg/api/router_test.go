package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hydrosim/exchange/pkg/api/handlers"
	"github.com/hydrosim/exchange/pkg/session"
)

func testRouter() http.Handler {
	return NewRouter(APIConfig{}, session.NewRegistry(), nil)
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("Failed to encode body: %v", err)
	}
	return &buf
}

func doRequest(t *testing.T, router http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router http.Handler) session.ID {
	t.Helper()
	body := jsonBody(t, session.Data{
		SourceModelID:       2001,
		DestinationModelID:  2005,
		InitiatorID:         35,
		InviteeID:           38,
		InputVariablesID:    []int{1},
		InputVariablesSize:  []int{50},
		OutputVariablesID:   []int{4},
		OutputVariablesSize: []int{50},
	})

	w := doRequest(t, router, "POST", "/create_session", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create_session = %d, body %s", w.Code, w.Body.String())
	}

	var resp handlers.SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode create response: %v", err)
	}
	if resp.Status != int(session.StatusCreated) {
		t.Fatalf("create status = %d, want %d", resp.Status, session.StatusCreated)
	}
	if resp.SessionID.ClientID == "" {
		t.Fatal("Expected minted client id in create response")
	}
	return resp.SessionID
}

func encodeFloats(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(t *testing.T, data []byte) []float64 {
	t.Helper()
	if len(data)%8 != 0 {
		t.Fatalf("Payload length %d is not a multiple of 8", len(data))
	}
	values := make([]float64, len(data)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return values
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorBody {
	t.Helper()
	var body handlers.ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body
}

func TestFullExchangeLifecycle(t *testing.T) {
	router := testRouter()
	id := createSession(t, router)

	// status is CREATED before the join
	w := doRequest(t, router, "GET", "/get_session_status", jsonBody(t, id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get_session_status = %d", w.Code)
	}
	var status int
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status != int(session.StatusCreated) {
		t.Errorf("Status before join = %d, want %d", status, session.StatusCreated)
	}

	// invitee joins, session becomes ACTIVE
	w = doRequest(t, router, "POST", "/join_session",
		jsonBody(t, handlers.JoinRequest{SessionID: id, InviteeID: 38}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("join_session = %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, "GET", "/get_session_status", jsonBody(t, id), nil)
	json.NewDecoder(w.Body).Decode(&status)
	if status != int(session.StatusActive) {
		t.Errorf("Status after join = %d, want %d", status, session.StatusActive)
	}

	// producer sends 50 values for variable 1
	payload := make([]float64, 50)
	for i := range payload {
		payload[i] = float64(i) * 1.5
	}
	w = doRequest(t, router, "POST", "/send_data", bytes.NewReader(encodeFloats(payload)),
		map[string]string{"Session-ID": id.String(), "Var-ID": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("send_data = %d, body %s", w.Code, w.Body.String())
	}

	// flag raised
	w = doRequest(t, router, "GET", "/get_variable_flag?session_id="+id.String()+"&var_id=1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get_variable_flag = %d", w.Code)
	}
	var flagResp handlers.VariableFlagResponse
	json.NewDecoder(w.Body).Decode(&flagResp)
	if flagResp.FlagStatus != 1 {
		t.Errorf("Flag after send = %d, want 1", flagResp.FlagStatus)
	}

	// declared size is visible
	w = doRequest(t, router, "GET", "/get_variable_size?session_id="+id.String()+"&var_id=1", nil, nil)
	var sizeResp handlers.VariableSizeResponse
	json.NewDecoder(w.Body).Decode(&sizeResp)
	if sizeResp.Size != 50 {
		t.Errorf("Declared size = %d, want 50", sizeResp.Size)
	}

	// consumer drains the slot and gets the payload back bit-exact
	w = doRequest(t, router, "GET", "/receive_data?session_id="+id.String()+"&var_id=1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("receive_data = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want octet-stream", ct)
	}
	received := decodeFloats(t, w.Body.Bytes())
	if len(received) != 50 || received[49] != 49*1.5 {
		t.Errorf("Received %d values, last %v", len(received), received[len(received)-1])
	}

	// flag dropped back to 0
	w = doRequest(t, router, "GET", "/get_variable_flag?session_id="+id.String()+"&var_id=1", nil, nil)
	json.NewDecoder(w.Body).Decode(&flagResp)
	if flagResp.FlagStatus != 0 {
		t.Errorf("Flag after receive = %d, want 0", flagResp.FlagStatus)
	}

	// first end: PARTIAL_END
	w = doRequest(t, router, "POST", "/end_session",
		jsonBody(t, handlers.EndRequest{SessionID: id, UserID: 35}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end_session = %d, body %s", w.Code, w.Body.String())
	}
	var endResp handlers.SessionResponse
	json.NewDecoder(w.Body).Decode(&endResp)
	if endResp.Status != int(session.StatusPartialEnd) {
		t.Errorf("First end status = %d, want %d", endResp.Status, session.StatusPartialEnd)
	}

	// second end: END, record is gone
	w = doRequest(t, router, "POST", "/end_session",
		jsonBody(t, handlers.EndRequest{SessionID: id, UserID: 38}), nil)
	json.NewDecoder(w.Body).Decode(&endResp)
	if endResp.Status != int(session.StatusEnd) {
		t.Errorf("Second end status = %d, want %d", endResp.Status, session.StatusEnd)
	}

	w = doRequest(t, router, "GET", "/get_session_status", jsonBody(t, id), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Status after full end = %d, want 404", w.Code)
	}
}

func TestCreateSessionInvalidBody(t *testing.T) {
	router := testRouter()

	w := doRequest(t, router, "POST", "/create_session", bytes.NewBufferString("{not json"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Malformed JSON = %d, want 400", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != handlers.CodeInvalidInput {
		t.Errorf("Error code = %q, want %q", body.Code, handlers.CodeInvalidInput)
	}

	// mismatched id/size lists
	w = doRequest(t, router, "POST", "/create_session", jsonBody(t, session.Data{
		InitiatorID:      35,
		InviteeID:        38,
		InputVariablesID: []int{1, 2},
	}), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Mismatched lists = %d, want 400", w.Code)
	}
}

func TestJoinSessionErrors(t *testing.T) {
	router := testRouter()
	id := createSession(t, router)

	// unknown session
	unknown := id
	unknown.ClientID = "no-such-session"
	w := doRequest(t, router, "POST", "/join_session",
		jsonBody(t, handlers.JoinRequest{SessionID: unknown, InviteeID: 38}), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Join unknown session = %d, want 404", w.Code)
	}

	// wrong invitee
	w = doRequest(t, router, "POST", "/join_session",
		jsonBody(t, handlers.JoinRequest{SessionID: id, InviteeID: 99}), nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Join with wrong invitee = %d, want 403", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != handlers.CodeForbidden {
		t.Errorf("Error code = %q, want %q", body.Code, handlers.CodeForbidden)
	}

	// second join conflicts
	w = doRequest(t, router, "POST", "/join_session",
		jsonBody(t, handlers.JoinRequest{SessionID: id, InviteeID: 38}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("First join = %d", w.Code)
	}
	w = doRequest(t, router, "POST", "/join_session",
		jsonBody(t, handlers.JoinRequest{SessionID: id, InviteeID: 38}), nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Second join = %d, want 409", w.Code)
	}
}

func TestSendDataErrors(t *testing.T) {
	router := testRouter()
	id := createSession(t, router)
	payload := encodeFloats([]float64{1.0})

	// missing headers
	w := doRequest(t, router, "POST", "/send_data", bytes.NewReader(payload), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Send without headers = %d, want 400", w.Code)
	}

	// bad framing: body not a multiple of 8 bytes
	w = doRequest(t, router, "POST", "/send_data", bytes.NewReader([]byte{1, 2, 3}),
		map[string]string{"Session-ID": id.String(), "Var-ID": "1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Send with bad framing = %d, want 400", w.Code)
	}

	// unknown variable
	w = doRequest(t, router, "POST", "/send_data", bytes.NewReader(payload),
		map[string]string{"Session-ID": id.String(), "Var-ID": "999"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Send to unknown variable = %d, want 404", w.Code)
	}

	// double send without a drain conflicts
	headers := map[string]string{"Session-ID": id.String(), "Var-ID": "1"}
	w = doRequest(t, router, "POST", "/send_data", bytes.NewReader(payload), headers)
	if w.Code != http.StatusOK {
		t.Fatalf("First send = %d", w.Code)
	}
	w = doRequest(t, router, "POST", "/send_data", bytes.NewReader(payload), headers)
	if w.Code != http.StatusConflict {
		t.Errorf("Second send = %d, want 409", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != handlers.CodeConflict {
		t.Errorf("Error code = %q, want %q", body.Code, handlers.CodeConflict)
	}
}

func TestReceiveDataErrors(t *testing.T) {
	router := testRouter()
	id := createSession(t, router)

	// nothing sent yet
	w := doRequest(t, router, "GET", "/receive_data?session_id="+id.String()+"&var_id=1", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Receive with empty slot = %d, want 404", w.Code)
	}

	// malformed session id in query
	w = doRequest(t, router, "GET", "/receive_data?session_id=bogus&var_id=1", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Receive with malformed id = %d, want 400", w.Code)
	}

	// missing var_id
	w = doRequest(t, router, "GET", "/receive_data?session_id="+id.String(), nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Receive without var_id = %d, want 400", w.Code)
	}
}

func TestZeroLengthPayloadRoundTrip(t *testing.T) {
	router := testRouter()
	id := createSession(t, router)

	w := doRequest(t, router, "POST", "/send_data", bytes.NewReader(nil),
		map[string]string{"Session-ID": id.String(), "Var-ID": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("Zero-length send = %d", w.Code)
	}

	w = doRequest(t, router, "GET", "/get_variable_flag?session_id="+id.String()+"&var_id=1", nil, nil)
	var flagResp handlers.VariableFlagResponse
	json.NewDecoder(w.Body).Decode(&flagResp)
	if flagResp.FlagStatus != 1 {
		t.Errorf("Flag after zero-length send = %d, want 1", flagResp.FlagStatus)
	}

	w = doRequest(t, router, "GET", "/receive_data?session_id="+id.String()+"&var_id=1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Zero-length receive = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Zero-length receive body = %d bytes, want 0", w.Body.Len())
	}
}

func TestSendDataPayloadLimit(t *testing.T) {
	// 16 byte cap: a 3-float payload must be rejected before decoding
	router := NewRouter(APIConfig{MaxPayloadSize: 16}, session.NewRegistry(), nil)
	id := createSession(t, router)

	w := doRequest(t, router, "POST", "/send_data", bytes.NewReader(encodeFloats([]float64{1, 2})),
		map[string]string{"Session-ID": id.String(), "Var-ID": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("Send at the limit = %d, want 200", w.Code)
	}

	w = doRequest(t, router, "GET", "/receive_data?session_id="+id.String()+"&var_id=1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Drain = %d", w.Code)
	}

	w = doRequest(t, router, "POST", "/send_data", bytes.NewReader(encodeFloats([]float64{1, 2, 3})),
		map[string]string{"Session-ID": id.String(), "Var-ID": "1"})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Oversized send = %d, want 413", w.Code)
	}
}

func TestGetFlags(t *testing.T) {
	router := testRouter()
	id := createSession(t, router)

	w := doRequest(t, router, "POST", "/send_data", bytes.NewReader(encodeFloats([]float64{1})),
		map[string]string{"Session-ID": id.String(), "Var-ID": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("send_data = %d", w.Code)
	}

	w = doRequest(t, router, "GET", "/get_flags?session_id="+id.String(), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get_flags = %d", w.Code)
	}

	var flags map[string]int
	if err := json.NewDecoder(w.Body).Decode(&flags); err != nil {
		t.Fatalf("Failed to decode flags: %v", err)
	}
	if flags["1"] != 1 || flags["4"] != 0 {
		t.Errorf("Flags = %v, want {1:1 4:0}", flags)
	}
}

func TestEndSessionErrors(t *testing.T) {
	router := testRouter()
	id := createSession(t, router)

	// non-participant cannot end
	w := doRequest(t, router, "POST", "/end_session",
		jsonBody(t, handlers.EndRequest{SessionID: id, UserID: 99}), nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("End by non-participant = %d, want 403", w.Code)
	}

	// unknown session
	unknown := id
	unknown.ClientID = "no-such-session"
	w = doRequest(t, router, "POST", "/end_session",
		jsonBody(t, handlers.EndRequest{SessionID: unknown, UserID: 35}), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("End unknown session = %d, want 404", w.Code)
	}
}

func TestEndBeforeJoinDeletesImmediately(t *testing.T) {
	router := testRouter()
	id := createSession(t, router)

	w := doRequest(t, router, "POST", "/end_session",
		jsonBody(t, handlers.EndRequest{SessionID: id, UserID: 35}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("End before join = %d", w.Code)
	}
	var resp handlers.SessionResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != int(session.StatusEnd) {
		t.Errorf("End before join status = %d, want %d", resp.Status, session.StatusEnd)
	}

	w = doRequest(t, router, "GET", "/get_session_status", jsonBody(t, id), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Status after end = %d, want 404", w.Code)
	}
}

func TestDuplicateCreatesAreIndependent(t *testing.T) {
	router := testRouter()
	first := createSession(t, router)
	second := createSession(t, router)

	if first.ClientID == second.ClientID {
		t.Fatalf("Expected distinct client ids, both %q", first.ClientID)
	}

	w := doRequest(t, router, "POST", "/send_data", bytes.NewReader(encodeFloats([]float64{1})),
		map[string]string{"Session-ID": first.String(), "Var-ID": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("Send on first session = %d", w.Code)
	}

	w = doRequest(t, router, "GET", "/get_variable_flag?session_id="+second.String()+"&var_id=1", nil, nil)
	var flagResp handlers.VariableFlagResponse
	json.NewDecoder(w.Body).Decode(&flagResp)
	if flagResp.FlagStatus != 0 {
		t.Errorf("Second session flag = %d, want 0", flagResp.FlagStatus)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter()

	w := doRequest(t, router, "GET", "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("/health = %d, want 200", w.Code)
	}

	w = doRequest(t, router, "GET", "/health/ready", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("/health/ready = %d, want 200", w.Code)
	}
}
