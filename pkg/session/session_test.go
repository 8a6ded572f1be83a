package session

import (
	"errors"
	"testing"
)

// Creation parameters mirroring a typical two-variable coupling: the
// initiator produces variable 1, the invitee produces variable 4.
func testData() *Data {
	return &Data{
		SourceModelID:       2001,
		DestinationModelID:  2005,
		InitiatorID:         35,
		InviteeID:           38,
		InputVariablesID:    []int{1},
		InputVariablesSize:  []int{50},
		OutputVariablesID:   []int{4},
		OutputVariablesSize: []int{50},
	}
}

func testID() ID {
	return ID{
		SourceModelID:      2001,
		DestinationModelID: 2005,
		InitiatorID:        35,
		InviteeID:          38,
		ClientID:           "931204ec-664d-4b4d-a343-b453ba573323",
	}
}

func TestIDString(t *testing.T) {
	id := testID()
	want := "2001,2005,35,38,931204ec-664d-4b4d-a343-b453ba573323"
	if id.String() != want {
		t.Errorf("Expected %q, got %q", want, id.String())
	}
}

func TestParseID(t *testing.T) {
	id := testID()

	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("ParseID failed: %v", err)
	}
	if parsed != id {
		t.Errorf("Round trip mismatch: got %+v, want %+v", parsed, id)
	}
}

func TestParseIDMalformed(t *testing.T) {
	cases := []string{
		"",
		"1,2,3",
		"1,2,3,4,",
		"a,2,3,4,uuid",
		"1,2,x,4,uuid",
	}
	for _, c := range cases {
		if _, err := ParseID(c); err == nil {
			t.Errorf("Expected error for %q", c)
		}
	}
}

func TestDataValidate(t *testing.T) {
	data := testData()
	if err := data.Validate(); err != nil {
		t.Errorf("Expected valid data, got %v", err)
	}

	data.InputVariablesSize = []int{50, 60}
	if err := data.Validate(); err == nil {
		t.Error("Expected error for mismatched input id/size lengths")
	}

	data = testData()
	data.OutputVariablesID = []int{4, 5}
	if err := data.Validate(); err == nil {
		t.Error("Expected error for mismatched output id/size lengths")
	}
}

func TestSlotAlternation(t *testing.T) {
	slot := newSlot(2)

	if slot.Flag() != 0 {
		t.Fatalf("New slot flag = %d, want 0", slot.Flag())
	}

	// take before any put fails
	if _, err := slot.Take(); !errors.Is(err, ErrDataNotAvailable) {
		t.Errorf("Take on empty slot: got %v, want ErrDataNotAvailable", err)
	}

	if err := slot.Put([]float64{1.0, 2.0}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if slot.Flag() != 1 {
		t.Errorf("Flag after put = %d, want 1", slot.Flag())
	}

	// second put without a take fails
	if err := slot.Put([]float64{3.0}); !errors.Is(err, ErrDataAlreadyPresent) {
		t.Errorf("Double put: got %v, want ErrDataAlreadyPresent", err)
	}

	values, err := slot.Take()
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if len(values) != 2 || values[0] != 1.0 || values[1] != 2.0 {
		t.Errorf("Take returned %v, want [1 2]", values)
	}
	if slot.Flag() != 0 {
		t.Errorf("Flag after take = %d, want 0", slot.Flag())
	}

	// second take without an intervening put fails
	if _, err := slot.Take(); !errors.Is(err, ErrDataNotAvailable) {
		t.Errorf("Double take: got %v, want ErrDataNotAvailable", err)
	}
}

func TestSlotPutCopiesPayload(t *testing.T) {
	slot := newSlot(3)

	payload := []float64{1.0, 2.0, 3.0}
	if err := slot.Put(payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	payload[0] = 99.0

	values, err := slot.Take()
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if values[0] != 1.0 {
		t.Errorf("Stored payload aliases caller slice: got %v", values[0])
	}
}

func TestSlotZeroLengthPayload(t *testing.T) {
	slot := newSlot(0)

	if err := slot.Put(nil); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if slot.Flag() != 1 {
		t.Errorf("Flag after empty put = %d, want 1", slot.Flag())
	}

	values, err := slot.Take()
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if values == nil || len(values) != 0 {
		t.Errorf("Expected empty non-nil payload, got %v", values)
	}
}

func TestSlotClear(t *testing.T) {
	slot := newSlot(1)
	if err := slot.Put([]float64{7.0}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	slot.Clear()

	if slot.Flag() != 0 {
		t.Errorf("Flag after clear = %d, want 0", slot.Flag())
	}
	if _, err := slot.Take(); !errors.Is(err, ErrDataNotAvailable) {
		t.Errorf("Take after clear: got %v, want ErrDataNotAvailable", err)
	}
}

func TestSessionJoin(t *testing.T) {
	s := newSession(testID(), testData())

	if s.Status() != StatusCreated {
		t.Fatalf("New session status = %v, want CREATED", s.Status())
	}

	if err := s.Join(38); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if s.Status() != StatusActive {
		t.Errorf("Status after join = %v, want ACTIVE", s.Status())
	}

	// joiner owns the complement of the initiator's input variables
	inviteeVars := s.clientVars[38]
	if len(inviteeVars) != 1 || inviteeVars[0] != 4 {
		t.Errorf("Invitee vars = %v, want [4]", inviteeVars)
	}
}

func TestSessionJoinWrongInvitee(t *testing.T) {
	s := newSession(testID(), testData())

	if err := s.Join(99); !errors.Is(err, ErrWrongInvitee) {
		t.Errorf("Join with wrong invitee: got %v, want ErrWrongInvitee", err)
	}
	if s.Status() != StatusCreated {
		t.Errorf("Status after rejected join = %v, want CREATED", s.Status())
	}
}

func TestSessionJoinAlreadyActive(t *testing.T) {
	s := newSession(testID(), testData())

	if err := s.Join(38); err != nil {
		t.Fatalf("First join failed: %v", err)
	}
	if err := s.Join(38); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Second join: got %v, want ErrSessionActive", err)
	}
}

func TestSessionSendBeforeJoin(t *testing.T) {
	// The flag is the sole synchronizer; exchange is legal in CREATED.
	s := newSession(testID(), testData())

	if err := s.Send(1, []float64{1.0}); err != nil {
		t.Errorf("Send before join failed: %v", err)
	}
	values, err := s.Receive(1)
	if err != nil {
		t.Errorf("Receive before join failed: %v", err)
	}
	if len(values) != 1 || values[0] != 1.0 {
		t.Errorf("Receive returned %v, want [1]", values)
	}
}

func TestSessionUnknownVariable(t *testing.T) {
	s := newSession(testID(), testData())

	if err := s.Send(42, []float64{1.0}); !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("Send to unknown var: got %v, want ErrVariableNotFound", err)
	}
	if _, err := s.Receive(42); !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("Receive from unknown var: got %v, want ErrVariableNotFound", err)
	}
	if _, err := s.Flag(42); !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("Flag of unknown var: got %v, want ErrVariableNotFound", err)
	}
	if _, err := s.VariableSize(42); !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("Size of unknown var: got %v, want ErrVariableNotFound", err)
	}
}

func TestSessionVariableSize(t *testing.T) {
	s := newSession(testID(), testData())

	size, err := s.VariableSize(1)
	if err != nil {
		t.Fatalf("VariableSize failed: %v", err)
	}
	if size != 50 {
		t.Errorf("Size = %d, want 50", size)
	}
}

func TestSessionEndLifecycle(t *testing.T) {
	s := newSession(testID(), testData())
	if err := s.Join(38); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	// initiator fills its variable, invitee fills its own
	if err := s.Send(1, []float64{1.0}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := s.Send(4, []float64{2.0}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	status, err := s.End(35)
	if err != nil {
		t.Fatalf("First end failed: %v", err)
	}
	if status != StatusPartialEnd {
		t.Errorf("Status after first end = %v, want PARTIAL_END", status)
	}

	// the departing initiator's owned slot (var 1) is cleared, var 4 is not
	if flag, _ := s.Flag(1); flag != 0 {
		t.Errorf("Initiator's var flag after partial end = %d, want 0", flag)
	}
	if flag, _ := s.Flag(4); flag != 1 {
		t.Errorf("Invitee's var flag after partial end = %d, want 1", flag)
	}

	status, err = s.End(38)
	if err != nil {
		t.Fatalf("Second end failed: %v", err)
	}
	if status != StatusEnd {
		t.Errorf("Status after second end = %v, want END", status)
	}
}

func TestSessionEndNotParticipant(t *testing.T) {
	s := newSession(testID(), testData())

	if _, err := s.End(99); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("End by stranger: got %v, want ErrNotParticipant", err)
	}
}

func TestSessionEndBeforeJoinDeletesImmediately(t *testing.T) {
	// Only the initiator is in clientVars, so its end request is the last one.
	s := newSession(testID(), testData())

	status, err := s.End(35)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if status != StatusEnd {
		t.Errorf("Status = %v, want END when no invitee ever joined", status)
	}
}

func TestSessionOutputSizeWinsOnDuplicateID(t *testing.T) {
	data := &Data{
		InitiatorID:         35,
		InviteeID:           38,
		InputVariablesID:    []int{1},
		InputVariablesSize:  []int{10},
		OutputVariablesID:   []int{1},
		OutputVariablesSize: []int{20},
	}
	s := newSession(testID(), data)

	size, err := s.VariableSize(1)
	if err != nil {
		t.Fatalf("VariableSize failed: %v", err)
	}
	if size != 20 {
		t.Errorf("Size = %d, want 20 (output declaration wins)", size)
	}
}
