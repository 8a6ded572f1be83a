// Package session implements the broker's coupling state: session identity,
// per-variable slot mailboxes, the participant lifecycle state machine, and
// the mutex-guarded registry that serializes all access.
//
// A session couples two simulation processes, the initiator and the invitee.
// Each declared variable gets a single-element mailbox (a Slot) gated by a
// readiness flag: the producer stores a payload only when the flag is 0, the
// consumer drains it only when the flag is 1. The flag is the sole
// synchronizer between the two sides; session status never gates data
// transfer.
//
// Session and Slot methods are not internally synchronized. All access goes
// through the Registry, which holds one mutex for the whole read-modify-write
// of each operation.
package session

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Status is the lifecycle state of a session.
//
// Transitions are monotone: CREATED -> ACTIVE -> PARTIAL_END -> END.
// ERROR is only ever observed client-side; UNKNOWN is the pre-creation
// sentinel.
type Status int

const (
	StatusError      Status = -1
	StatusUnknown    Status = 0
	StatusCreated    Status = 1
	StatusActive     Status = 2
	StatusPartialEnd Status = 3
	StatusEnd        Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusCreated:
		return "created"
	case StatusActive:
		return "active"
	case StatusPartialEnd:
		return "partial end"
	case StatusEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ID identifies a coupling session.
//
// The first four fields are caller-declared model and user tags; ClientID is
// an opaque token minted by the broker at creation, which makes the tuple
// unique even when two couplings share identical tags. ID is a value type
// and is used as the registry map key; it must never be mutated.
type ID struct {
	SourceModelID      int    `json:"source_model_id"`
	DestinationModelID int    `json:"destination_model_id"`
	InitiatorID        int    `json:"initiator_id"`
	InviteeID          int    `json:"invitee_id"`
	ClientID           string `json:"client_id"`
}

// String returns the wire serialization of the id: the five fields joined by
// commas in declaration order. Clients use this form as a header value and
// query parameter.
func (id ID) String() string {
	return fmt.Sprintf("%d,%d,%d,%d,%s",
		id.SourceModelID, id.DestinationModelID, id.InitiatorID, id.InviteeID, id.ClientID)
}

// IsZero reports whether the id is the zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

// ParseID parses the comma-joined serialization produced by String.
func ParseID(s string) (ID, error) {
	parts := strings.SplitN(s, ",", 5)
	if len(parts) != 5 {
		return ID{}, fmt.Errorf("malformed session id %q: want 5 comma-separated fields", s)
	}

	var nums [4]int
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return ID{}, fmt.Errorf("malformed session id %q: field %d is not an integer", s, i+1)
		}
		nums[i] = n
	}

	if parts[4] == "" {
		return ID{}, fmt.Errorf("malformed session id %q: empty client id", s)
	}

	return ID{
		SourceModelID:      nums[0],
		DestinationModelID: nums[1],
		InitiatorID:        nums[2],
		InviteeID:          nums[3],
		ClientID:           parts[4],
	}, nil
}

// Data carries the creation parameters for a session.
//
// The slot set of the new session is the union of the input and output
// variable ids; each id's declared size comes from the positionally paired
// size list. Sizes are advisory: the broker never rejects a payload whose
// length disagrees with the declared size.
type Data struct {
	SourceModelID       int   `json:"source_model_id"`
	DestinationModelID  int   `json:"destination_model_id"`
	InitiatorID         int   `json:"initiator_id"`
	InviteeID           int   `json:"invitee_id"`
	InputVariablesID    []int `json:"input_variables_id" validate:"omitempty,dive,gte=0"`
	InputVariablesSize  []int `json:"input_variables_size" validate:"omitempty,dive,gte=0"`
	OutputVariablesID   []int `json:"output_variables_id" validate:"omitempty,dive,gte=0"`
	OutputVariablesSize []int `json:"output_variables_size" validate:"omitempty,dive,gte=0"`
}

// Validate checks structural constraints the tag-based validator cannot
// express: every variable id list must pair with a size list of equal length.
func (d *Data) Validate() error {
	if len(d.InputVariablesID) != len(d.InputVariablesSize) {
		return fmt.Errorf("input variable ids (%d) and sizes (%d) differ in length",
			len(d.InputVariablesID), len(d.InputVariablesSize))
	}
	if len(d.OutputVariablesID) != len(d.OutputVariablesSize) {
		return fmt.Errorf("output variable ids (%d) and sizes (%d) differ in length",
			len(d.OutputVariablesID), len(d.OutputVariablesSize))
	}
	return nil
}

// Slot is a single-element mailbox for one variable.
//
// The cell is a tagged union: flag 1 means a payload is stored, flag 0 means
// the cell is empty and ready for the producer. Successful put/take pairs
// strictly alternate, beginning with put.
type Slot struct {
	declaredSize int
	value        []float64
	flag         int
}

func newSlot(declaredSize int) *Slot {
	return &Slot{declaredSize: declaredSize}
}

// Put stores a payload and raises the flag.
// Fails with ErrDataAlreadyPresent when the previous payload has not been
// drained. The payload is copied; the caller's slice does not escape.
func (s *Slot) Put(values []float64) error {
	if s.flag == 1 {
		return ErrDataAlreadyPresent
	}

	// Copy into a fresh non-nil slice so flag==1 always implies value present,
	// even for zero-length payloads.
	s.value = append(make([]float64, 0, len(values)), values...)
	s.flag = 1
	return nil
}

// Take returns the stored payload and resets the flag.
// Fails with ErrDataNotAvailable when the flag is 0. A second Take without an
// intervening successful Put fails.
func (s *Slot) Take() ([]float64, error) {
	if s.flag == 0 || s.value == nil {
		return nil, ErrDataNotAvailable
	}

	values := s.value
	s.value = nil
	s.flag = 0
	return values, nil
}

// Flag reads the readiness flag without modifying the slot.
func (s *Slot) Flag() int {
	return s.flag
}

// DeclaredSize reads the size declared at session creation.
func (s *Slot) DeclaredSize() int {
	return s.declaredSize
}

// Clear empties the slot regardless of its state. Used when a participant
// leaves and its owned variables are released.
func (s *Slot) Clear() {
	s.value = nil
	s.flag = 0
}

// Session is the broker's record for one coupling.
//
// clientVars maps each participant tag to the variable ids that participant
// owns and must release at partial end: the initiator owns its declared input
// variables, the joiner owns the complement of the slot key set.
type Session struct {
	ID ID

	status      Status
	slots       map[int]*Slot
	clientVars  map[int][]int
	endRequests map[int]struct{}
}

func newSession(id ID, data *Data) *Session {
	slots := make(map[int]*Slot, len(data.InputVariablesID)+len(data.OutputVariablesID))
	for i, varID := range data.InputVariablesID {
		slots[varID] = newSlot(data.InputVariablesSize[i])
	}
	// Output sizes win when an id appears in both lists.
	for i, varID := range data.OutputVariablesID {
		slots[varID] = newSlot(data.OutputVariablesSize[i])
	}

	initiatorVars := append([]int(nil), data.InputVariablesID...)

	return &Session{
		ID:          id,
		status:      StatusCreated,
		slots:       slots,
		clientVars:  map[int][]int{data.InitiatorID: initiatorVars},
		endRequests: make(map[int]struct{}),
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	return s.status
}

// Join admits the invitee and activates the session.
//
// Fails with ErrSessionActive when a joiner is already present, and with
// ErrWrongInvitee when inviteeID differs from the id declared at creation.
// The joiner's owned variables are the slot keys the initiator does not own.
func (s *Session) Join(inviteeID int) error {
	if s.status >= StatusActive {
		return ErrSessionActive
	}
	if inviteeID != s.ID.InviteeID {
		return ErrWrongInvitee
	}

	owned := make(map[int]struct{}, len(s.slots))
	for varID := range s.slots {
		owned[varID] = struct{}{}
	}
	for _, varID := range s.clientVars[s.ID.InitiatorID] {
		delete(owned, varID)
	}

	inviteeVars := make([]int, 0, len(owned))
	for varID := range owned {
		inviteeVars = append(inviteeVars, varID)
	}
	sort.Ints(inviteeVars)

	s.status = StatusActive
	s.clientVars[inviteeID] = inviteeVars
	return nil
}

// Send stores a payload in the variable's slot.
// Session status is deliberately not checked: exchange is legal as soon as
// the slot exists, and the flag alone decides readiness.
func (s *Session) Send(varID int, values []float64) error {
	slot, ok := s.slots[varID]
	if !ok {
		return ErrVariableNotFound
	}
	return slot.Put(values)
}

// Receive drains the variable's slot and returns the stored payload.
func (s *Session) Receive(varID int) ([]float64, error) {
	slot, ok := s.slots[varID]
	if !ok {
		return nil, ErrVariableNotFound
	}
	return slot.Take()
}

// Flag reads a variable's readiness flag.
func (s *Session) Flag(varID int) (int, error) {
	slot, ok := s.slots[varID]
	if !ok {
		return 0, ErrVariableNotFound
	}
	return slot.Flag(), nil
}

// VariableSize reads a variable's declared size.
func (s *Session) VariableSize(varID int) (int, error) {
	slot, ok := s.slots[varID]
	if !ok {
		return 0, ErrVariableNotFound
	}
	return slot.DeclaredSize(), nil
}

// Flags returns a copy of the full flag table, keyed by variable id.
func (s *Session) Flags() map[int]int {
	flags := make(map[int]int, len(s.slots))
	for varID, slot := range s.slots {
		flags[varID] = slot.Flag()
	}
	return flags
}

// End records an end request from the given participant.
//
// The first request moves the session to PARTIAL_END and clears the departing
// participant's owned slots. Once every participant recorded in clientVars
// has requested an end, the session reaches END and the registry deletes the
// record; an initiator ending a session nobody joined reaches END
// immediately.
func (s *Session) End(userID int) (Status, error) {
	vars, ok := s.clientVars[userID]
	if !ok {
		return s.status, ErrNotParticipant
	}

	s.endRequests[userID] = struct{}{}

	if len(s.endRequests) < len(s.clientVars) {
		s.status = StatusPartialEnd
		for _, varID := range vars {
			if slot, ok := s.slots[varID]; ok {
				slot.Clear()
			}
		}
		return s.status, nil
	}

	s.status = StatusEnd
	return s.status, nil
}
