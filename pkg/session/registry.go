package session

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hydrosim/exchange/internal/logger"
)

// Registry holds every live session, keyed by ID.
//
// One mutex serializes all access: every operation is a single critical
// section covering the full read-modify-write, so the externally observable
// history of state transitions is a linear extension of handler execution
// order. Payload slices are copied on the way in (Slot.Put) and handed out by
// value on the way out; no reference to shared state escapes the lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[ID]*Session
}

// Snapshot is a read-only view of one live session, taken under the registry
// lock. Used by the housekeeper for periodic logging.
type Snapshot struct {
	ID     ID
	Status Status
	Flags  map[int]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[ID]*Session),
	}
}

// Create mints a fresh session id and registers a new session.
//
// The client id is a random UUIDv4, which makes concurrent creates with
// identical tag tuples yield distinct ids. Collisions are not expected, but
// uniqueness is mandatory, so the mint retries until the key is free.
func (r *Registry) Create(data *Data) (ID, error) {
	if err := data.Validate(); err != nil {
		return ID{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id ID
	for {
		id = ID{
			SourceModelID:      data.SourceModelID,
			DestinationModelID: data.DestinationModelID,
			InitiatorID:        data.InitiatorID,
			InviteeID:          data.InviteeID,
			ClientID:           uuid.NewString(),
		}
		if _, exists := r.sessions[id]; !exists {
			break
		}
	}

	r.sessions[id] = newSession(id, data)

	logger.Info("session created",
		"session_id", id.String(),
		"variables", len(r.sessions[id].slots))

	return id, nil
}

// Join admits the invitee into the session.
func (r *Registry) Join(id ID, inviteeID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	if err := s.Join(inviteeID); err != nil {
		return err
	}

	logger.Info("session joined", "session_id", id.String(), "invitee_id", inviteeID)
	return nil
}

// Status returns the session's lifecycle state.
func (r *Registry) Status(id ID) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return StatusUnknown, ErrSessionNotFound
	}
	return s.Status(), nil
}

// VariableFlag reads one variable's readiness flag.
func (r *Registry) VariableFlag(id ID, varID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return s.Flag(varID)
}

// VariableSize reads one variable's declared size.
func (r *Registry) VariableSize(id ID, varID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return s.VariableSize(varID)
}

// Flags returns the session's full flag table.
func (r *Registry) Flags(id ID) (map[int]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Flags(), nil
}

// Send stores a payload in the session's slot for varID.
func (r *Registry) Send(id ID, varID int, values []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	if err := s.Send(varID, values); err != nil {
		return err
	}

	logger.Debug("payload stored",
		"session_id", id.String(), "var_id", varID, "elements", len(values))
	return nil
}

// Receive drains the session's slot for varID and returns the payload.
func (r *Registry) Receive(id ID, varID int) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	values, err := s.Receive(varID)
	if err != nil {
		return nil, err
	}

	logger.Debug("payload drained",
		"session_id", id.String(), "var_id", varID, "elements", len(values))
	return values, nil
}

// End records an end request from userID and returns the resulting status.
// When the second participant ends, the record is deleted and subsequent
// operations on the id fail with ErrSessionNotFound.
func (r *Registry) End(id ID, userID int) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return StatusUnknown, ErrSessionNotFound
	}

	status, err := s.End(userID)
	if err != nil {
		return status, err
	}

	if status == StatusEnd {
		delete(r.sessions, id)
		logger.Info("session ended", "session_id", id.String())
	} else {
		logger.Info("session partial end", "session_id", id.String(), "user_id", userID)
	}

	return status, nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SnapshotAll captures a read-only view of every live session, ordered by id
// string for stable log output. It never mutates state.
func (r *Registry) SnapshotAll() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(r.sessions))
	for id, s := range r.sessions {
		snapshots = append(snapshots, Snapshot{
			ID:     id,
			Status: s.Status(),
			Flags:  s.Flags(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ID.String() < snapshots[j].ID.String()
	})

	return snapshots
}
