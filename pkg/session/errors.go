package session

import "errors"

// Sentinel errors returned by the registry and session state machine.
// Handlers map these onto HTTP status codes; callers should test with
// errors.Is because they may arrive wrapped.
var (
	// ErrSessionNotFound is returned when the session id is not in the registry.
	ErrSessionNotFound = errors.New("session not found")

	// ErrVariableNotFound is returned when the variable id has no slot in the session.
	ErrVariableNotFound = errors.New("variable not found in session")

	// ErrDataNotAvailable is returned by a receive when the slot flag is 0.
	ErrDataNotAvailable = errors.New("data not available")

	// ErrDataAlreadyPresent is returned by a send when the slot flag is 1 and
	// the consumer has not drained the previous payload yet.
	ErrDataAlreadyPresent = errors.New("data already present")

	// ErrSessionActive is returned by a join when the invitee has already joined.
	ErrSessionActive = errors.New("session is already active")

	// ErrWrongInvitee is returned by a join with an invitee id that does not
	// match the one declared at session creation.
	ErrWrongInvitee = errors.New("invitee id does not match session")

	// ErrNotParticipant is returned by an end request from a user id that is
	// neither the initiator nor the joined invitee.
	ErrNotParticipant = errors.New("user is not a session participant")
)
