package instance

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/logging"
	"github.com/siodb/siodb/pkg/types"
)

// clientSession is a short-lived handle for one authenticated connection;
// the wire protocol and its framing are a collaborator (§6) this package
// never touches directly, so a session here is nothing more than an
// identity and a start time.
type clientSession struct {
	uuid      uuid.UUID
	userID    types.UserID
	startedAt time.Time
}

// sessionTable tracks every currently active client session, the way
// Instance's own session set does, guarded by its own mutex independent
// of the database cache and user registry locks.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*clientSession
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[uuid.UUID]*clientSession)}
}

// BeginSession opens a new client session for an already-authenticated
// user, minting a collision-free session UUID the caller uses for every
// subsequent request until EndSession.
func (inst *Instance) BeginSession(userID types.UserID) uuid.UUID {
	t := inst.sessions
	t.mu.Lock()
	defer t.mu.Unlock()

	var id uuid.UUID
	for {
		id = uuid.New()
		if _, exists := t.sessions[id]; !exists {
			break
		}
	}
	t.sessions[id] = &clientSession{uuid: id, userID: userID, startedAt: time.Now()}
	logging.WithComponent("instance").Info().Str("session", id.String()).Msg("session started")
	return id
}

// EndSession closes a session previously returned by BeginSession. Ending
// a session that does not exist is an error, the same as in the original
// engine: a client can only ever end a session it legitimately holds.
func (inst *Instance) EndSession(id uuid.UUID) error {
	t := inst.sessions
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.sessions[id]; !exists {
		return fmt.Errorf("instance: session %s does not exist", id)
	}
	delete(t.sessions, id)
	logging.WithComponent("instance").Info().Str("session", id.String()).Msg("session finished")
	return nil
}

// Session looks up an active session's user id, for request handlers that
// need to re-authorize every call against the session it arrived on.
func (inst *Instance) Session(id uuid.UUID) (types.UserID, bool) {
	t := inst.sessions
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	if !ok {
		return 0, false
	}
	return s.userID, true
}
