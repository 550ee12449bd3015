package holder

import (
	"context"
	"sync"

	"Kirana/storage"
)

type userLock struct {
	mu   sync.Mutex
	refs int
}

// SessionHolder serializes access to dialog sessions per user. Locks exist
// only while someone holds or waits for them, so different users never
// contend and idle users cost nothing.
type SessionHolder struct {
	storage storage.SessionStore
	mu      sync.Mutex
	locks   map[string]*userLock
}

func NewSessionHolder(store storage.SessionStore) *SessionHolder {
	return &SessionHolder{
		storage: store,
		locks:   make(map[string]*userLock),
	}
}

// Lock blocks until the caller owns the user's session and returns the
// function releasing it.
func (h *SessionHolder) Lock(userId string) func() {
	h.mu.Lock()
	l, ok := h.locks[userId]
	if !ok {
		l = &userLock{}
		h.locks[userId] = l
	}
	l.refs++
	h.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.locks, userId)
		}
		h.mu.Unlock()
	}
}

// Load returns the stored session or a fresh unsaved one.
func (h *SessionHolder) Load(ctx context.Context, userId string) (*storage.DialogSession, error) {
	session, err := h.storage.GetSession(ctx, userId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return storage.NewDialogSession(userId), nil
	}
	return session, nil
}

// Peek returns the stored session or nil, never creating one.
func (h *SessionHolder) Peek(ctx context.Context, userId string) (*storage.DialogSession, error) {
	return h.storage.GetSession(ctx, userId)
}

func (h *SessionHolder) Save(ctx context.Context, session *storage.DialogSession) error {
	return h.storage.SaveSession(ctx, session)
}

func (h *SessionHolder) Close() error {
	return h.storage.Close()
}

func (h *SessionHolder) activeLocks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.locks)
}
