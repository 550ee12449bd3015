package storage

import (
	"context"
	"errors"
	"time"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// State is the position of a dialog in the scripted conversation.
type State string

const (
	StateIdle        State = "IDLE"
	StateSearchPrice State = "SEARCH_PRICE"
	StateSearchStock State = "SEARCH_STOCK"
)

func (s State) Valid() bool {
	switch s {
	case StateIdle, StateSearchPrice, StateSearchStock:
		return true
	}
	return false
}

// ErrVersionConflict is returned by SaveSession when the stored session was
// changed after it had been read.
var ErrVersionConflict = errors.New("session version conflict")

type Turn struct {
	Sender    string    `bson:"sender" json:"sender"`
	Text      string    `bson:"text" json:"text"`
	Options   []string  `bson:"options,omitempty" json:"options,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type DialogSession struct {
	UserId    string         `bson:"user"`
	Messages  []Turn         `bson:"messages"`
	State     State          `bson:"context"`
	Metadata  map[string]any `bson:"metadata"`
	Version   int64          `bson:"version"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

// NewDialogSession returns an unsaved session in the initial state.
func NewDialogSession(userId string) *DialogSession {
	return &DialogSession{
		UserId:   userId,
		Messages: []Turn{},
		State:    StateIdle,
		Metadata: map[string]any{},
	}
}

// Clone returns a deep copy of the session, safe to mutate.
func (s *DialogSession) Clone() *DialogSession {
	cc := *s
	cc.Messages = make([]Turn, len(s.Messages))
	for i, t := range s.Messages {
		cc.Messages[i] = t
		if t.Options != nil {
			cc.Messages[i].Options = append([]string(nil), t.Options...)
		}
	}
	cc.Metadata = make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		cc.Metadata[k] = v
	}
	return &cc
}

// SessionStore persists dialog sessions keyed by user id.
type SessionStore interface {
	// GetSession returns nil without error when the user has no session.
	GetSession(ctx context.Context, userId string) (*DialogSession, error)
	// SaveSession stores the session if the stored version still equals
	// session.Version, then increments session.Version. A session with
	// Version 0 must not exist yet.
	SaveSession(ctx context.Context, session *DialogSession) error
	Close() error
}
