package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"Kirana/core"
	"Kirana/holder"
	"Kirana/lib/sl"
	"Kirana/storage"
)

// maxSaveAttempts bounds recomputation of a turn after a version conflict
// with another process writing the same session.
const maxSaveAttempts = 3

// Observer receives chat events, e.g. for metrics.
type Observer interface {
	MessageHandled(state storage.State, elapsed time.Duration)
	SessionReset()
	CollaboratorFailed(name string)
}

type noopObserver struct{}

func (noopObserver) MessageHandled(storage.State, time.Duration) {}
func (noopObserver) SessionReset()                               {}
func (noopObserver) CollaboratorFailed(string)                   {}

// Assistant is the scripted store assistant. It keeps one dialog per user
// and answers price, stock and order status questions.
type Assistant struct {
	sessions *holder.SessionHolder
	catalog  storage.Catalog
	orders   storage.OrderHistory
	log      *slog.Logger
	observer Observer
	maxTurns int
	now      func() time.Time
}

func NewAssistant(sessions *holder.SessionHolder, catalog storage.Catalog, orders storage.OrderHistory, log *slog.Logger) *Assistant {
	return &Assistant{
		sessions: sessions,
		catalog:  catalog,
		orders:   orders,
		log:      log.With(sl.Module("assistant")),
		observer: noopObserver{},
		now:      time.Now,
	}
}

// SetObserver set chat events observer
func (a *Assistant) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	a.observer = o
}

// SetMaxTurns limits the stored transcript to the last n turns; 0 disables the limit.
// A positive limit never drops below one user and bot exchange.
func (a *Assistant) SetMaxTurns(n int) {
	if n > 0 {
		n = max(n, 2)
	}
	a.maxTurns = n
}

func (a *Assistant) HandleMessage(ctx context.Context, userId, text string) (core.Reply, []storage.Turn, error) {
	normalized := normalize(text)
	if normalized == "" {
		return core.Reply{}, nil, core.ErrEmptyMessage
	}
	started := time.Now()

	unlock := a.sessions.Lock(userId)
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		var session *storage.DialogSession
		session, err = a.sessions.Load(ctx, userId)
		if err != nil {
			return core.Reply{}, nil, fmt.Errorf("loading session: %w", err)
		}

		reply := a.respond(ctx, session, normalized)
		a.appendTurn(session, storage.SenderUser, strings.TrimSpace(text), nil)
		a.appendTurn(session, storage.SenderBot, reply.Text, reply.Options)
		a.applyRetention(session)

		err = a.sessions.Save(ctx, session)
		if errors.Is(err, storage.ErrVersionConflict) {
			a.log.With(sl.User(userId), slog.Int("attempt", attempt)).Debug("session changed concurrently, retrying")
			continue
		}
		if err != nil {
			return core.Reply{}, nil, fmt.Errorf("saving session: %w", err)
		}

		a.observer.MessageHandled(session.State, time.Since(started))
		a.log.With(
			sl.User(userId),
			slog.String("state", string(session.State)),
			slog.Int("turns", len(session.Messages)),
		).Debug("message handled")
		return reply, session.Messages, nil
	}
	return core.Reply{}, nil, fmt.Errorf("saving session: %w", err)
}

func (a *Assistant) GetHistory(ctx context.Context, userId string) ([]storage.Turn, error) {
	session, err := a.sessions.Peek(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		return []storage.Turn{}, nil
	}
	return session.Messages, nil
}

// ResetSession replaces the transcript with the welcome turn, creating the
// session when the user has none yet.
func (a *Assistant) ResetSession(ctx context.Context, userId string) ([]storage.Turn, error) {
	unlock := a.sessions.Lock(userId)
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		var session *storage.DialogSession
		session, err = a.sessions.Load(ctx, userId)
		if err != nil {
			return nil, fmt.Errorf("loading session: %w", err)
		}

		welcome := greeting()
		if isWelcomeOnly(session, welcome) {
			return session.Messages, nil
		}
		session.Messages = []storage.Turn{}
		session.State = storage.StateIdle
		session.Metadata = map[string]any{}
		a.appendTurn(session, storage.SenderBot, welcome.Text, welcome.Options)

		err = a.sessions.Save(ctx, session)
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("saving session: %w", err)
		}

		a.observer.SessionReset()
		a.log.With(sl.User(userId)).Info("session reset")
		return session.Messages, nil
	}
	return nil, fmt.Errorf("saving session: %w", err)
}

func (a *Assistant) Close() error {
	return errors.Join(a.sessions.Close(), a.catalog.Close(), a.orders.Close())
}

// appendTurn stamps turns with strictly increasing millisecond timestamps,
// the resolution a BSON date keeps.
func (a *Assistant) appendTurn(session *storage.DialogSession, sender, text string, options []string) {
	ts := a.now().UTC().Truncate(time.Millisecond)
	if n := len(session.Messages); n > 0 {
		last := session.Messages[n-1].Timestamp
		if !ts.After(last) {
			ts = last.Add(time.Millisecond)
		}
	}
	session.Messages = append(session.Messages, storage.Turn{
		Sender:    sender,
		Text:      text,
		Options:   options,
		Timestamp: ts,
	})
}

// isWelcomeOnly reports whether a stored session is already in its reset
// form, so resetting again leaves it untouched.
func isWelcomeOnly(session *storage.DialogSession, welcome core.Reply) bool {
	if session.Version == 0 || session.State != storage.StateIdle || len(session.Metadata) > 0 || len(session.Messages) != 1 {
		return false
	}
	t := session.Messages[0]
	return t.Sender == storage.SenderBot && t.Text == welcome.Text && slices.Equal(t.Options, welcome.Options)
}

func (a *Assistant) applyRetention(session *storage.DialogSession) {
	if a.maxTurns <= 0 || len(session.Messages) <= a.maxTurns {
		return
	}
	kept := make([]storage.Turn, a.maxTurns)
	copy(kept, session.Messages[len(session.Messages)-a.maxTurns:])
	session.Messages = kept
}
