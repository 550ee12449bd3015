package storage

import (
	"context"
	"sync"
	"time"
)

type MemoryStorage struct {
	sessions map[string]*DialogSession
	mutex    sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*DialogSession),
	}
}

func (m *MemoryStorage) GetSession(_ context.Context, userId string) (*DialogSession, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if session, ok := m.sessions[userId]; ok {
		// copy so callers never mutate stored state
		return session.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveSession(_ context.Context, session *DialogSession) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var stored int64
	if existing, ok := m.sessions[session.UserId]; ok {
		stored = existing.Version
	} else if session.Version != 0 {
		return ErrVersionConflict
	}
	if stored != session.Version {
		return ErrVersionConflict
	}

	session.Version++
	session.UpdatedAt = time.Now()
	m.sessions[session.UserId] = session.Clone()
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
