package core

import (
	"context"
	"errors"

	"Kirana/storage"
)

// ErrEmptyMessage is returned for a message that is empty after trimming.
var ErrEmptyMessage = errors.New("message is empty")

// Reply is the bot side of one exchange.
type Reply struct {
	Text    string
	Options []string
}

type ChatService interface {
	HandleMessage(ctx context.Context, userId, text string) (Reply, []storage.Turn, error)
	GetHistory(ctx context.Context, userId string) ([]storage.Turn, error)
	ResetSession(ctx context.Context, userId string) ([]storage.Turn, error)
}
