package locations

import (
	"context"
	"time"
)

// ChangeType names the event published after a successful write.
type ChangeType string

const (
	ChangeCreated   ChangeType = "localizacao.created"
	ChangeUpdated   ChangeType = "localizacao.updated"
	ChangeCancelled ChangeType = "localizacao.cancelled"
	ChangeDeleted   ChangeType = "localizacao.deleted"
)

// Change describes one write. For deletions only Location.ID is set.
type Change struct {
	Type       ChangeType `json:"type"`
	Location   Location   `json:"localizacao"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Notifier publishes changes to interested parties. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Change) error { return nil }
