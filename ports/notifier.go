package ports

import (
	"context"
)

// ChangePublisher receives store-change notifications. Stores call it after
// a successful append; delivery is fire-and-forget and never blocks the
// submission path.
type ChangePublisher interface {
	RowAppended(row int)
}

// Notifier renders and delivers a notification for the most recent
// submission. Failures are isolated to the notification path.
type Notifier interface {
	NotifyLastRow(ctx context.Context) error
}
