// Package alert consolidates status-change events into single notifications
// and fans them out to the store, the realtime feed and admin mail.
package alert

import (
	"context"
	"log/slog"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

// Notifier is the fan-out capability behind consolidated alerts. Broadcast
// and EmailBatch are best-effort: implementations log their own failures and
// never propagate them.
type Notifier interface {
	Persist(ctx context.Context, n model.Notification) error
	Broadcast(tenantID, event string, payload any)
	EmailBatch(ctx context.Context, to []string, subject, body string)
}

// Broadcaster delivers an event to every connection in a tenant room.
type Broadcaster interface {
	Broadcast(tenantID, event string, payload any)
}

// Mailer sends one message to a recipient list, one mail per address.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// StoreNotifier is the production Notifier: sqlite persistence, websocket
// hub broadcast, SMTP mail.
type StoreNotifier struct {
	repo   *storage.Repository
	hub    Broadcaster
	mailer Mailer
	logger *slog.Logger
}

func NewStoreNotifier(repo *storage.Repository, hub Broadcaster, mailer Mailer, logger *slog.Logger) *StoreNotifier {
	return &StoreNotifier{repo: repo, hub: hub, mailer: mailer, logger: logger}
}

func (n *StoreNotifier) Persist(ctx context.Context, notification model.Notification) error {
	return n.repo.InsertNotification(ctx, notification)
}

func (n *StoreNotifier) Broadcast(tenantID, event string, payload any) {
	if n.hub == nil {
		return
	}
	n.hub.Broadcast(tenantID, event, payload)
}

func (n *StoreNotifier) EmailBatch(ctx context.Context, to []string, subject, body string) {
	if n.mailer == nil || len(to) == 0 {
		return
	}
	if err := n.mailer.Send(ctx, to, subject, body); err != nil {
		n.logger.Error("alert mail failed", "recipients", len(to), "err", err)
	}
}
