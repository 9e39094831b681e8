package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

// TenantSource resolves tenant alert configuration (admin emails).
type TenantSource interface {
	TenantByID(ctx context.Context, tenantID string) (model.Tenant, error)
}

// Subject is one affected entity named in a consolidated alert.
type Subject struct {
	Name string
	IP   string
}

// Service builds and dispatches consolidated alerts. Alerting is best-effort
// throughout: a partial fan-out failure never fails the primary operation.
type Service struct {
	notifier Notifier
	tenants  TenantSource
	logger   *slog.Logger
}

func NewService(notifier Notifier, tenants TenantSource, logger *slog.Logger) *Service {
	return &Service{notifier: notifier, tenants: tenants, logger: logger}
}

// SendConsolidated batches a group of simultaneous status changes into one
// notification. Empty input and missing tenant are logged no-ops.
func (s *Service) SendConsolidated(ctx context.Context, subjects []Subject, statusLabel, tenantID, entityType string) {
	if len(subjects) == 0 {
		s.logger.Warn("consolidated alert skipped; no affected entities", "tenant", tenantID, "status", statusLabel)
		return
	}
	if strings.TrimSpace(tenantID) == "" {
		s.logger.Error("consolidated alert dropped; missing tenant", "status", statusLabel, "entities", len(subjects))
		return
	}

	notification := model.Notification{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Message:     ConsolidatedMessage(subjects, statusLabel, entityType),
		EntityType:  entityType,
		StatusLabel: statusLabel,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.notifier.Persist(ctx, notification); err != nil {
		s.logger.Error("notification persist failed", "tenant", tenantID, "err", err)
	}
	s.notifier.Broadcast(tenantID, "notification", notification)

	tenant, err := s.tenants.TenantByID(ctx, tenantID)
	if err != nil {
		s.logger.Warn("alert mail skipped; tenant lookup failed", "tenant", tenantID, "err", err)
		return
	}
	if len(tenant.AdminEmails) == 0 {
		return
	}
	subject := fmt.Sprintf("[%s] %s status change", tenant.Name, entityType)
	s.notifier.EmailBatch(ctx, tenant.AdminEmails, subject, notification.Message)
}

// ConsolidatedMessage renders the singular or plural alert text.
func ConsolidatedMessage(subjects []Subject, statusLabel, entityType string) string {
	status := strings.ToLower(statusLabel)
	if len(subjects) == 1 {
		only := subjects[0]
		if only.IP != "" {
			return fmt.Sprintf("%s %s (%s) is now %s", entityType, only.Name, only.IP, status)
		}
		return fmt.Sprintf("%s %s is now %s", entityType, only.Name, status)
	}

	names := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		names = append(names, subject.Name)
	}
	return fmt.Sprintf("Multiple %s (%s) are now %s", entityType, strings.Join(names, ", "), status)
}

// DeviceSubjects adapts devices for alerting.
func DeviceSubjects(devices []model.Device) []Subject {
	out := make([]Subject, 0, len(devices))
	for _, device := range devices {
		out = append(out, Subject{Name: device.Name, IP: device.IP})
	}
	return out
}

// SubscriberSubjects adapts subscribers for alerting.
func SubscriberSubjects(subs []model.Subscriber) []Subject {
	out := make([]Subject, 0, len(subs))
	for _, sub := range subs {
		out = append(out, Subject{Name: sub.Username, IP: sub.IP})
	}
	return out
}
