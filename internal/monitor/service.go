package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yahya-ubnt/IMSys-sub002/internal/alert"
	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

// Alerter receives consolidated status-change notifications.
type Alerter interface {
	SendConsolidated(ctx context.Context, subjects []alert.Subject, statusLabel, tenantID, entityType string)
}

// Service drives the periodic sweeps and the status/downtime lifecycle.
type Service struct {
	repo    *storage.Repository
	checker *Checker
	alerts  Alerter
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo *storage.Repository, checker *Checker, alerts Alerter, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		checker: checker,
		alerts:  alerts,
		logger:  logger,
		now:     time.Now,
	}
}

// ApplyDeviceStatus records a probe outcome: persists the new status and
// keeps the downtime log paired with the transition. A flip to DOWN opens a
// log, a flip back to UP closes the newest open one. Repeated results in the
// same state only refresh the checked-at timestamp, so a multi-sweep outage
// still yields exactly one log. Returns the updated device and whether the
// status flipped.
func (s *Service) ApplyDeviceStatus(ctx context.Context, device model.Device, reachable bool, label string) (model.Device, bool, error) {
	now := s.now().UTC()
	status := model.StatusDown
	if reachable {
		status = model.StatusUp
	}
	changed := device.Status != status

	if changed {
		if reachable {
			if _, err := s.repo.CloseDeviceDowntime(ctx, device.TenantID, device.ID, now); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return device, false, err
			}
		} else {
			if _, _, err := s.repo.OpenDeviceDowntime(ctx, device.TenantID, device.ID, now); err != nil {
				return device, false, err
			}
		}
	}

	if err := s.repo.UpdateDeviceStatus(ctx, device.TenantID, device.ID, status, label, now); err != nil {
		return device, false, err
	}
	device.Status = status
	device.StatusLabel = label
	device.LastCheckedAt = &now
	return device, changed, nil
}

// ApplySubscriberStatus is the subscriber counterpart of ApplyDeviceStatus.
func (s *Service) ApplySubscriberStatus(ctx context.Context, sub model.Subscriber, online bool, label string) (model.Subscriber, bool, error) {
	now := s.now().UTC()
	changed := sub.Online != online

	if changed {
		if online {
			if _, err := s.repo.CloseSubscriberDowntime(ctx, sub.TenantID, sub.ID, now); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return sub, false, err
			}
		} else {
			if _, _, err := s.repo.OpenSubscriberDowntime(ctx, sub.TenantID, sub.ID, now); err != nil {
				return sub, false, err
			}
		}
	}

	if err := s.repo.UpdateSubscriberStatus(ctx, sub.TenantID, sub.ID, online, label, now); err != nil {
		return sub, false, err
	}
	sub.Online = online
	sub.StatusLabel = label
	sub.LastCheckedAt = &now
	return sub, changed, nil
}

type transitionKey struct {
	entityType string
	label      string
}

// SweepDevices probes every device of every tenant through the tenant's core
// router and sends one consolidated alert per device type and status label.
func (s *Service) SweepDevices(ctx context.Context) error {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		s.sweepTenantDevices(ctx, tenant.ID)
	}
	return nil
}

func (s *Service) sweepTenantDevices(ctx context.Context, tenantID string) {
	core, err := s.repo.CoreRouter(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("core router lookup failed", "tenant", tenantID, "err", err)
		}
		return
	}
	devices, err := s.repo.ListDevices(ctx, tenantID, storage.DeviceFilter{})
	if err != nil {
		s.logger.Error("device list failed", "tenant", tenantID, "err", err)
		return
	}

	flipped := map[transitionKey][]model.Device{}
	for _, device := range devices {
		reachable, label := s.checker.ProbeDevice(ctx, core, device.IP)
		updated, changed, err := s.ApplyDeviceStatus(ctx, device, reachable, label)
		if err != nil {
			s.logger.Error("device status update failed", "device", device.ID, "err", err)
			continue
		}
		if changed {
			key := transitionKey{entityType: updated.DeviceType, label: label}
			flipped[key] = append(flipped[key], updated)
		}
	}
	for key, group := range flipped {
		s.alerts.SendConsolidated(ctx, alert.DeviceSubjects(group), key.label, tenantID, key.entityType)
	}
}

// SweepSubscribers probes every subscriber grouped by their router, one
// goroutine per router. Alerts are consolidated per router batch.
func (s *Service) SweepSubscribers(ctx context.Context) error {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		s.sweepTenantSubscribers(ctx, tenant.ID)
	}
	return nil
}

func (s *Service) sweepTenantSubscribers(ctx context.Context, tenantID string) {
	routers, err := s.repo.ListRouters(ctx, tenantID)
	if err != nil {
		s.logger.Error("router list failed", "tenant", tenantID, "err", err)
		return
	}

	var wg sync.WaitGroup
	for _, router := range routers {
		wg.Add(1)
		go func(router model.Router) {
			defer wg.Done()
			s.sweepRouterSubscribers(ctx, tenantID, router)
		}(router)
	}
	wg.Wait()
}

func (s *Service) sweepRouterSubscribers(ctx context.Context, tenantID string, router model.Router) {
	subs, err := s.repo.ListSubscribers(ctx, tenantID, storage.SubscriberFilter{RouterID: router.ID})
	if err != nil {
		s.logger.Error("subscriber list failed", "router", router.ID, "err", err)
		return
	}

	flipped := map[string][]model.Subscriber{}
	for _, sub := range subs {
		online, label := s.checker.SubscriberOnline(ctx, router, sub)
		updated, changed, err := s.ApplySubscriberStatus(ctx, sub, online, label)
		if err != nil {
			s.logger.Error("subscriber status update failed", "subscriber", sub.ID, "err", err)
			continue
		}
		if changed {
			flipped[label] = append(flipped[label], updated)
		}
	}
	for label, group := range flipped {
		s.alerts.SendConsolidated(ctx, alert.SubscriberSubjects(group), label, tenantID, "User")
	}
}

// SweepRouters checks every router's own reachability and alerts on flips.
func (s *Service) SweepRouters(ctx context.Context) error {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		routers, err := s.repo.ListRouters(ctx, tenant.ID)
		if err != nil {
			s.logger.Error("router list failed", "tenant", tenant.ID, "err", err)
			continue
		}
		var wentDown, wentUp []alert.Subject
		for _, router := range routers {
			online := s.checker.RouterReachable(ctx, router)
			if err := s.repo.UpdateRouterStatus(ctx, tenant.ID, router.ID, online, s.now().UTC()); err != nil {
				s.logger.Error("router status update failed", "router", router.ID, "err", err)
				continue
			}
			if online == router.Online {
				continue
			}
			subject := alert.Subject{Name: router.Name, IP: router.Host}
			if online {
				wentUp = append(wentUp, subject)
			} else {
				wentDown = append(wentDown, subject)
			}
		}
		if len(wentDown) > 0 {
			s.alerts.SendConsolidated(ctx, wentDown, model.LabelDown, tenant.ID, "Router")
		}
		if len(wentUp) > 0 {
			s.alerts.SendConsolidated(ctx, wentUp, model.LabelUp, tenant.ID, "Router")
		}
	}
	return nil
}
