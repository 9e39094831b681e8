// Package diagnostic runs the ordered health pipeline for a subscriber:
// billing, router, session, hardware tree and neighbor checks, streamed step
// by step and persisted as an immutable run record.
package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/monitor"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

const (
	StepBilling  = "Billing Status"
	StepRouter   = "Router Connectivity"
	StepSession  = "Active Session"
	StepHardware = "Hardware Tree"
	StepNeighbor = "Neighbor Analysis"
)

// Prober answers the reachability questions the pipeline asks. Satisfied by
// monitor.Checker.
type Prober interface {
	RouterReachable(ctx context.Context, router model.Router) bool
	SubscriberOnline(ctx context.Context, router model.Router, sub model.Subscriber) (bool, string)
	ProbeDevice(ctx context.Context, router model.Router, address string) (bool, string)
}

// Walker locates the root cause for a down device. Satisfied by
// monitor.Service.
type Walker interface {
	VerifyRootCause(ctx context.Context, tenantID, deviceID string) (*monitor.WalkResult, error)
}

// Sink receives each completed step as the run progresses.
type Sink interface {
	Step(step model.DiagnosticStep)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(model.DiagnosticStep)

func (f SinkFunc) Step(step model.DiagnosticStep) { f(step) }

type Service struct {
	repo   *storage.Repository
	prober Prober
	walker Walker
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo *storage.Repository, prober Prober, walker Walker, logger *slog.Logger) *Service {
	return &Service{repo: repo, prober: prober, walker: walker, logger: logger, now: time.Now}
}

// Run executes the full pipeline for one subscriber. Every step is pushed to
// the sink as soon as it finishes; an early Failure never stops the later
// checks. The completed run is persisted best-effort and returned.
func (s *Service) Run(ctx context.Context, tenantID, subscriberID string, sink Sink) (model.DiagnosticLog, error) {
	sub, err := s.repo.SubscriberByID(ctx, tenantID, subscriberID)
	if err != nil {
		return model.DiagnosticLog{}, err
	}
	router, err := s.repo.RouterByID(ctx, tenantID, sub.RouterID)
	if err != nil {
		return model.DiagnosticLog{}, err
	}

	var steps []model.DiagnosticStep
	emit := func(step model.DiagnosticStep) {
		steps = append(steps, step)
		if sink != nil {
			sink.Step(step)
		}
	}

	now := s.now().UTC()
	emit(s.billingStep(sub, now))

	routerUp := s.prober.RouterReachable(ctx, router)
	if routerUp {
		emit(model.DiagnosticStep{StepName: StepRouter, Status: model.StepSuccess,
			Summary: fmt.Sprintf("Router %s is reachable", router.Name)})
	} else {
		emit(model.DiagnosticStep{StepName: StepRouter, Status: model.StepFailure,
			Summary: fmt.Sprintf("Router %s is unreachable", router.Name)})
	}

	emit(s.sessionStep(ctx, router, sub, routerUp))
	emit(s.hardwareStep(ctx, tenantID, sub))
	emit(s.neighborStep(ctx, tenantID, sub))

	run := model.DiagnosticLog{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		SubscriberID: sub.ID,
		Steps:        steps,
		Status:       worstStatus(steps),
		Conclusion:   conclusionFor(steps),
		CreatedAt:    now,
	}
	if err := s.repo.InsertDiagnosticLog(ctx, run); err != nil {
		s.logger.Error("diagnostic run persist failed", "subscriber", sub.ID, "err", err)
	}
	return run, nil
}

// RunAndWait executes the pipeline without streaming and returns the
// buffered run record.
func (s *Service) RunAndWait(ctx context.Context, tenantID, subscriberID string) (model.DiagnosticLog, error) {
	return s.Run(ctx, tenantID, subscriberID, nil)
}

func (s *Service) billingStep(sub model.Subscriber, now time.Time) model.DiagnosticStep {
	expiry := sub.ExpiryDate.Format("2006-01-02")
	if sub.Expired(now) {
		return model.DiagnosticStep{StepName: StepBilling, Status: model.StepFailure,
			Summary: fmt.Sprintf("Subscription expired on %s", expiry)}
	}
	return model.DiagnosticStep{StepName: StepBilling, Status: model.StepSuccess,
		Summary: fmt.Sprintf("Subscription active until %s", expiry)}
}

func (s *Service) sessionStep(ctx context.Context, router model.Router, sub model.Subscriber, routerUp bool) model.DiagnosticStep {
	if !routerUp {
		return model.DiagnosticStep{StepName: StepSession, Status: model.StepWarning,
			Summary: "N/A (router unreachable)"}
	}
	online, label := s.prober.SubscriberOnline(ctx, router, sub)
	if online {
		return model.DiagnosticStep{StepName: StepSession, Status: model.StepSuccess,
			Summary: fmt.Sprintf("Subscriber %s is online", sub.Username)}
	}
	return model.DiagnosticStep{StepName: StepSession, Status: model.StepFailure,
		Summary: fmt.Sprintf("Subscriber %s is offline", sub.Username), Details: label}
}

func (s *Service) hardwareStep(ctx context.Context, tenantID string, sub model.Subscriber) model.DiagnosticStep {
	if sub.StationID == nil {
		return model.DiagnosticStep{StepName: StepHardware, Status: model.StepWarning,
			Summary: "N/A (no station assigned)"}
	}
	station, err := s.repo.DeviceByID(ctx, tenantID, *sub.StationID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.DiagnosticStep{StepName: StepHardware, Status: model.StepWarning,
			Summary: "N/A (assigned station no longer exists)"}
	}
	if err != nil {
		return model.DiagnosticStep{StepName: StepHardware, Status: model.StepWarning,
			Summary: "Station lookup failed", Details: err.Error()}
	}
	core, err := s.repo.CoreRouter(ctx, tenantID)
	if err != nil {
		return model.DiagnosticStep{StepName: StepHardware, Status: model.StepWarning,
			Summary: "N/A (no core router configured)"}
	}
	if up, _ := s.prober.ProbeDevice(ctx, core, station.IP); up {
		return model.DiagnosticStep{StepName: StepHardware, Status: model.StepSuccess,
			Summary: fmt.Sprintf("Station %s is reachable", station.Name)}
	}
	result, err := s.walker.VerifyRootCause(ctx, tenantID, station.ID)
	if err != nil {
		return model.DiagnosticStep{StepName: StepHardware, Status: model.StepFailure,
			Summary: fmt.Sprintf("Station %s is down", station.Name), Details: err.Error()}
	}
	names := make([]string, 0, len(result.Path))
	for _, d := range result.Path {
		names = append(names, d.Name)
	}
	return model.DiagnosticStep{
		StepName: StepHardware,
		Status:   model.StepFailure,
		Summary:  fmt.Sprintf("Station %s is down, root cause: %s (%s)", station.Name, result.RootCause.Name, result.RootCause.IP),
		Details:  strings.Join(names, " -> "),
	}
}

func (s *Service) neighborStep(ctx context.Context, tenantID string, sub model.Subscriber) model.DiagnosticStep {
	if sub.StationID == nil && sub.Building == "" {
		return model.DiagnosticStep{StepName: StepNeighbor, Status: model.StepWarning,
			Summary: "N/A (no station or building to compare against)"}
	}
	neighbors, err := s.repo.Neighbors(ctx, tenantID, sub.StationID, sub.Building, sub.ID)
	if err != nil {
		return model.DiagnosticStep{StepName: StepNeighbor, Status: model.StepWarning,
			Summary: "Neighbor lookup failed", Details: err.Error()}
	}
	if len(neighbors) == 0 {
		return model.DiagnosticStep{StepName: StepNeighbor, Status: model.StepSuccess,
			Summary: "No neighbors share this station or building"}
	}
	offline := 0
	for _, n := range neighbors {
		if !n.Online {
			offline++
		}
	}
	summary := fmt.Sprintf("%d of %d neighbors offline", offline, len(neighbors))
	switch {
	case offline == len(neighbors):
		return model.DiagnosticStep{StepName: StepNeighbor, Status: model.StepFailure,
			Summary: summary, Details: "every neighbor is down, likely a shared infrastructure outage"}
	case offline > 0:
		return model.DiagnosticStep{StepName: StepNeighbor, Status: model.StepWarning, Summary: summary}
	default:
		return model.DiagnosticStep{StepName: StepNeighbor, Status: model.StepSuccess,
			Summary: summary, Details: "issue appears isolated to this subscriber"}
	}
}

func worstStatus(steps []model.DiagnosticStep) model.StepStatus {
	worst := model.StepSuccess
	for _, step := range steps {
		switch step.Status {
		case model.StepFailure:
			return model.StepFailure
		case model.StepWarning:
			worst = model.StepWarning
		}
	}
	return worst
}

func conclusionFor(steps []model.DiagnosticStep) string {
	for _, step := range steps {
		if step.Status == model.StepFailure {
			return step.Summary
		}
	}
	for _, step := range steps {
		if step.Status == model.StepWarning {
			return "Completed with warnings"
		}
	}
	return "All checks passed"
}
