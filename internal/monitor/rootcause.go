package monitor

import (
	"context"
	"errors"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

// WalkResult is the outcome of a root-cause walk. Path lists the unreachable
// chain from the device that was reported down up to the root cause.
type WalkResult struct {
	RootCause model.Device   `json:"root_cause"`
	Path      []model.Device `json:"path"`
}

// VerifyRootCause walks the parent chain of a down device through the
// tenant's core router. Each unreachable parent is marked DOWN (opening its
// downtime log) and the walk continues; the first reachable parent, a
// missing parent reference or the top of the tree ends it. The last
// unreachable node is the root cause.
func (s *Service) VerifyRootCause(ctx context.Context, tenantID, deviceID string) (*WalkResult, error) {
	device, err := s.repo.DeviceByID(ctx, tenantID, deviceID)
	if err != nil {
		return nil, err
	}
	core, err := s.repo.CoreRouter(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	path := []model.Device{device}
	cursor := device
	// Parent chains are acyclic by construction; the visited set stops a
	// corrupted chain from looping forever.
	visited := map[string]bool{device.ID: true}

	for cursor.ParentID != nil {
		parentID := *cursor.ParentID
		if visited[parentID] {
			s.logger.Warn("parent chain loops, stopping walk", "device", cursor.ID, "parent", parentID)
			break
		}
		parent, err := s.repo.DeviceByID(ctx, tenantID, parentID)
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("parent reference points at missing device", "device", cursor.ID, "parent", parentID)
			break
		}
		if err != nil {
			return nil, err
		}
		if s.checker.PingWithRetry(ctx, core, parent.IP) {
			break
		}
		updated, _, err := s.ApplyDeviceStatus(ctx, parent, false, model.LabelDown)
		if err != nil {
			return nil, err
		}
		path = append(path, updated)
		visited[updated.ID] = true
		cursor = updated
	}

	return &WalkResult{RootCause: cursor, Path: path}, nil
}
