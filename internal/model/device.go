package model

import "time"

const (
	DeviceTypeAccess  = "Access"
	DeviceTypeStation = "Station"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"

	// Status labels carry the human-readable reason next to the bare
	// UP/DOWN state. Log shape is identical either way.
	LabelUp                = "UP"
	LabelDown              = "DOWN"
	LabelRouterUnreachable = "DOWN (Router Unreachable)"
)

// Device is one monitored CPE or infrastructure node. ParentID forms an
// acyclic dependency tree used by the root-cause walk.
type Device struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Name          string     `json:"name"`
	MAC           string     `json:"mac"`
	IP            string     `json:"ip"`
	DeviceType    string     `json:"device_type"`
	Status        string     `json:"status"`
	StatusLabel   string     `json:"status_label"`
	ParentID      *string    `json:"parent_id,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DowntimeLog is one outage interval for a device. An open log has no
// DownEndTime; at most one open log exists per device.
type DowntimeLog struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	DeviceID        string     `json:"device_id"`
	DownStartTime   time.Time  `json:"down_start_time"`
	DownEndTime     *time.Time `json:"down_end_time,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// Open reports whether the outage is still in progress.
func (l DowntimeLog) Open() bool {
	return l.DownEndTime == nil
}
