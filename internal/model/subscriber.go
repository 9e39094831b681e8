package model

import "time"

const (
	ServicePPP    = "ppp"
	ServiceStatic = "static"
)

const (
	LabelOnline             = "ONLINE"
	LabelOffline            = "OFFLINE"
	LabelOfflineRouterDown  = "OFFLINE (Router Unreachable)"
	LabelOfflineNoSession   = "OFFLINE (No Active Session)"
	LabelOfflineUnreachable = "OFFLINE (Unreachable)"
)

// Subscriber is one billed account on a router. PPP subscribers are checked
// through the active-session table, static ones by pinging their address.
type Subscriber struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	RouterID      string     `json:"router_id"`
	Username      string     `json:"username"`
	Service       string     `json:"service"`
	IP            string     `json:"ip"`
	StationID     *string    `json:"station_id,omitempty"`
	Building      string     `json:"building,omitempty"`
	ExpiryDate    time.Time  `json:"expiry_date"`
	Online        bool       `json:"online"`
	StatusLabel   string     `json:"status_label"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Expired reports whether the subscription lapsed before the given instant.
func (s Subscriber) Expired(at time.Time) bool {
	return !s.ExpiryDate.IsZero() && s.ExpiryDate.Before(at)
}

// SubscriberDowntimeLog mirrors DowntimeLog for subscriber sessions.
type SubscriberDowntimeLog struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	SubscriberID    string     `json:"subscriber_id"`
	DownStartTime   time.Time  `json:"down_start_time"`
	DownEndTime     *time.Time `json:"down_end_time,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// Open reports whether the outage is still in progress.
func (l SubscriberDowntimeLog) Open() bool {
	return l.DownEndTime == nil
}
