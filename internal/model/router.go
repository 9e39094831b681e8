package model

import "time"

// Router is a tenant's MikroTik gateway. The password is stored encrypted
// and never serialized.
type Router struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Name          string     `json:"name"`
	Host          string     `json:"host"`
	Username      string     `json:"username"`
	PasswordEnc   string     `json:"-"`
	IsCore        bool       `json:"is_core"`
	Online        bool       `json:"online"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Tenant owns routers, devices and subscribers. AdminEmails receive
// consolidated alert mail when configured.
type Tenant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AdminEmails []string  `json:"admin_emails"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification is one persisted consolidated alert.
type Notification struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Message     string    `json:"message"`
	EntityType  string    `json:"entity_type"`
	StatusLabel string    `json:"status_label"`
	CreatedAt   time.Time `json:"created_at"`
}
