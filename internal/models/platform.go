package models

import (
	"strings"
	"time"
)

// PlatformType categorizes the kind of third-party service a platform
// connection points at.
type PlatformType string

const (
	PlatformTypeAffiliate PlatformType = "affiliate"
	PlatformTypeFreelance PlatformType = "freelance"
)

// PlatformStatus represents the connection state of a platform.
type PlatformStatus string

const (
	PlatformStatusConnected    PlatformStatus = "connected"
	PlatformStatusError        PlatformStatus = "error"
	PlatformStatusDisconnected PlatformStatus = "disconnected"
)

// HealthStatus is the result of the most recent health check.
type HealthStatus string

const (
	HealthStatusHealthy HealthStatus = "healthy"
	HealthStatusWarning HealthStatus = "warning"
	HealthStatusError   HealthStatus = "error"
)

// Platform is a connected third-party account (Freelancer, Amazon Associates,
// Etsy, ClickBank). Everything else in the system hangs off one of these.
type Platform struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Type         PlatformType           `json:"type"`
	APIKey       string                 `json:"api_key,omitempty"`
	APISecret    string                 `json:"api_secret,omitempty"`
	Status       PlatformStatus         `json:"status"`
	HealthStatus HealthStatus           `json:"health_status"`
	LastSynced   *time.Time             `json:"last_synced,omitempty"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// IsConnected reports whether operations that call out to the underlying
// third-party API may proceed. Anything else must be refused.
func (p *Platform) IsConnected() bool {
	return p.Status == PlatformStatusConnected
}

// NameEquals compares platform names case-insensitively; names are unique
// per external service regardless of casing.
func (p *Platform) NameEquals(name string) bool {
	return strings.EqualFold(p.Name, name)
}

// PlatformUpdate carries the mutable subset of a platform. Nil fields are
// left untouched by an update.
type PlatformUpdate struct {
	Name         *string                `json:"name,omitempty"`
	Type         *PlatformType          `json:"type,omitempty"`
	APIKey       *string                `json:"api_key,omitempty"`
	APISecret    *string                `json:"api_secret,omitempty"`
	Status       *PlatformStatus        `json:"status,omitempty"`
	HealthStatus *HealthStatus          `json:"health_status,omitempty"`
	LastSynced   *time.Time             `json:"last_synced,omitempty"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
}
