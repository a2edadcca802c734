package models

import "time"

// ActivityType classifies an audit-trail entry.
type ActivityType string

const (
	ActivityTypeSystem  ActivityType = "system"
	ActivityTypeSuccess ActivityType = "success"
	ActivityTypeError   ActivityType = "error"
	ActivityTypeWarning ActivityType = "warning"
	ActivityTypeRevenue ActivityType = "revenue"
	ActivityTypePayment ActivityType = "payment"
)

// Activity is an immutable audit-trail entry. Entries are written once and
// only ever read back newest-first; there is no update or delete surface.
type Activity struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Type        ActivityType           `json:"type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	WorkflowID  string                 `json:"workflow_id,omitempty"`
	PlatformID  string                 `json:"platform_id,omitempty"`
	TaskID      string                 `json:"task_id,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}
