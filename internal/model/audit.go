package model

// AuditAction classifies an activity trail entry.
type AuditAction string

const (
	AuditCreate     AuditAction = "CREATE"
	AuditUpdate     AuditAction = "UPDATE"
	AuditDelete     AuditAction = "DELETE"
	AuditLogin      AuditAction = "LOGIN"
	AuditLogout     AuditAction = "LOGOUT"
	AuditNavigation AuditAction = "NAVIGATION"
)

// AuditEntry is one line of the activity trail.
type AuditEntry struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	Timestamp int64       `gorm:"column:occurred_at;index;not null" json:"timestamp"`
	User      string      `gorm:"column:actor;size:128;not null" json:"user"`
	Action    AuditAction `gorm:"size:16;not null" json:"action"`
	Details   string      `gorm:"type:text" json:"details"`
}
