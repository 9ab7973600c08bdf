package model

import "time"

// PushSubscription holds a browser push subscription for SLA alerts. An empty
// Workshop receives alerts for every workshop.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	Workshop  Workshop  `gorm:"index;size:64" json:"workshop,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
