package provider

import (
	"time"
)

type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusInactive    Status = "INACTIVE"
	StatusError       Status = "ERROR"
	StatusRateLimited Status = "RATE_LIMITED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusError, StatusRateLimited:
		return true
	}
	return false
}

// Record is one admin-configured answer provider. Only ACTIVE records
// are dispatched to; priority orders the snapshot (lower first) but
// never blocks other providers.
type Record struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	Kind      string    `gorm:"type:varchar(32);not null" json:"kind"`
	Model     string    `gorm:"type:varchar(64)" json:"model"`
	Status    Status    `gorm:"type:varchar(16);index;not null" json:"status"`
	Priority  int       `gorm:"not null;default:100" json:"priority"`
	TimeoutMs int       `gorm:"not null;default:30000" json:"timeout_ms"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Record) TableName() string { return "providers" }

func (r Record) Timeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}
