package model

import "time"

// GateEvent is one immutable crossing recorded by a gate officer.
type GateEvent struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PassID     string    `gorm:"index;size:26;not null" json:"passId"`
	Direction  Direction `gorm:"size:8;not null" json:"direction"`
	OfficerID  string    `gorm:"size:128;not null" json:"officerId"`
	OccurredAt time.Time `gorm:"index;not null" json:"occurredAt"`
}
