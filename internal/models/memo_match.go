package models

import "time"

// MemoMatch is a learned mapping from a normalized payment memo to a member.
type MemoMatch struct {
	ID        uint   `gorm:"primaryKey"`
	MemberID  uint   `gorm:"index;not null"`
	Memo      string `gorm:"size:255;uniqueIndex;not null"`
	FirstName string `gorm:"size:64"`
	LastName  string `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name independently of the struct name.
func (MemoMatch) TableName() string { return "memo_matches" }
