package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransactionRecord is one row of an imported bank statement. It is created
// by the statement importer and only mutated by reconciliation or a balance
// backfill.
type BankTransactionRecord struct {
	ID             uint                  `gorm:"primaryKey"`
	DedupHash      string                `gorm:"size:64;uniqueIndex;not null"`
	Date           time.Time             `gorm:"index;not null"`
	Amount         decimal.Decimal       `gorm:"type:decimal(20,2);not null"`
	Balance        decimal.NullDecimal   `gorm:"type:decimal(20,2)"`
	Description    string                `gorm:"size:512"`
	Type           string                `gorm:"size:32;index"`
	Status         BankTransactionStatus `gorm:"size:16;index;not null"`
	PayerNameGuess string                `gorm:"size:128"`
	CheckNumber    string                `gorm:"size:32"`
	RawPayload     string                `gorm:"type:text"`
	MemberID       *uint                 `gorm:"index"`
	MatchedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the table name independently of the struct name.
func (BankTransactionRecord) TableName() string { return "bank_transactions" }

// IsMatched reports whether the record has been reconciled.
func (b BankTransactionRecord) IsMatched() bool { return b.Status == StatusMatched }
