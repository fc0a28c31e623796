package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is an append-only general-ledger posting. Income entries mirror a
// FinancialTransaction. Expenses either stand alone with a nil TransactionID or
// reverse an outdated income entry of their transaction.
type LedgerEntry struct {
	ID            uint            `gorm:"primaryKey"`
	TransactionID *uint           `gorm:"index"`
	EntryDate     time.Time       `gorm:"index;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Type          EntryType       `gorm:"size:16;not null"`
	GLCode        string          `gorm:"size:16;index;not null"`
	Memo          string          `gorm:"size:255"`
	SourceSystem  SourceSystem    `gorm:"size:16;not null"`
	MemberID      *uint           `gorm:"index"`
	CollectorID   uint            `gorm:"not null"`
	CreatedAt     time.Time
}

// TableName pins the table name independently of the struct name.
func (LedgerEntry) TableName() string { return "ledger_entries" }
