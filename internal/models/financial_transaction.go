package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialTransaction is a canonical posted money movement. MemberID is nil for
// unlinked or manual donors. ExternalID links the posting back to the bank row
// or message it came from and is unique.
type FinancialTransaction struct {
	ID            uint            `gorm:"primaryKey"`
	MemberID      *uint           `gorm:"index"`
	CollectorID   uint            `gorm:"not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Date          time.Time       `gorm:"index;not null"`
	PaymentType   PaymentType     `gorm:"size:32;index;not null"`
	PaymentMethod PaymentMethod   `gorm:"size:32"`
	ExternalID    *string         `gorm:"size:96;uniqueIndex"`
	Note          string          `gorm:"size:255"`
	Status        string          `gorm:"size:16"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName pins the table name independently of the struct name.
func (FinancialTransaction) TableName() string { return "financial_transactions" }
