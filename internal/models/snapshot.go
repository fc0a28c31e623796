package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// YearlyPaymentSnapshot is the legacy per-year dues rollup, keyed by the
// member's phone number. It is a derived cache and is always recomputed in full.
type YearlyPaymentSnapshot struct {
	ID             uint            `gorm:"primaryKey"`
	Key            string          `gorm:"size:32;not null;uniqueIndex:idx_snapshot_key_year"`
	Year           int             `gorm:"not null;uniqueIndex:idx_snapshot_key_year"`
	MemberID       uint            `gorm:"index"`
	Month1         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month2         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month3         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month4         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month5         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month6         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month7         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month8         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month9         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month10        decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month11        decimal.Decimal `gorm:"type:decimal(20,2)"`
	Month12        decimal.Decimal `gorm:"type:decimal(20,2)"`
	TotalCollected decimal.Decimal `gorm:"type:decimal(20,2)"`
	TotalAmountDue decimal.Decimal `gorm:"type:decimal(20,2)"`
	MonthlyPayment decimal.Decimal `gorm:"type:decimal(20,2)"`
	BalanceDue     decimal.Decimal `gorm:"type:decimal(20,2)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the table name independently of the struct name.
func (YearlyPaymentSnapshot) TableName() string { return "yearly_payment_snapshots" }

// Months returns the twelve monthly buckets, January first.
func (s *YearlyPaymentSnapshot) Months() [12]decimal.Decimal {
	return [12]decimal.Decimal{
		s.Month1, s.Month2, s.Month3, s.Month4, s.Month5, s.Month6,
		s.Month7, s.Month8, s.Month9, s.Month10, s.Month11, s.Month12,
	}
}

// SetMonths overwrites the twelve monthly buckets, January first.
func (s *YearlyPaymentSnapshot) SetMonths(m [12]decimal.Decimal) {
	s.Month1, s.Month2, s.Month3, s.Month4 = m[0], m[1], m[2], m[3]
	s.Month5, s.Month6, s.Month7, s.Month8 = m[4], m[5], m[6], m[7]
	s.Month9, s.Month10, s.Month11, s.Month12 = m[8], m[9], m[10], m[11]
}
