package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Member is a parish member. Households are stored arena style: a dependent
// points at its head through FamilyHeadID and nothing points back.
type Member struct {
	ID               uint                `gorm:"primaryKey"`
	FirstName        string              `gorm:"size:64"`
	LastName         string              `gorm:"size:64"`
	Email            string              `gorm:"size:128;index"`
	PhoneNumber      string              `gorm:"size:20;index"`
	YearlyPledge     decimal.NullDecimal `gorm:"type:decimal(20,2)"`
	DateJoinedParish *time.Time
	FamilyHeadID     *uint `gorm:"index"`
	HouseholdSize    int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName pins the table name independently of the struct name.
func (Member) TableName() string { return "members" }

// FullName joins first and last name.
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Pledge returns the yearly pledge, zero when none is recorded.
func (m Member) Pledge() decimal.Decimal {
	if !m.YearlyPledge.Valid {
		return decimal.Zero
	}
	return m.YearlyPledge.Decimal
}
