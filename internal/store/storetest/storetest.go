// Package storetest builds throwaway migrated stores and fixtures for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fjacquet/church-ledger/internal/config"
	"fjacquet/church-ledger/internal/database"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// New returns a migrated store backed by a private in-memory SQLite database.
func New(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return store.New(db)
}

// NewFile returns a migrated store backed by a SQLite file in a temp dir. Its
// pool has several connections, so concurrent callers really race.
func NewFile(t *testing.T) *store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ledger.db")
	db, err := database.Open(config.DatabaseConfig{Driver: database.DriverSQLite, DSN: dsn, MaxOpenConns: 4})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return store.New(db)
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal and panics on error.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// AddMember inserts a member with the given name, applying opts before the insert.
func AddMember(t *testing.T, s *store.Store, first, last string, opts ...func(*models.Member)) *models.Member {
	t.Helper()
	m := &models.Member{FirstName: first, LastName: last, HouseholdSize: 1}
	for _, o := range opts {
		o(m)
	}
	require.NoError(t, s.CreateMember(context.Background(), m))
	return m
}

// WithPledge sets the yearly pledge.
func WithPledge(amount string) func(*models.Member) {
	return func(m *models.Member) { m.YearlyPledge = decimal.NewNullDecimal(Dec(amount)) }
}

// WithPhone sets the phone number.
func WithPhone(phone string) func(*models.Member) {
	return func(m *models.Member) { m.PhoneNumber = phone }
}

// WithEmail sets the email address.
func WithEmail(email string) func(*models.Member) {
	return func(m *models.Member) { m.Email = email }
}

// JoinedOn sets the parish join date.
func JoinedOn(d time.Time) func(*models.Member) {
	return func(m *models.Member) { m.DateJoinedParish = &d }
}

// HeadedBy points the member at a household head.
func HeadedBy(headID uint) func(*models.Member) {
	return func(m *models.Member) { m.FamilyHeadID = &headID }
}

// AddBankTx inserts a PENDING bank record. An empty balance stores null.
func AddBankTx(t *testing.T, s *store.Store, date time.Time, amount, balance, description string) *models.BankTransactionRecord {
	t.Helper()
	rec := &models.BankTransactionRecord{
		DedupHash:   date.Format("2006-01-02") + "|" + description + "|" + amount,
		Date:        date,
		Amount:      Dec(amount),
		Description: description,
		Type:        models.BankTypeOther,
		Status:      models.StatusPending,
	}
	if balance != "" {
		rec.Balance = decimal.NewNullDecimal(Dec(balance))
	}
	inserted, err := s.InsertBankTx(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, inserted)
	return rec
}

// AddTransaction inserts a posted financial transaction.
func AddTransaction(t *testing.T, s *store.Store, memberID *uint, amount string, date time.Time, pt models.PaymentType) *models.FinancialTransaction {
	t.Helper()
	tx := &models.FinancialTransaction{
		MemberID:      memberID,
		CollectorID:   1,
		Amount:        Dec(amount),
		Date:          date,
		PaymentType:   pt,
		PaymentMethod: models.MethodCash,
		Status:        models.TransactionPosted,
	}
	require.NoError(t, s.SaveTransaction(context.Background(), tx))
	return tx
}

// UintPtr returns a pointer to v.
func UintPtr(v uint) *uint { return &v }
