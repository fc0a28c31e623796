package dues

import (
	"context"
	"testing"
	"time"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"
	"fjacquet/church-ledger/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mid-August 2024 in the organisation's zone
var august2024 = dateutils.FixedClock{T: time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)}

func newEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s := storetest.New(t)
	return NewEngine(s, august2024, models.PaymentMembershipDue, logging.NewMockLogger()), s
}

func TestDetails_JoinedMidYearScenario(t *testing.T) {
	e, s := newEngine(t)
	member := storetest.AddMember(t, s, "Jane", "Doe",
		storetest.WithPledge("1200"),
		storetest.JoinedOn(storetest.Date(2024, 3, 1)))
	storetest.AddTransaction(t, s, &member.ID, "100.00", storetest.Date(2024, 6, 9), models.PaymentMembershipDue)

	d, err := e.Details(context.Background(), member.ID, 2024)
	require.NoError(t, err)

	assert.Equal(t, 10, d.MonthsRequired)
	assert.Equal(t, "100.00", d.MonthlyDue.StringFixed(2))
	assert.Equal(t, "1000.00", d.TotalAmountDue.StringFixed(2))
	assert.Equal(t, "100.00", d.DuesCollected.StringFixed(2))
	assert.Equal(t, "900.00", d.OutstandingDues.StringFixed(2))
	assert.Equal(t, "10.00", d.DuesProgress.StringFixed(2))

	expected := map[time.Month]string{
		time.January:   StatusPreMembership,
		time.February:  StatusPreMembership,
		time.March:     StatusDue,
		time.June:      StatusPaid,
		time.July:      StatusDue,
		time.August:    StatusDue,
		time.September: StatusUpcoming,
		time.December:  StatusUpcoming,
	}
	for month, status := range expected {
		assert.Equal(t, status, d.Months[month-1].Status, month.String())
	}
	assert.True(t, d.Months[0].Due.IsZero())
	assert.Equal(t, "100.00", d.Months[6].Due.StringFixed(2))
	assert.True(t, d.Months[8].IsFuture)
	assert.False(t, d.Months[7].IsFuture)

	// 4 months left after August
	assert.Equal(t, "400.00", d.FutureDues.StringFixed(2))
	assert.Equal(t, "100.00", d.GrandTotal.StringFixed(2))
}

func TestDetails_IsPure(t *testing.T) {
	e, s := newEngine(t)
	member := storetest.AddMember(t, s, "Ann", "Lee", storetest.WithPledge("1000"))
	storetest.AddTransaction(t, s, &member.ID, "83.33", storetest.Date(2024, 1, 5), models.PaymentMembershipDue)

	first, err := e.Details(context.Background(), member.ID, 2024)
	require.NoError(t, err)
	second, err := e.Details(context.Background(), member.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "83.33", first.MonthlyDue.StringFixed(2))
	assert.Equal(t, StatusPaid, first.Months[0].Status)
}

func TestDetails_JoinAfterYearAndNoPledge(t *testing.T) {
	e, s := newEngine(t)
	late := storetest.AddMember(t, s, "Late", "Joiner",
		storetest.WithPledge("600"),
		storetest.JoinedOn(storetest.Date(2025, 2, 1)))
	nopledge := storetest.AddMember(t, s, "No", "Pledge")

	d, err := e.Details(context.Background(), late.ID, 2024)
	require.NoError(t, err)
	assert.Zero(t, d.MonthsRequired)
	assert.True(t, d.TotalAmountDue.IsZero())
	assert.True(t, d.DuesProgress.IsZero())
	for _, m := range d.Months {
		assert.Equal(t, StatusPreMembership, m.Status)
	}

	d, err = e.Details(context.Background(), nopledge.ID, 2024)
	require.NoError(t, err)
	assert.True(t, d.MonthlyDue.IsZero())
	assert.Equal(t, 12, d.MonthsRequired)
	assert.Equal(t, StatusPaid, d.Months[0].Status)
}

func TestDetails_PastAndFutureYears(t *testing.T) {
	e, s := newEngine(t)
	member := storetest.AddMember(t, s, "Ann", "Lee", storetest.WithPledge("1200"))

	past, err := e.Details(context.Background(), member.ID, 2023)
	require.NoError(t, err)
	assert.True(t, past.FutureDues.IsZero())
	assert.Equal(t, StatusDue, past.Months[11].Status)

	future, err := e.Details(context.Background(), member.ID, 2025)
	require.NoError(t, err)
	assert.True(t, future.FutureDues.IsZero())
	for _, m := range future.Months {
		assert.Equal(t, StatusUpcoming, m.Status)
		assert.True(t, m.IsFuture)
	}
}

func TestDetails_OtherContributions(t *testing.T) {
	e, s := newEngine(t)
	member := storetest.AddMember(t, s, "Ann", "Lee", storetest.WithPledge("120"))
	add := func(amount string, pt models.PaymentType) {
		storetest.AddTransaction(t, s, &member.ID, amount, storetest.Date(2024, 3, 3), pt)
	}
	add("10.00", models.PaymentMembershipDue)
	add("5.00", models.PaymentDonation)
	add("7.00", models.PaymentPledge)
	add("11.00", models.PaymentTithe)
	add("13.00", models.PaymentOffering)
	add("17.00", models.PaymentBuildingFund)
	add("19.00", models.PaymentEvent)
	// outside the year
	storetest.AddTransaction(t, s, &member.ID, "1000.00", storetest.Date(2023, 12, 31), models.PaymentTithe)

	d, err := e.Details(context.Background(), member.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, "10.00", d.DuesCollected.StringFixed(2))
	assert.Equal(t, "5.00", d.Contributions.Donation.StringFixed(2))
	assert.Equal(t, "7.00", d.Contributions.Pledge.StringFixed(2))
	assert.Equal(t, "11.00", d.Contributions.Tithe.StringFixed(2))
	assert.Equal(t, "13.00", d.Contributions.Offering.StringFixed(2))
	assert.Equal(t, "36.00", d.Contributions.Other.StringFixed(2))
	assert.Equal(t, "82.00", d.GrandTotal.StringFixed(2))
	assert.Equal(t, "110.00", d.OutstandingDues.StringFixed(2))
}

func TestDetails_OutstandingNeverNegative(t *testing.T) {
	e, s := newEngine(t)
	member := storetest.AddMember(t, s, "Ann", "Lee", storetest.WithPledge("120"))
	storetest.AddTransaction(t, s, &member.ID, "500.00", storetest.Date(2024, 1, 1), models.PaymentMembershipDue)

	d, err := e.Details(context.Background(), member.ID, 2024)
	require.NoError(t, err)
	assert.True(t, d.OutstandingDues.IsZero())
	assert.Equal(t, "416.67", d.DuesProgress.StringFixed(2))
}

func TestDetails_UnknownMember(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Details(context.Background(), 12345, 2024)
	assert.True(t, ledgererror.IsNotFound(err))
}

func TestDetails_HouseholdContext(t *testing.T) {
	e, s := newEngine(t)
	head := storetest.AddMember(t, s, "Mary", "Smith", func(m *models.Member) { m.HouseholdSize = 3 })
	child := storetest.AddMember(t, s, "Tom", "Smith", storetest.HeadedBy(head.ID))
	single := storetest.AddMember(t, s, "Solo", "Member")

	d, err := e.Details(context.Background(), head.ID, 2024)
	require.NoError(t, err)
	assert.True(t, d.Household.IsHouseholdView)
	assert.Equal(t, head.ID, d.Household.HeadID)
	assert.Equal(t, 3, d.Household.Size)

	d, err = e.Details(context.Background(), child.ID, 2024)
	require.NoError(t, err)
	assert.False(t, d.Household.IsHouseholdView)
	assert.Equal(t, head.ID, d.Household.HeadID)
	assert.Equal(t, "Mary Smith", d.Household.HeadName)

	d, err = e.Details(context.Background(), single.ID, 2024)
	require.NoError(t, err)
	assert.False(t, d.Household.IsHouseholdView)
	assert.Zero(t, d.Household.HeadID)
}

func TestRequiredMonths(t *testing.T) {
	joined := func(y int, m time.Month) *time.Time {
		d := time.Date(y, m, 20, 0, 0, 0, 0, time.UTC)
		return &d
	}
	tests := []struct {
		name      string
		joined    *time.Time
		year      int
		wantFirst int
		wantCount int
	}{
		{"never joined", nil, 2024, 1, 12},
		{"joined earlier", joined(2020, time.July), 2024, 1, 12},
		{"joined in january", joined(2024, time.January), 2024, 1, 12},
		{"joined in december", joined(2024, time.December), 2024, 12, 1},
		{"joined later", joined(2025, time.January), 2024, 13, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, count := requiredMonths(tt.joined, tt.year)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}
