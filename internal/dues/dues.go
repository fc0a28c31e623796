// Package dues derives a member's yearly dues position from the pledge, the
// join date and the posted transactions. Everything here is recomputed from
// stored data on every call; the yearly snapshot table is only a cache of it.
package dues

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// Month statuses
const (
	StatusPreMembership = "pre-membership"
	StatusUpcoming      = "upcoming"
	StatusPaid          = "paid"
	StatusDue           = "due"
)

var hundred = decimal.NewFromInt(100)

// MonthStatus is the dues position of one calendar month.
type MonthStatus struct {
	Month    time.Month
	Status   string
	Due      decimal.Decimal
	Paid     decimal.Decimal
	IsFuture bool
}

// Contributions totals the non-dues giving of a year.
type Contributions struct {
	Donation decimal.Decimal
	Pledge   decimal.Decimal
	Tithe    decimal.Decimal
	Offering decimal.Decimal
	Other    decimal.Decimal
}

// Total sums every bucket.
func (c Contributions) Total() decimal.Decimal {
	return models.SumAmounts(c.Donation, c.Pledge, c.Tithe, c.Offering, c.Other)
}

// HouseholdContext places the member in its household.
type HouseholdContext struct {
	// HeadID is zero when the member neither has a head nor heads a household.
	HeadID          uint
	HeadName        string
	IsHouseholdView bool
	Size            int
}

// Details is the dues position of a member for a year.
type Details struct {
	MemberID        uint
	MemberName      string
	Year            int
	YearlyPledge    decimal.Decimal
	MonthlyDue      decimal.Decimal
	MonthsRequired  int
	TotalAmountDue  decimal.Decimal
	DuesCollected   decimal.Decimal
	OutstandingDues decimal.Decimal
	// DuesProgress is DuesCollected as a percentage of TotalAmountDue.
	DuesProgress  decimal.Decimal
	Months        [12]MonthStatus
	FutureDues    decimal.Decimal
	Contributions Contributions
	GrandTotal    decimal.Decimal
	Household     HouseholdContext
}

// Engine computes dues.
type Engine struct {
	store    *store.Store
	clock    dateutils.Clock
	duesType models.PaymentType
	logger   logging.Logger
}

// NewEngine creates an engine. duesType is the payment type counted as dues;
// the clock must run in the organisation's time zone.
func NewEngine(s *store.Store, clock dateutils.Clock, duesType models.PaymentType, logger logging.Logger) *Engine {
	if clock == nil {
		clock = dateutils.SystemClock{}
	}
	if duesType == "" {
		duesType = models.PaymentMembershipDue
	}
	return &Engine{store: s, clock: clock, duesType: duesType, logger: logging.OrDefault(logger)}
}

// DuesType returns the payment type counted as dues.
func (e *Engine) DuesType() models.PaymentType { return e.duesType }

// Details computes the dues position of memberID for year.
func (e *Engine) Details(ctx context.Context, memberID uint, year int) (*Details, error) {
	if year < 1 {
		return nil, fmt.Errorf("invalid year %d", year)
	}

	var d *Details
	err := e.store.ReadSnapshot(ctx, func(tx *store.Store) error {
		member, err := tx.FindMemberByID(ctx, memberID)
		if err != nil {
			return err
		}
		from, to := dateutils.YearBounds(year)
		txs, err := tx.ListMemberTransactions(ctx, memberID, from, to)
		if err != nil {
			return err
		}
		household, err := e.householdContext(ctx, tx, member)
		if err != nil {
			return err
		}

		d = e.compute(member, year, txs)
		d.Household = household
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// compute is the pure part of Details.
func (e *Engine) compute(member *models.Member, year int, txs []models.FinancialTransaction) *Details {
	pledge := member.Pledge()
	monthlyDue := models.MonthlyDue(pledge)
	joinMonth, monthsRequired := requiredMonths(member.DateJoinedParish, year)

	d := &Details{
		MemberID:       member.ID,
		MemberName:     member.FullName(),
		Year:           year,
		YearlyPledge:   pledge,
		MonthlyDue:     monthlyDue,
		MonthsRequired: monthsRequired,
		TotalAmountDue: monthlyDue.Mul(decimal.NewFromInt(int64(monthsRequired))),
	}

	var paidByMonth [12]decimal.Decimal
	for _, t := range txs {
		if t.PaymentType == e.duesType {
			d.DuesCollected = d.DuesCollected.Add(t.Amount)
			i := int(t.Date.Month()) - 1
			paidByMonth[i] = paidByMonth[i].Add(t.Amount)
			continue
		}
		d.Contributions.add(t.PaymentType, t.Amount)
	}

	d.OutstandingDues = decimal.Max(decimal.Zero, d.TotalAmountDue.Sub(d.DuesCollected))
	if d.TotalAmountDue.IsPositive() {
		d.DuesProgress = d.DuesCollected.Div(d.TotalAmountDue).Mul(hundred).Round(models.MoneyScale)
	}

	now := e.clock.Now()
	for i := range d.Months {
		m := time.Month(i + 1)
		ms := MonthStatus{Month: m, Paid: paidByMonth[i], Due: monthlyDue}
		switch {
		case int(m) < joinMonth:
			ms.Status = StatusPreMembership
			ms.Due = decimal.Zero
		case year > now.Year() || (year == now.Year() && m > now.Month()):
			ms.Status = StatusUpcoming
			ms.IsFuture = true
		case paidByMonth[i].GreaterThanOrEqual(monthlyDue):
			ms.Status = StatusPaid
		default:
			ms.Status = StatusDue
		}
		d.Months[i] = ms
	}

	if year == now.Year() {
		d.FutureDues = monthlyDue.Mul(decimal.NewFromInt(int64(12 - int(now.Month()))))
	}
	d.GrandTotal = d.DuesCollected.Add(d.Contributions.Total())
	return d
}

// requiredMonths returns the first month dues are owed in year (13 when none
// are) and the number of months owed.
func requiredMonths(joined *time.Time, year int) (int, int) {
	if joined == nil {
		return 1, 12
	}
	switch jy := joined.Year(); {
	case jy > year:
		return 13, 0
	case jy == year:
		return int(joined.Month()), 13 - int(joined.Month())
	default:
		return 1, 12
	}
}

var contributionBuckets = []string{"donation", "pledge", "tithe", "offering"}

func (c *Contributions) add(pt models.PaymentType, amount decimal.Decimal) {
	kind := strings.ToLower(string(pt) + " " + pt.Label())
	for _, bucket := range contributionBuckets {
		if !strings.Contains(kind, bucket) {
			continue
		}
		switch bucket {
		case "donation":
			c.Donation = c.Donation.Add(amount)
		case "pledge":
			c.Pledge = c.Pledge.Add(amount)
		case "tithe":
			c.Tithe = c.Tithe.Add(amount)
		case "offering":
			c.Offering = c.Offering.Add(amount)
		}
		return
	}
	c.Other = c.Other.Add(amount)
}
