package dues

import (
	"context"

	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// Household is a head member and its dependents.
type Household struct {
	Head       models.Member
	Dependents []models.Member
}

// Members returns the head followed by the dependents.
func (h *Household) Members() []models.Member {
	return append([]models.Member{h.Head}, h.Dependents...)
}

// Household resolves the household memberID belongs to. Membership is one
// level deep: a dependent's head is never itself followed further.
func (e *Engine) Household(ctx context.Context, memberID uint) (*Household, error) {
	member, err := e.store.FindMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	headID := member.ID
	if member.FamilyHeadID != nil {
		headID = *member.FamilyHeadID
	}

	rows, err := e.store.ListHousehold(ctx, headID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].ID != headID {
		// head no longer exists; the member stands alone
		return &Household{Head: *member}, nil
	}
	return &Household{Head: rows[0], Dependents: rows[1:]}, nil
}

// householdContext applies the household view rule: a member without a head
// and with dependents is shown as its own head, otherwise its actual head.
func (e *Engine) householdContext(ctx context.Context, tx *store.Store, member *models.Member) (HouseholdContext, error) {
	hc := HouseholdContext{Size: member.HouseholdSize}

	if member.FamilyHeadID != nil {
		head, err := tx.FindMemberByID(ctx, *member.FamilyHeadID)
		if err != nil {
			return hc, err
		}
		hc.HeadID = head.ID
		hc.HeadName = head.FullName()
		return hc, nil
	}

	rows, err := tx.ListHousehold(ctx, member.ID)
	if err != nil {
		return hc, err
	}
	if len(rows) > 1 {
		hc.IsHouseholdView = true
		hc.HeadID = member.ID
		hc.HeadName = member.FullName()
	}
	return hc, nil
}

// HouseholdSummary aggregates the dues of every household member.
type HouseholdSummary struct {
	HeadID          uint
	Members         []*Details
	TotalAmountDue  decimal.Decimal
	DuesCollected   decimal.Decimal
	OutstandingDues decimal.Decimal
	GrandTotal      decimal.Decimal
}

// HouseholdDetails computes Details for each member of memberID's household.
func (e *Engine) HouseholdDetails(ctx context.Context, memberID uint, year int) (*HouseholdSummary, error) {
	h, err := e.Household(ctx, memberID)
	if err != nil {
		return nil, err
	}

	sum := &HouseholdSummary{HeadID: h.Head.ID}
	for _, m := range h.Members() {
		d, err := e.Details(ctx, m.ID, year)
		if err != nil {
			return nil, err
		}
		sum.Members = append(sum.Members, d)
		sum.TotalAmountDue = sum.TotalAmountDue.Add(d.TotalAmountDue)
		sum.DuesCollected = sum.DuesCollected.Add(d.DuesCollected)
		sum.OutstandingDues = sum.OutstandingDues.Add(d.OutstandingDues)
		sum.GrandTotal = sum.GrandTotal.Add(d.GrandTotal)
	}
	return sum, nil
}
