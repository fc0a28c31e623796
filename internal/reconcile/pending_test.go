package reconcile

import (
	"context"
	"errors"
	"testing"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"
	"fjacquet/church-ledger/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPending_SuggestsLearnedMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := storetest.AddMember(t, f.store, "Jane", "Doe")
	_, err := f.memos.Upsert(ctx, nil, "Jane Doe", member)
	require.NoError(t, err)

	known := f.addBankTx(t, "10.00", "ZELLE FROM JANE DOE", "Jane Doe")
	f.addBankTx(t, "11.00", "ZELLE FROM SOMEONE", "Someone")
	f.addBankTx(t, "12.00", "ATM", "")
	done := f.addBankTx(t, "13.00", "DONE", "")
	_, err = f.svc.Reconcile(ctx, Request{BankTxID: done.ID, PaymentType: models.PaymentOther}, f.collector)
	require.NoError(t, err)

	page, err := f.svc.ListPending(ctx, store.BankTxFilter{}, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, DefaultPageSize, page.Limit)
	require.Len(t, page.Items, 3)

	var suggested int
	for _, item := range page.Items {
		if item.Record.ID == known.ID {
			require.NotNil(t, item.SuggestedMemberID)
			assert.Equal(t, member.ID, *item.SuggestedMemberID)
			assert.Equal(t, "Jane Doe", item.SuggestedMemberName)
		}
		if item.SuggestedMemberID != nil {
			suggested++
		}
	}
	assert.Equal(t, 1, suggested)

	matched, err := f.svc.ListPending(ctx, store.BankTxFilter{Status: models.StatusMatched}, store.Page{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, matched.Limit)
	require.Len(t, matched.Items, 1)
	assert.Equal(t, done.ID, matched.Items[0].Record.ID)
}

func TestIgnore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.addBankTx(t, "10.00", "INTERNAL TRANSFER", "")

	require.NoError(t, f.svc.Ignore(ctx, rec.ID))
	err := f.svc.Ignore(ctx, rec.ID)
	assert.True(t, errors.Is(err, ledgererror.ErrNotPending))

	err = f.svc.Ignore(ctx, 31337)
	assert.True(t, ledgererror.IsNotFound(err))

	_, err = f.svc.Reconcile(ctx, Request{BankTxID: rec.ID, PaymentType: models.PaymentOther}, f.collector)
	assert.True(t, errors.Is(err, ledgererror.ErrIgnored))
}

func TestRecordExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.RecordExpense(ctx, Expense{Amount: storetest.Dec("99.999"), GLCode: " 6100 ", Memo: "Hall rental"}, f.collector)
	require.NoError(t, err)
	assert.Nil(t, entry.TransactionID)
	assert.Equal(t, models.EntryExpense, entry.Type)
	assert.Equal(t, models.SourceManual, entry.SourceSystem)
	assert.Equal(t, "6100", entry.GLCode)
	assert.Equal(t, "100.00", entry.Amount.StringFixed(2))
	assert.Equal(t, "2024-06-10", entry.EntryDate.Format("2006-01-02"))

	_, err = f.svc.RecordExpense(ctx, Expense{Amount: storetest.Dec("1"), GLCode: ""}, f.collector)
	assert.True(t, ledgererror.IsValidation(err))

	_, err = f.svc.RecordExpense(ctx, Expense{Amount: storetest.Dec("-1"), GLCode: "6100"}, f.collector)
	assert.True(t, ledgererror.IsValidation(err))

	_, err = f.svc.RecordExpense(ctx, Expense{Amount: storetest.Dec("1"), GLCode: "6100"}, nil)
	assert.True(t, errors.Is(err, ledgererror.ErrCollectorRequired))

	assert.Equal(t, int64(1), f.countLedgerEntries(t))
}
