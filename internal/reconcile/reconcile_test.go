package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/memomatch"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/rules"
	"fjacquet/church-ledger/internal/store"
	"fjacquet/church-ledger/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *store.Store
	svc       *Service
	memos     *memomatch.Service
	logger    *logging.MockLogger
	collector *models.Member
	events    []PostingCommitted
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storetest.New(t)
	logger := logging.NewMockLogger()
	f := &fixture{store: s, logger: logger, memos: memomatch.NewService(s, logger)}
	f.svc = NewService(s, f.memos, rules.Default(), logger,
		WithClock(dateutils.FixedClock{T: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)}),
		WithHook(func(_ context.Context, ev PostingCommitted) error {
			f.events = append(f.events, ev)
			return nil
		}),
	)
	f.collector = storetest.AddMember(t, s, "Treasurer", "One")
	return f
}

func (f *fixture) addBankTx(t *testing.T, amount, description, payer string) *models.BankTransactionRecord {
	t.Helper()
	rec := &models.BankTransactionRecord{
		DedupHash:      description + amount,
		Date:           storetest.Date(2024, 6, 1),
		Amount:         storetest.Dec(amount),
		Description:    description,
		Type:           models.BankTypeZelle,
		Status:         models.StatusPending,
		PayerNameGuess: payer,
	}
	inserted, err := f.store.InsertBankTx(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, inserted)
	return rec
}

func (f *fixture) countLedgerEntries(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.store.DB().Model(&models.LedgerEntry{}).Count(&n).Error)
	return n
}

func (f *fixture) countTransactions(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.store.DB().Model(&models.FinancialTransaction{}).Count(&n).Error)
	return n
}

func TestReconcile_ToMemberAsTithe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := storetest.AddMember(t, f.store, "Jane", "Doe")
	rec := f.addBankTx(t, "150.00", "ZELLE TRANSFER FROM JANE DOE", "Jane Doe")

	ft, err := f.svc.Reconcile(ctx, Request{BankTxID: rec.ID, MemberID: &member.ID, PaymentType: models.PaymentTithe}, f.collector)
	require.NoError(t, err)

	require.NotNil(t, ft.ExternalID)
	assert.Equal(t, models.BankExternalID(rec.ID), *ft.ExternalID)
	assert.Equal(t, "150.00", ft.Amount.StringFixed(2))
	assert.Equal(t, models.MethodBankTransfer, ft.PaymentMethod)
	assert.Equal(t, f.collector.ID, ft.CollectorID)
	require.NotNil(t, ft.MemberID)
	assert.Equal(t, member.ID, *ft.MemberID)
	assert.Equal(t, "Jane Doe - Tithe - ZELLE TRANSFER FROM JANE DOE", ft.Note)

	entries, err := f.store.LedgerEntriesForTransaction(ctx, ft.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "4010", entries[0].GLCode)
	assert.Equal(t, models.EntryIncome, entries[0].Type)
	assert.Equal(t, models.SourceBankImport, entries[0].SourceSystem)

	got, err := f.store.GetBankTx(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMatched, got.Status)
	require.NotNil(t, got.MatchedAt)
	require.NotNil(t, got.MemberID)
	assert.Equal(t, member.ID, *got.MemberID)

	learned, ok, err := f.memos.Lookup(ctx, "JANE DOE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, member.ID, learned.MemberID)

	require.Len(t, f.events, 1)
	assert.Equal(t, ft.ID, f.events[0].TransactionID)
	assert.Equal(t, models.SourceBankImport, f.events[0].Source)

	_, err = f.svc.Reconcile(ctx, Request{BankTxID: rec.ID, MemberID: &member.ID, PaymentType: models.PaymentTithe}, f.collector)
	assert.True(t, ledgererror.IsConflict(err))
	assert.True(t, errors.Is(err, ledgererror.ErrAlreadyReconciled))
	assert.Equal(t, int64(1), f.countLedgerEntries(t))
	assert.Equal(t, int64(1), f.countTransactions(t))
	assert.Len(t, f.events, 1)
}

func TestReconcile_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	positive := f.addBankTx(t, "10.00", "ZELLE FROM A", "")
	negative := f.addBankTx(t, "-10.00", "ATM", "")
	zero := f.addBankTx(t, "0", "ADJUSTMENT", "")
	ignored := f.addBankTx(t, "5.00", "FEE REFUND", "")
	require.NoError(t, f.svc.Ignore(ctx, ignored.ID))
	missingMember := uint(4242)

	tests := []struct {
		name      string
		req       Request
		collector *models.Member
		check     func(t *testing.T, err error)
	}{
		{
			name:      "collector required",
			req:       Request{BankTxID: positive.ID, PaymentType: models.PaymentDonation},
			collector: nil,
			check: func(t *testing.T, err error) {
				assert.True(t, ledgererror.IsValidation(err))
				assert.True(t, errors.Is(err, ledgererror.ErrCollectorRequired))
			},
		},
		{
			name:      "unknown payment type",
			req:       Request{BankTxID: positive.ID, PaymentType: "lottery"},
			collector: f.collector,
			check:     func(t *testing.T, err error) { assert.True(t, ledgererror.IsValidation(err)) },
		},
		{
			name:      "unknown bank transaction",
			req:       Request{BankTxID: 9999, PaymentType: models.PaymentDonation},
			collector: f.collector,
			check:     func(t *testing.T, err error) { assert.True(t, ledgererror.IsNotFound(err)) },
		},
		{
			name:      "negative amount",
			req:       Request{BankTxID: negative.ID, PaymentType: models.PaymentDonation},
			collector: f.collector,
			check:     func(t *testing.T, err error) { assert.True(t, errors.Is(err, ledgererror.ErrAmountBelowMinimum)) },
		},
		{
			name:      "zero amount",
			req:       Request{BankTxID: zero.ID, PaymentType: models.PaymentDonation},
			collector: f.collector,
			check:     func(t *testing.T, err error) { assert.True(t, errors.Is(err, ledgererror.ErrAmountBelowMinimum)) },
		},
		{
			name:      "ignored record",
			req:       Request{BankTxID: ignored.ID, PaymentType: models.PaymentDonation},
			collector: f.collector,
			check:     func(t *testing.T, err error) { assert.True(t, errors.Is(err, ledgererror.ErrIgnored)) },
		},
		{
			name:      "unknown member",
			req:       Request{BankTxID: positive.ID, MemberID: &missingMember, PaymentType: models.PaymentDonation},
			collector: f.collector,
			check:     func(t *testing.T, err error) { assert.True(t, ledgererror.IsNotFound(err)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Reconcile(ctx, tt.req, tt.collector)
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	assert.Zero(t, f.countTransactions(t))
	assert.Zero(t, f.countLedgerEntries(t))
	got, err := f.store.GetBankTx(ctx, positive.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestReconcile_DuplicatePostingAndExistingTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.addBankTx(t, "80.00", "CHECK 1042", "")

	ext := models.BankExternalID(rec.ID)
	prior := &models.FinancialTransaction{
		CollectorID: f.collector.ID,
		Amount:      storetest.Dec("75.00"),
		Date:        storetest.Date(2024, 5, 31),
		PaymentType: models.PaymentOffering,
		ExternalID:  &ext,
	}
	require.NoError(t, f.store.SaveTransaction(ctx, prior))

	_, err := f.svc.Reconcile(ctx, Request{BankTxID: rec.ID, PaymentType: models.PaymentOffering}, f.collector)
	assert.True(t, errors.Is(err, ledgererror.ErrDuplicatePosting))

	other := uint(777)
	_, err = f.svc.Reconcile(ctx, Request{BankTxID: rec.ID, PaymentType: models.PaymentOffering, ExistingTransactionID: &other}, f.collector)
	assert.True(t, errors.Is(err, ledgererror.ErrDuplicatePosting))

	ft, err := f.svc.Reconcile(ctx, Request{BankTxID: rec.ID, PaymentType: models.PaymentOffering, ExistingTransactionID: &prior.ID}, f.collector)
	require.NoError(t, err)
	assert.Equal(t, prior.ID, ft.ID)
	assert.Equal(t, "80.00", ft.Amount.StringFixed(2))
	assert.Equal(t, int64(1), f.countTransactions(t))
	assert.Equal(t, int64(1), f.countLedgerEntries(t))
}

func TestReconcile_UpdatesExistingTransactionWithoutExternalID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.addBankTx(t, "20.00", "DEPOSIT", "")
	manual := storetest.AddTransaction(t, f.store, nil, "20.00", storetest.Date(2024, 6, 1), models.PaymentDonation)

	ft, err := f.svc.Reconcile(ctx, Request{BankTxID: rec.ID, PaymentType: models.PaymentDonation, ExistingTransactionID: &manual.ID}, f.collector)
	require.NoError(t, err)
	assert.Equal(t, manual.ID, ft.ID)
	require.NotNil(t, ft.ExternalID)
	assert.Equal(t, models.BankExternalID(rec.ID), *ft.ExternalID)

	missing := uint(5555)
	other := f.addBankTx(t, "21.00", "DEPOSIT 2", "")
	_, err = f.svc.Reconcile(ctx, Request{BankTxID: other.ID, PaymentType: models.PaymentDonation, ExistingTransactionID: &missing}, f.collector)
	assert.True(t, ledgererror.IsNotFound(err))
}

func TestReconcile_ManualDonorAndNoteTruncation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.addBankTx(t, "40.00", "CHECK 1042", "")
	long := f.addBankTx(t, "41.00", strings.Repeat("X", 300), "Somebody")

	ft, err := f.svc.Reconcile(ctx, Request{
		BankTxID:             rec.ID,
		PaymentType:          models.PaymentDonation,
		ManualDonorName:      "Visitor Joe",
		ManualDonorTypeLabel: "Guest",
	}, f.collector)
	require.NoError(t, err)
	assert.Nil(t, ft.MemberID)
	assert.Equal(t, "Visitor Joe (Guest) - Donation - CHECK 1042", ft.Note)

	ft, err = f.svc.Reconcile(ctx, Request{BankTxID: long.ID, PaymentType: models.PaymentOther}, f.collector)
	require.NoError(t, err)
	assert.Len(t, []rune(ft.Note), models.NoteMaxLength)
	assert.True(t, strings.HasPrefix(ft.Note, "Somebody - Other - XXX"))

	_, ok, err := f.memos.Lookup(ctx, "Somebody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReconcile_HookFailureIsLoggedOnly(t *testing.T) {
	f := newFixture(t)
	f.svc.OnCommit(func(context.Context, PostingCommitted) error { return errors.New("snapshot store down") })
	rec := f.addBankTx(t, "15.00", "ZELLE FROM B", "")

	_, err := f.svc.Reconcile(context.Background(), Request{BankTxID: rec.ID, PaymentType: models.PaymentDonation}, f.collector)
	require.NoError(t, err)
	assert.True(t, f.logger.HasEntry("ERROR", "Post-commit hook failed"))
	assert.Equal(t, int64(1), f.countTransactions(t))
}

func TestBatchReconcile_ContinuesAndReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addBankTx(t, "10.00", "A", "")
	b := f.addBankTx(t, "20.00", "B", "")
	c := f.addBankTx(t, "30.00", "C", "")
	_, err := f.svc.Reconcile(ctx, Request{BankTxID: b.ID, PaymentType: models.PaymentTithe}, f.collector)
	require.NoError(t, err)

	items := []Request{
		{BankTxID: a.ID, PaymentType: models.PaymentTithe},
		{BankTxID: b.ID, PaymentType: models.PaymentTithe},
		{BankTxID: c.ID, PaymentType: models.PaymentTithe},
	}
	results, err := f.svc.BatchReconcile(ctx, items, f.collector, BatchOptions{})

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.Index)
	assert.Equal(t, b.ID, batchErr.BankTxID)
	assert.Equal(t, 1, batchErr.Failed)
	assert.True(t, errors.Is(err, ledgererror.ErrAlreadyReconciled))

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Transaction)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, int64(3), f.countTransactions(t))
}

func TestBatchReconcile_StopOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addBankTx(t, "10.00", "A", "")
	c := f.addBankTx(t, "30.00", "C", "")

	items := []Request{
		{BankTxID: a.ID, PaymentType: models.PaymentTithe},
		{BankTxID: 9999, PaymentType: models.PaymentTithe},
		{BankTxID: c.ID, PaymentType: models.PaymentTithe},
	}
	results, err := f.svc.BatchReconcile(ctx, items, f.collector, BatchOptions{StopOnError: true})

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.Index)
	assert.True(t, ledgererror.IsNotFound(err))
	require.Len(t, results, 2)

	first, err := f.store.GetBankTx(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMatched, first.Status)
	last, err := f.store.GetBankTx(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, last.Status)
}

func TestBatchReconcile_RequiresCollector(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BatchReconcile(context.Background(), []Request{{BankTxID: 1}}, nil, BatchOptions{})
	assert.True(t, errors.Is(err, ledgererror.ErrCollectorRequired))
}

func TestReconcile_ExistingTransactionKeyedElsewhereIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := storetest.AddMember(t, f.store, "Ann", "Lee")

	emailed := ExternalPosting{
		ExternalID:  models.MessageExternalID("abc"),
		MemberID:    &member.ID,
		Amount:      storetest.Dec("50.00"),
		Date:        storetest.Date(2024, 6, 1),
		PaymentType: models.PaymentTithe,
		Source:      models.SourceEmailImport,
	}
	msg, err := f.svc.PostExternal(ctx, emailed, f.collector)
	require.NoError(t, err)

	rec := f.addBankTx(t, "150.00", "ZELLE FROM ANN LEE", "Ann Lee")
	_, err = f.svc.Reconcile(ctx, Request{
		BankTxID:              rec.ID,
		MemberID:              &member.ID,
		PaymentType:           models.PaymentMembershipDue,
		ExistingTransactionID: &msg.ID,
	}, f.collector)
	assert.True(t, ledgererror.IsConflict(err))
	assert.True(t, errors.Is(err, ledgererror.ErrDuplicatePosting))

	kept, err := f.store.FindTransactionByExternalID(ctx, models.MessageExternalID("abc"))
	require.NoError(t, err)
	assert.Equal(t, msg.ID, kept.ID)
	assert.Equal(t, "50.00", kept.Amount.StringFixed(2))

	_, err = f.svc.PostExternal(ctx, emailed, f.collector)
	assert.True(t, errors.Is(err, ledgererror.ErrDuplicatePosting))

	got, err := f.store.GetBankTx(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	// a transaction already keyed to another bank row is refused the same way
	first := f.addBankTx(t, "30.00", "DEPOSIT 1", "")
	ft, err := f.svc.Reconcile(ctx, Request{BankTxID: first.ID, PaymentType: models.PaymentOffering}, f.collector)
	require.NoError(t, err)
	second := f.addBankTx(t, "30.00", "DEPOSIT 2", "")
	_, err = f.svc.Reconcile(ctx, Request{BankTxID: second.ID, PaymentType: models.PaymentOffering, ExistingTransactionID: &ft.ID}, f.collector)
	assert.True(t, errors.Is(err, ledgererror.ErrDuplicatePosting))

	assert.Equal(t, int64(2), f.countTransactions(t))
	assert.Equal(t, int64(2), f.countLedgerEntries(t))
}

func TestReconcile_ExistingTransactionLedgerFollowsUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addWithEntry := func(amount string, pt models.PaymentType, gl string) *models.FinancialTransaction {
		ft := storetest.AddTransaction(t, f.store, nil, amount, storetest.Date(2024, 6, 1), pt)
		require.NoError(t, f.store.CreateLedgerEntry(ctx, &models.LedgerEntry{
			TransactionID: &ft.ID,
			EntryDate:     ft.Date,
			Amount:        ft.Amount,
			Type:          models.EntryIncome,
			GLCode:        gl,
			SourceSystem:  models.SourceManual,
			CollectorID:   f.collector.ID,
		}))
		return ft
	}

	t.Run("changed amount and type are reversed and reposted", func(t *testing.T) {
		manual := addWithEntry("50.00", models.PaymentTithe, "4010")
		rec := f.addBankTx(t, "150.00", "ZELLE FROM JANE DOE", "")

		ft, err := f.svc.Reconcile(ctx, Request{
			BankTxID:              rec.ID,
			PaymentType:           models.PaymentMembershipDue,
			ExistingTransactionID: &manual.ID,
		}, f.collector)
		require.NoError(t, err)
		assert.Equal(t, manual.ID, ft.ID)

		entries, err := f.store.LedgerEntriesForTransaction(ctx, ft.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.Equal(t, models.EntryIncome, entries[0].Type)
		assert.Equal(t, "50.00", entries[0].Amount.StringFixed(2))

		assert.Equal(t, models.EntryExpense, entries[1].Type)
		assert.Equal(t, "50.00", entries[1].Amount.StringFixed(2))
		assert.Equal(t, "4010", entries[1].GLCode)
		assert.True(t, strings.HasPrefix(entries[1].Memo, "Reversal: "))

		assert.Equal(t, models.EntryIncome, entries[2].Type)
		assert.Equal(t, "150.00", entries[2].Amount.StringFixed(2))
		assert.Equal(t, "4100", entries[2].GLCode)

		net, code := postedNet(entries)
		assert.True(t, net.Equal(ft.Amount))
		assert.Equal(t, "4100", code)
	})

	t.Run("matching entry is left alone", func(t *testing.T) {
		manual := addWithEntry("20.00", models.PaymentDonation, "4200")
		rec := f.addBankTx(t, "20.00", "DEPOSIT", "")

		_, err := f.svc.Reconcile(ctx, Request{BankTxID: rec.ID, PaymentType: models.PaymentDonation, ExistingTransactionID: &manual.ID}, f.collector)
		require.NoError(t, err)

		entries, err := f.store.LedgerEntriesForTransaction(ctx, manual.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestReconcile_ConcurrentCallersOnOneRecord(t *testing.T) {
	s := storetest.NewFile(t)
	ctx := context.Background()
	svc := NewService(s, memomatch.NewService(s, nil), rules.Default(), logging.NewMockLogger())
	collector := storetest.AddMember(t, s, "Treasurer", "One")

	const rounds, workers = 5, 4
	for round := 0; round < rounds; round++ {
		rec := storetest.AddBankTx(t, s, storetest.Date(2024, 6, 1+round), "25.00", "", fmt.Sprintf("ZELLE FROM ROUND %d", round))

		errs := make([]error, workers)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = svc.Reconcile(ctx, Request{BankTxID: rec.ID, PaymentType: models.PaymentDonation}, collector)
			}(i)
		}
		close(start)
		wg.Wait()

		var won int
		for _, err := range errs {
			if err == nil {
				won++
				continue
			}
			assert.ErrorIs(t, err, ledgererror.ErrAlreadyReconciled)
		}
		assert.Equal(t, 1, won, "round %d", round)
	}

	var txCount, entryCount int64
	require.NoError(t, s.DB().Model(&models.FinancialTransaction{}).Count(&txCount).Error)
	require.NoError(t, s.DB().Model(&models.LedgerEntry{}).Count(&entryCount).Error)
	assert.Equal(t, int64(rounds), txCount)
	assert.Equal(t, int64(rounds), entryCount)
}
