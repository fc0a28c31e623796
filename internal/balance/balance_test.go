package balance

import (
	"context"
	"testing"

	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentBalance_NoAnchor(t *testing.T) {
	s := storetest.New(t)
	storetest.AddBankTx(t, s, storetest.Date(2024, 6, 1), "10.00", "", "no balance")

	got, err := NewAccumulator(s, logging.NewMockLogger()).CurrentBalance(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Valid)
}

func TestCurrentBalance_AnchorPlusNewerDeltas(t *testing.T) {
	s := storetest.New(t)
	storetest.AddBankTx(t, s, storetest.Date(2024, 5, 30), "999.00", "", "older, ignored")
	storetest.AddBankTx(t, s, storetest.Date(2024, 6, 1), "150.00", "5000.00", "anchor")
	storetest.AddBankTx(t, s, storetest.Date(2024, 6, 2), "-20.00", "", "d1")
	storetest.AddBankTx(t, s, storetest.Date(2024, 6, 3), "0.10", "", "d2")
	storetest.AddBankTx(t, s, storetest.Date(2024, 6, 3), "0.20", "", "d3")

	got, err := NewAccumulator(s, nil).CurrentBalance(context.Background())
	require.NoError(t, err)
	require.True(t, got.Valid)
	assert.Equal(t, "4980.30", got.Decimal.StringFixed(2))
}

func TestCurrentBalance_SameDateTieUsesLowestID(t *testing.T) {
	s := storetest.New(t)
	day := storetest.Date(2024, 6, 1)
	storetest.AddBankTx(t, s, day, "10.00", "100.00", "first anchor candidate")
	storetest.AddBankTx(t, s, day, "5.00", "105.00", "second anchor candidate")
	storetest.AddBankTx(t, s, day, "1.00", "", "same day, later id")

	got, err := NewAccumulator(s, nil).CurrentBalance(context.Background())
	require.NoError(t, err)
	require.True(t, got.Valid)
	// 100 + 5 + 1
	assert.Equal(t, "106.00", got.Decimal.StringFixed(2))
}

func TestCurrentBalance_IndependentOfInsertionOrder(t *testing.T) {
	forward := storetest.New(t)
	storetest.AddBankTx(t, forward, storetest.Date(2024, 6, 1), "0", "1000.00", "anchor")
	storetest.AddBankTx(t, forward, storetest.Date(2024, 6, 2), "12.34", "", "a")
	storetest.AddBankTx(t, forward, storetest.Date(2024, 6, 5), "-2.34", "", "b")

	backward := storetest.New(t)
	storetest.AddBankTx(t, backward, storetest.Date(2024, 6, 5), "-2.34", "", "b")
	storetest.AddBankTx(t, backward, storetest.Date(2024, 6, 2), "12.34", "", "a")
	storetest.AddBankTx(t, backward, storetest.Date(2024, 6, 1), "0", "1000.00", "anchor")

	a, err := NewAccumulator(forward, nil).CurrentBalance(context.Background())
	require.NoError(t, err)
	b, err := NewAccumulator(backward, nil).CurrentBalance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1010.00", a.Decimal.StringFixed(2))
	assert.True(t, a.Decimal.Equal(b.Decimal))
}
