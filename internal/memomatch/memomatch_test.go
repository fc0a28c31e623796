package memomatch

import (
	"context"
	"testing"

	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/store"
	"fjacquet/church-ledger/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"  John   DOE ", "john doe"},
		{"Dues - June.", "dues - june"},
		{"\"Tithe\"", "tithe"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Normalize(tt.in))
	}
}

func TestUpsert_CreateRepointUnchanged(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	logger := logging.NewMockLogger()
	svc := NewService(s, logger)
	ann := storetest.AddMember(t, s, "Ann", "Lee")
	ben := storetest.AddMember(t, s, "Ben", "Ray")

	outcome, err := svc.Upsert(ctx, nil, "Jane Doe", ann)
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	outcome, err = svc.Upsert(ctx, nil, "JANE  DOE", ann)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)

	outcome, err = svc.Upsert(ctx, nil, "jane doe", ben)
	require.NoError(t, err)
	assert.Equal(t, Repointed, outcome)
	assert.True(t, logger.HasEntry("INFO", "Repointed memo match"))

	m, ok, err := svc.Lookup(ctx, "Jane Doe")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ben.ID, m.MemberID)
	assert.Equal(t, "Ben", m.FirstName)
}

func TestUpsert_IgnoresEmptyInput(t *testing.T) {
	s := storetest.New(t)
	svc := NewService(s, nil)
	member := storetest.AddMember(t, s, "Ann", "Lee")

	outcome, err := svc.Upsert(context.Background(), nil, "  ", member)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)

	outcome, err = svc.Upsert(context.Background(), nil, "memo", nil)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)
}

func TestUpsert_RollsBackWithTransaction(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	svc := NewService(s, nil)
	member := storetest.AddMember(t, s, "Ann", "Lee")

	_ = s.WithTx(ctx, func(tx *store.Store) error {
		_, err := svc.Upsert(ctx, tx, "rolled back", member)
		require.NoError(t, err)
		return assert.AnError
	})

	_, ok, err := svc.Lookup(ctx, "rolled back")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupMany(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	svc := NewService(s, nil)
	member := storetest.AddMember(t, s, "Ann", "Lee")
	_, err := svc.Upsert(ctx, nil, "ann lee", member)
	require.NoError(t, err)

	got, err := svc.LookupMany(ctx, []string{"ANN LEE", "Ann Lee", "", "someone else"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, member.ID, got["ann lee"].MemberID)
}
