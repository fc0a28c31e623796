package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLogger_SharesEntriesWithDerivedLoggers(t *testing.T) {
	mock := NewMockLogger()

	mock.Info("import started")
	mock.WithField(FieldBatchID, "b-1").Warn("row malformed", Field{Key: FieldRow, Value: 3})
	mock.WithError(errors.New("boom")).Error("snapshot failed")

	entries := mock.GetEntries()
	require.Len(t, entries, 3)

	assert.True(t, mock.HasEntry("INFO", "import started"))
	warn := mock.GetEntriesByLevel("WARN")
	require.Len(t, warn, 1)
	assert.Equal(t, []Field{{Key: FieldBatchID, Value: "b-1"}, {Key: FieldRow, Value: 3}}, warn[0].Fields)

	errs := mock.GetEntriesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0].Error, "boom")
}

func TestMockLogger_ZeroValueUsable(t *testing.T) {
	var mock MockLogger
	mock.Debug("zero value")
	assert.True(t, mock.HasEntry("DEBUG", "zero value"))
}
