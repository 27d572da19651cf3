package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "eob_history",
		Columns:      []string{"rfb_id", "eob_ranker"},
		ConflictKeys: []string{"rfb_id", "eob_ranker"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "eob_history",
		ConflictKeys: []string{"rfb_id"},
	}, [][]any{{"rfb-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:   "eob_history",
		Columns: []string{"rfb_id", "eob_ranker"},
	}, [][]any{{"rfb-1", 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"claims", `"claims"`},
		{"reporting.claims", `"reporting"."claims"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"rfb_id", "eob_ranker", "eob_start_dt"})
	assert.Equal(t, `"rfb_id", "eob_ranker", "eob_start_dt"`, result)
}
