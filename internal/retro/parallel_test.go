package retro

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/eob-report/internal/model"
)

func TestComputeParallel_MatchesSerial(t *testing.T) {
	t.Parallel()
	window := marchWindow(t)

	var rows []model.EOBHistoryRow
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("rfb-%04d", i)
		start := time.Date(2023, time.Month(i%12+1), 1, 0, 0, 0, 0, time.UTC)
		decision := time.Date(2024, time.March, i%28+1, 0, 0, 0, 0, time.UTC)
		rows = append(rows,
			model.EOBHistoryRow{RFBID: id, Rank: 1, StartDate: &start, FirstDecision: &decision},
			model.EOBHistoryRow{RFBID: id, Rank: 2, StartDate: d(2022, time.June, 1), FirstDecision: d(2022, time.August, 1)},
		)
	}

	serial, err := Compute(rows, window)
	require.NoError(t, err)

	for _, workers := range []int{1, 4, 16} {
		parallel, err := ComputeParallel(context.Background(), rows, window, workers)
		require.NoError(t, err)
		assert.Equal(t, serial, parallel, "workers=%d", workers)
	}
}

func TestComputeParallel_ValidatesInput(t *testing.T) {
	t.Parallel()

	rows := []model.EOBHistoryRow{
		{RFBID: "rfb-1", Rank: 1},
		{RFBID: "rfb-1", Rank: 1},
	}
	_, err := ComputeParallel(context.Background(), rows, marchWindow(t), 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rank-1")
}

func TestComputeParallel_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []model.EOBHistoryRow{
		{RFBID: "rfb-1", Rank: 1, StartDate: d(2024, time.January, 1), FirstDecision: d(2024, time.March, 10)},
	}
	_, err := ComputeParallel(ctx, rows, marchWindow(t), 2)
	require.Error(t, err)
}
