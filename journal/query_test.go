package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOrdersBetweenEmpty(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	recs, err := j.ListOrdersBetween(start, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestListOrdersBetweenNoMatches(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	at := time.Date(2024, 1, 9, 1, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordOrder(OrderRecord{CycleID: "C1", Time: at, Instrument: "379800", Status: StatusFilled}))

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	recs, err := j.ListOrdersBetween(start, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestListOrdersBetweenBoundaries(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"start is inclusive", start, 1},
		{"end is exclusive", end, 0},
		{"one second before end", end.Add(-time.Second), 1},
		{"one second before start", start.Add(-time.Second), 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			j, _ := newTestSQLite(t)
			defer j.Close()

			require.NoError(t, j.RecordOrder(OrderRecord{CycleID: "C1", Time: tt.at, Instrument: "379800", Status: StatusFilled}))
			recs, err := j.ListOrdersBetween(start, end)
			require.NoError(t, err)
			assert.Len(t, recs, tt.want)
		})
	}
}

func TestListOrdersBetweenOrdering(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	// Written out of order; a cycle's rows at the same instant keep insert order.
	require.NoError(t, j.RecordOrder(OrderRecord{CycleID: "C2", Time: base.Add(time.Hour), Instrument: "379800", Status: StatusFilled}))
	require.NoError(t, j.RecordOrder(OrderRecord{CycleID: "C1", Time: base, Instrument: "379800", Status: StatusFilled}))
	require.NoError(t, j.RecordOrder(OrderRecord{CycleID: "C1", Time: base, Instrument: "379810", Status: StatusSkipped}))
	require.NoError(t, j.RecordOrder(OrderRecord{CycleID: "C1", Time: base, Instrument: "069500", Status: StatusFailed}))

	recs, err := j.ListOrdersBetween(base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 4)

	var got []string
	for _, r := range recs {
		got = append(got, r.CycleID+"/"+r.Instrument)
	}
	assert.Equal(t, []string{"C1/379800", "C1/379810", "C1/069500", "C2/379800"}, got)
	assert.Equal(t, StatusSkipped, recs[1].Status)
}

func TestListByUnknownRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	require.NoError(t, j.RecordTrade(TradeRecord{RunID: "R1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Instrument: "379800", Quantity: 1}))

	trades, err := j.ListTradesByRun("R2")
	require.NoError(t, err)
	assert.Empty(t, trades)

	eq, err := j.ListEquityByRun("R2")
	require.NoError(t, err)
	assert.Empty(t, eq)

	runs, err := j.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
