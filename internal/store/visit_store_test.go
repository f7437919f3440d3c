package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhasit/tomhasit-web/internal/store"
	"github.com/tomhasit/tomhasit-web/internal/testutil"
)

func TestRecordVisit_Counts(t *testing.T) {
	vs := store.NewVisitStore(testutil.NewTestDB(t))
	ctx := context.Background()

	for _, v := range []store.Visit{
		{VisitorID: "a", Path: "/"},
		{VisitorID: "a", Path: "/gallery"},
		{VisitorID: "b", Path: "/"},
	} {
		require.NoError(t, vs.RecordVisit(ctx, v))
	}

	total, err := vs.CountTotal(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	visitors, err := vs.CountVisitors(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, visitors)
}

func TestRecordVisit_TruncatesLongPath(t *testing.T) {
	vs := store.NewVisitStore(testutil.NewTestDB(t))

	err := vs.RecordVisit(context.Background(), store.Visit{VisitorID: "a", Path: "/" + strings.Repeat("x", 2000)})
	require.NoError(t, err)
}

func TestMonthlyCounts(t *testing.T) {
	vs := store.NewVisitStore(testutil.NewTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	stamps := []time.Time{
		time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC), // outside the 12-month window
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	for _, ts := range stamps {
		require.NoError(t, vs.RecordVisit(ctx, store.Visit{VisitorID: "v", Path: "/", VisitedAt: ts}))
	}

	got, err := vs.MonthlyCounts(ctx, now, 12)
	require.NoError(t, err)
	require.Len(t, got, 12)

	assert.Equal(t, "Apr", got[0].Label())
	assert.Equal(t, "Mar", got[11].Label())
	assert.EqualValues(t, 1, got[0].Count)  // Apr 2025
	assert.EqualValues(t, 2, got[9].Count)  // Jan 2026
	assert.EqualValues(t, 0, got[10].Count) // Feb 2026
	assert.EqualValues(t, 1, got[11].Count) // Mar 2026

	var sum int64
	for _, m := range got {
		sum += m.Count
	}
	assert.EqualValues(t, 4, sum)
}

func TestMonthlyCounts_Empty(t *testing.T) {
	vs := store.NewVisitStore(testutil.NewTestDB(t))

	got, err := vs.MonthlyCounts(context.Background(), time.Now(), 6)
	require.NoError(t, err)
	require.Len(t, got, 6)
	for _, m := range got {
		assert.Zero(t, m.Count)
	}
}
