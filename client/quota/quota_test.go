package quota

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIncrementAndCheckLimit(t *testing.T) {
	tracker := NewTracker(&MemStore{}, DefaultDailyLimit)
	for n := 0; n <= DefaultDailyLimit; n++ {
		limit := tracker.CheckLimit(false)
		if limit.Used != n {
			t.Fatalf("after %d increments, used=%d (expected=%d)", n, limit.Used, n)
		}
		if *limit.Remaining != DefaultDailyLimit-n {
			t.Fatalf("after %d increments, remaining=%d (expected=%d)", n, *limit.Remaining, DefaultDailyLimit-n)
		}
		if limit.Allowed != (n < DefaultDailyLimit) {
			t.Fatalf("after %d increments, allowed=%v", n, limit.Allowed)
		}
		tracker.IncrementCount(false)
	}
}

func TestAuthenticatedIsNeverMetered(t *testing.T) {
	store := &MemStore{}
	tracker := NewTracker(store, DefaultDailyLimit)

	limit := tracker.CheckLimit(true)
	require.True(t, limit.Allowed)
	require.Nil(t, limit.Remaining)
	require.Nil(t, limit.Max)

	before := store.Record
	tracker.IncrementCount(true)
	require.Equal(t, before, store.Record, "IncrementCount(true) must not mutate the stored record")
}

func TestDayRollover(t *testing.T) {
	store := &MemStore{Record: UsageRecord{DateKey: "2020-01-01", Count: 99}}
	tracker := NewTracker(store, DefaultDailyLimit)

	limit := tracker.CheckLimit(false)
	if limit.Used != 0 {
		t.Fatalf("stale date key was not rolled over, used=%d", limit.Used)
	}
	require.True(t, limit.Allowed)

	tracker.IncrementCount(false)
	require.Equal(t, 1, store.Record.Count)
	require.Equal(t, time.Now().Format("2006-01-02"), store.Record.DateKey)
}

func TestGetStatusKinds(t *testing.T) {
	testcases := []struct {
		count        int
		expectedKind StatusKind
	}{
		{0, StatusNormal},
		{1, StatusNormal},
		{2, StatusNormal},
		{3, StatusWarning},
		{4, StatusWarning},
		{5, StatusLimitReached},
		{6, StatusLimitReached},
	}
	for _, tc := range testcases {
		store := &MemStore{Record: UsageRecord{DateKey: time.Now().Format("2006-01-02"), Count: tc.count}}
		tracker := NewTracker(store, DefaultDailyLimit)
		status := tracker.GetStatus(false)
		if status.Kind != tc.expectedKind {
			t.Fatalf("GetStatus(false) with count=%d returned kind=%q (expected=%q)", tc.count, status.Kind, tc.expectedKind)
		}
		if status.Message == "" {
			t.Fatalf("GetStatus(false) with count=%d returned an empty message", tc.count)
		}
	}

	status := NewTracker(&MemStore{}, DefaultDailyLimit).GetStatus(true)
	require.Equal(t, StatusUnlimited, status.Kind)
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	store := &MemStore{Err: errors.New("storage is unavailable")}
	tracker := NewTracker(store, DefaultDailyLimit)

	limit := tracker.CheckLimit(false)
	require.True(t, limit.Allowed, "a broken store must degrade to an empty record, not block the user")
	require.Equal(t, 0, limit.Used)

	// Must not panic or surface the error
	tracker.IncrementCount(false)
	require.Equal(t, StatusNormal, tracker.GetStatus(false).Kind)
}

func TestGetRemainingTime(t *testing.T) {
	tracker := NewTracker(&MemStore{}, DefaultDailyLimit)
	tracker.now = func() time.Time {
		return time.Date(2022, 1, 9, 16, 35, 58, 0, time.Local)
	}
	reset := tracker.GetRemainingTime()
	require.Equal(t, 8, reset.HoursUntilReset)
	require.Equal(t, "Jan 10 00:00", reset.ResetTimeLabel)

	// Exactly on the hour still rounds up to the full remaining hours
	tracker.now = func() time.Time {
		return time.Date(2022, 1, 9, 23, 0, 0, 0, time.Local)
	}
	require.Equal(t, 1, tracker.GetRemainingTime().HoursUntilReset)
}

func TestReset(t *testing.T) {
	store := &MemStore{Record: UsageRecord{DateKey: time.Now().Format("2006-01-02"), Count: 3}}
	tracker := NewTracker(store, DefaultDailyLimit)
	require.NoError(t, tracker.Reset())
	require.Equal(t, 0, tracker.CheckLimit(false).Used)
}
