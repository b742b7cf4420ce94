package services

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classconnect-scraper/models"
)

func termFeed(ids ...string) []models.TermRecord {
	out := make([]models.TermRecord, len(ids))
	for i, id := range ids {
		out[i] = models.TermRecord{ID: id, Title: "Term " + id}
	}
	return out
}

func TestCollectDrainsFeedInOrder(t *testing.T) {
	cat := &fakeCatalog{terms: termFeed("1040", "1045", "1050")}

	got, err := Collect(context.Background(), cat.ForEachTerm, -1, nil)
	require.NoError(t, err)
	assert.Equal(t, termFeed("1040", "1045", "1050"), got)
}

func TestCollectShortFeedTerminates(t *testing.T) {
	cat := &fakeCatalog{terms: termFeed("1040")}

	done := make(chan struct{})
	var got []models.TermRecord
	go func() {
		defer close(done)
		got, _ = Collect(context.Background(), cat.ForEachTerm, 100, nil)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Collect did not return after the feed ended")
	}
	assert.Len(t, got, 1)
}

func TestCollectEmptyFeed(t *testing.T) {
	cat := &fakeCatalog{}
	got, err := Collect(context.Background(), cat.ForEachTerm, -1, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCollectCapStopsFeed(t *testing.T) {
	cat := &fakeCatalog{terms: termFeed("1", "2", "3", "4")}

	got, err := Collect(context.Background(), cat.ForEachTerm, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, termFeed("1", "2"), got)
}

func TestCollectZeroCapSkipsFeed(t *testing.T) {
	cat := &fakeCatalog{terms: termFeed("1")}

	got, err := Collect(context.Background(), cat.ForEachTerm, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, cat.calls)
}

func TestCollectPropagatesFeedError(t *testing.T) {
	boom := errors.New("registration down")
	cat := &fakeCatalog{terms: termFeed("1"), err: boom}

	got, err := Collect(context.Background(), cat.ForEachTerm, -1, nil)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
}

func TestCollectStalledFeedTimesOut(t *testing.T) {
	cat := &fakeCatalog{terms: termFeed("1"), stall: true}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := Collect(ctx, cat.ForEachTerm, -1, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCollectTapSeesEveryRecord(t *testing.T) {
	cat := &fakeCatalog{terms: termFeed("1", "1", "2")}

	var tapped []string
	tap := func(r models.TermRecord, at time.Time) error {
		assert.Equal(t, discovered, at)
		tapped = append(tapped, r.ID)
		return nil
	}
	_, err := Collect(context.Background(), cat.ForEachTerm, -1, tap)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1", "2"}, tapped)
}

func TestCollectTapErrorAborts(t *testing.T) {
	cat := &fakeCatalog{terms: termFeed("1", "2")}
	diskFull := errors.New("disk full")

	_, err := Collect(context.Background(), cat.ForEachTerm, -1, func(models.TermRecord, time.Time) error {
		return diskFull
	})
	assert.ErrorIs(t, err, diskFull)
}
