package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiver_WritesInSubmitOrder(t *testing.T) {
	repo := newFakeRepo()
	archiver := NewArchiver(repo, ArchiverConfig{QueueSize: 16, WriteTimeout: time.Second}, discardLogger())

	for _, text := range []string{"one", "two", "three"} {
		require.True(t, archiver.Submit(domain.NewChatMessage("lobby", "A", text, fixedNow)))
	}
	require.NoError(t, archiver.Close(context.Background()))

	stored, err := repo.FetchHistory(context.Background(), "lobby", 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "one", stored[0].Text)
	assert.Equal(t, "two", stored[1].Text)
	assert.Equal(t, "three", stored[2].Text)
}

func TestArchiver_FullQueueDropsWithoutBlocking(t *testing.T) {
	repo := newFakeRepo()
	repo.block = make(chan struct{})
	archiver := NewArchiver(repo, ArchiverConfig{QueueSize: 1, WriteTimeout: time.Minute}, discardLogger())

	// The worker holds one message, the queue one more, the rest are dropped.
	accepted := 0
	for range 5 {
		if archiver.Submit(domain.NewChatMessage("lobby", "A", "x", fixedNow)) {
			accepted++
		}
	}
	assert.GreaterOrEqual(t, accepted, 1)
	assert.LessOrEqual(t, accepted, 2)

	close(repo.block)
	require.NoError(t, archiver.Close(context.Background()))
}

func TestArchiver_StoreErrorsAreSwallowed(t *testing.T) {
	repo := newFakeRepo()
	repo.appendErr = errStoreDown
	archiver := NewArchiver(repo, ArchiverConfig{}, discardLogger())

	assert.True(t, archiver.Submit(domain.NewChatMessage("lobby", "A", "x", fixedNow)))
	repo.waitAppended(t, 1)
	require.NoError(t, archiver.Close(context.Background()))
}

func TestArchiver_SubmitAfterClose(t *testing.T) {
	archiver := NewArchiver(newFakeRepo(), ArchiverConfig{}, discardLogger())
	require.NoError(t, archiver.Close(context.Background()))
	require.NoError(t, archiver.Close(context.Background()))

	assert.False(t, archiver.Submit(domain.NewChatMessage("lobby", "A", "x", fixedNow)))
}

func TestArchiver_CloseHonoursContext(t *testing.T) {
	repo := newFakeRepo()
	repo.block = make(chan struct{})
	archiver := NewArchiver(repo, ArchiverConfig{WriteTimeout: time.Minute}, discardLogger())
	require.True(t, archiver.Submit(domain.NewChatMessage("lobby", "A", "x", fixedNow)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, archiver.Close(ctx), context.DeadlineExceeded)

	close(repo.block)
}
