package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/ponyo877/chatrelay/server/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(id, roomID, text string, offset time.Duration) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        id,
		RoomID:    roomID,
		Username:  "user-" + id,
		Text:      text,
		Timestamp: base.Add(offset),
	}
}

func texts(messages []domain.ChatMessage) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}
	return out
}

// testRepository runs the behaviour every history store must share.
func testRepository(t *testing.T, newRepo func(t *testing.T) usecase.Repository) {
	t.Run("history is oldest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		// Appended out of order on purpose.
		require.NoError(t, repo.AppendMessage(ctx, msg("02", "lobby", "second", 2*time.Second)))
		require.NoError(t, repo.AppendMessage(ctx, msg("01", "lobby", "first", time.Second)))
		require.NoError(t, repo.AppendMessage(ctx, msg("03", "lobby", "third", 3*time.Second)))

		got, err := repo.FetchHistory(ctx, "lobby", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, texts(got))
		assert.Equal(t, "lobby", got[0].RoomID)
		assert.Equal(t, "user-01", got[0].Username)
		assert.True(t, base.Add(time.Second).Equal(got[0].Timestamp))
	})

	t.Run("limit keeps the most recent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		for i, text := range []string{"a", "b", "c", "d"} {
			require.NoError(t, repo.AppendMessage(ctx, msg(text, "lobby", text, time.Duration(i)*time.Second)))
		}

		got, err := repo.FetchHistory(ctx, "lobby", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "d"}, texts(got))

		got, err = repo.FetchHistory(ctx, "lobby", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, texts(got))
	})

	t.Run("same timestamp orders by id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.AppendMessage(ctx, msg("b", "lobby", "later id", 0)))
		require.NoError(t, repo.AppendMessage(ctx, msg("a", "lobby", "earlier id", 0)))

		got, err := repo.FetchHistory(ctx, "lobby", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"earlier id", "later id"}, texts(got))
	})

	t.Run("rooms are isolated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.AppendMessage(ctx, msg("1", "lobby", "in lobby", 0)))
		require.NoError(t, repo.AppendMessage(ctx, msg("2", "den", "in den", time.Second)))

		got, err := repo.FetchHistory(ctx, "den", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"in den"}, texts(got))

		got, err = repo.FetchHistory(ctx, "attic", 0)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("search matches a regular expression", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.AppendMessage(ctx, msg("1", "lobby", "deploy at noon", 0)))
		require.NoError(t, repo.AppendMessage(ctx, msg("2", "lobby", "lunch first", time.Second)))
		require.NoError(t, repo.AppendMessage(ctx, msg("3", "lobby", "deploy done", 2*time.Second)))
		require.NoError(t, repo.AppendMessage(ctx, msg("4", "den", "deploy elsewhere", 3*time.Second)))

		got, err := repo.SearchMessages(ctx, "lobby", "^deploy")
		require.NoError(t, err)
		assert.Equal(t, []string{"deploy at noon", "deploy done"}, texts(got))

		got, err = repo.SearchMessages(ctx, "lobby", "n(oo|ch)")
		require.NoError(t, err)
		assert.Equal(t, []string{"deploy at noon", "lunch first"}, texts(got))

		got, err = repo.SearchMessages(ctx, "lobby", "nothing like this")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
