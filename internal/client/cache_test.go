package client

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secret-echo/secret-echo/internal/message"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_RoundTripSkipsUnconfirmed(t *testing.T) {
	c := openTestCache(t)

	entries := []Entry{
		{View: view("m2", "second", t0.Add(time.Minute), message.ReceiverUser)},
		{View: view("m1", "first", t0, message.ReceiverAI)},
		{View: view("temp-1", "pending", t0.Add(2*time.Minute), message.ReceiverAI), Optimistic: true},
		{View: view("temp-2", "rejected", t0.Add(3*time.Minute), message.ReceiverAI), Failed: true},
	}
	require.NoError(t, c.Save(1, entries))

	got, err := c.Load(1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// ascending by creation time regardless of save order
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, "echo", got[0].Sender.Username)
	assert.True(t, got[0].CreatedAt.Equal(t0))
}

func TestCache_SaveReplacesPreviousRows(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Save(1, []Entry{{View: view("m1", "old", t0, message.ReceiverAI)}}))
	require.NoError(t, c.Save(1, []Entry{{View: view("m2", "new", t0.Add(time.Minute), message.ReceiverAI)}}))

	got, err := c.Load(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)
}

func TestCache_UnknownUserIsEmptyNotError(t *testing.T) {
	c := openTestCache(t)

	got, err := c.Load(99)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_KeyedByUser(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Save(1, []Entry{{View: view("m1", "mine", t0, message.ReceiverAI)}}))
	require.NoError(t, c.Save(2, []Entry{{View: view("m2", "theirs", t0, message.ReceiverAI)}}))

	mine, err := c.Load(1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Content)
}
