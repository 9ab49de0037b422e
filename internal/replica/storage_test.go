package replica

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStorage_GetSet(t *testing.T) {
	storage, err := OpenStorage(filepath.Join(t.TempDir(), "replica.db"))
	require.NoError(t, err)
	defer storage.Close()
	ctx := context.Background()

	_, ok, err := storage.Get(ctx, KeyUserName)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Set(ctx, KeyUserName, "Kim"))
	require.NoError(t, storage.Set(ctx, KeyUserName, "Lee"))
	require.NoError(t, storage.Set(ctx, KeyCompletedTasks, `["0-0-am-0"]`))

	v, ok, err := storage.Get(ctx, KeyUserName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Lee", v)

	v, _, err = storage.Get(ctx, KeyCompletedTasks)
	require.NoError(t, err)
	assert.Equal(t, `["0-0-am-0"]`, v)
}

func TestGormStorage_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replica.db")
	ctx := context.Background()

	first := New(nil, mustOpen(t, path), WithSchedule(sampleWeeks()), WithClock(stepClock()))
	first.SetUserName("Kim")
	first.AddComment(2, "note")

	second := New(nil, mustOpen(t, path))
	second.Bootstrap(ctx, "")

	doc := second.Snapshot()
	assert.Equal(t, "Kim", doc.UserName)
	assert.Equal(t, sampleWeeks(), doc.Schedule)
	require.Len(t, doc.WeeklyComments["2"], 1)
	assert.Equal(t, "note", doc.WeeklyComments["2"][0].Text)
}

func TestMemoryStorage_EmptyValueIsPresent(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, KeyUserName, ""))

	v, ok, err := storage.Get(ctx, KeyUserName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func mustOpen(t *testing.T, path string) *GormStorage {
	t.Helper()
	storage, err := OpenStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}
