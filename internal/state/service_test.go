package state

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"onboarding-hub/internal/domain"
	"onboarding-hub/internal/worker"
)

const fixedNow int64 = 1_700_000_000_000

func fixedClock() int64 { return fixedNow }

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Name() string { return "mock" }

func (m *MockRepository) Load(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, snapshot []byte) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

type recordingNotifier struct {
	mu   sync.Mutex
	docs []domain.SharedDocument
}

func (n *recordingNotifier) Broadcast(doc domain.SharedDocument) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.docs = append(n.docs, doc)
	return nil
}

func (n *recordingNotifier) last() domain.SharedDocument {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.docs[len(n.docs)-1]
}

func ptr[T any](v T) *T { return &v }

func newFileStore(t *testing.T, path string) (*Store, *recordingNotifier, *worker.WorkerPool) {
	t.Helper()
	notifier := &recordingNotifier{}
	pool := worker.NewWorkerPool("persist-test", 1, 16)
	t.Cleanup(pool.Shutdown)
	return NewStore(NewFileRepository(path), notifier, pool, WithClock(fixedClock)), notifier, pool
}

func TestUpdate_FieldLevelLastWriteWins(t *testing.T) {
	store, _, _ := newFileStore(t, filepath.Join(t.TempDir(), "state.json"))

	store.Update(Patch{CompletedTasks: ptr([]string{"0-0-am-0"}), LastUpdated: float64(1000)})
	doc := store.Get()
	assert.Equal(t, []string{"0-0-am-0"}, doc.CompletedTasks)
	assert.Equal(t, int64(1000), doc.LastUpdated)

	// an older timestamp still overwrites; the store does not enforce ordering
	store.Update(Patch{UserName: ptr("Kim"), LastUpdated: float64(900)})
	doc = store.Get()
	assert.Equal(t, []string{"0-0-am-0"}, doc.CompletedTasks)
	assert.Equal(t, "Kim", doc.UserName)
	assert.Equal(t, int64(900), doc.LastUpdated)
}

func TestUpdate_LaterFieldWinsRegardlessOfTimestamps(t *testing.T) {
	store, _, _ := newFileStore(t, filepath.Join(t.TempDir(), "state.json"))
	staleSchedule := []domain.Week{{Week: 1, Title: "stale"}}
	freshSchedule := []domain.Week{{Week: 1, Title: "fresh"}}

	store.Update(Patch{Schedule: &freshSchedule, LastUpdated: float64(5000)})
	store.Update(Patch{Schedule: &staleSchedule, CompletedTasks: ptr([]string{"x"}), LastUpdated: float64(10)})

	doc := store.Get()
	assert.Equal(t, "stale", doc.Schedule[0].Title)
	assert.Equal(t, []string{"x"}, doc.CompletedTasks)
}

func TestUpdate_AbsentFieldsAreKept(t *testing.T) {
	store, _, _ := newFileStore(t, filepath.Join(t.TempDir(), "state.json"))
	comments := map[string][]domain.Comment{"0": {{ID: "a1", Text: "hi", Author: "Kim", Timestamp: 1}}}

	store.Update(Patch{WeeklyComments: &comments, UserName: ptr("Kim"), LastUpdated: float64(1)})
	store.Update(Patch{LastUpdated: float64(2)})

	doc := store.Get()
	assert.Equal(t, comments, doc.WeeklyComments)
	assert.Equal(t, "Kim", doc.UserName)
	assert.Nil(t, doc.Schedule)
	assert.Equal(t, []string{}, doc.CompletedTasks)
}

func TestUpdate_EmptyValuesArePresent(t *testing.T) {
	store, _, _ := newFileStore(t, filepath.Join(t.TempDir(), "state.json"))
	store.Update(Patch{CompletedTasks: ptr([]string{"a"}), UserName: ptr("Kim"), LastUpdated: float64(1)})

	store.Update(Patch{CompletedTasks: ptr([]string{}), UserName: ptr(""), LastUpdated: float64(2)})

	doc := store.Get()
	assert.Empty(t, doc.CompletedTasks)
	assert.Equal(t, "", doc.UserName)
}

func TestUpdate_CoercesTimestamp(t *testing.T) {
	store, _, _ := newFileStore(t, filepath.Join(t.TempDir(), "state.json"))

	cases := []struct {
		in   any
		want int64
	}{
		{nil, fixedNow},
		{"1234", 1234},
		{" 99.9 ", 99},
		{"soon", fixedNow},
		{"", fixedNow},
		{true, fixedNow},
		{map[string]any{}, fixedNow},
		{float64(42), 42},
		{float64(-5), -5},
		{1e19, fixedNow},
		{-1e19, fixedNow},
		{1e300, fixedNow},
		{"1e300", fixedNow},
		{math.NaN(), fixedNow},
		{math.Inf(1), fixedNow},
	}
	for _, tc := range cases {
		doc := store.Update(Patch{LastUpdated: tc.in})
		assert.Equal(t, tc.want, doc.LastUpdated, "input %#v", tc.in)
	}
}

func TestUpdate_BroadcastsNewDocument(t *testing.T) {
	store, notifier, _ := newFileStore(t, filepath.Join(t.TempDir(), "state.json"))

	store.Update(Patch{UserName: ptr("Lee"), LastUpdated: float64(77)})

	got := notifier.last()
	assert.Equal(t, "Lee", got.UserName)
	assert.Equal(t, int64(77), got.LastUpdated)
}

func TestUpdate_PersistsSnapshotToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store, _, pool := newFileStore(t, path)

	store.Update(Patch{CompletedTasks: ptr([]string{"0-1-pm-2"}), LastUpdated: float64(3)})
	store.Update(Patch{UserName: ptr("Park"), LastUpdated: float64(4)})
	pool.Shutdown()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"completedTasks\"", "snapshot is indented")

	var persisted domain.SharedDocument
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, store.Get(), persisted)
}

func TestUpdate_PersistenceFailureDoesNotRollBack(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	pool := worker.NewWorkerPool("persist-test", 1, 4)
	store := NewStore(repo, &recordingNotifier{}, pool, WithClock(fixedClock))

	doc := store.Update(Patch{UserName: ptr("Kim"), LastUpdated: float64(10)})
	pool.Shutdown()

	assert.Equal(t, "Kim", doc.UserName)
	assert.Equal(t, "Kim", store.Get().UserName)
	repo.AssertExpectations(t)
}

func TestGet_ReturnsIndependentCopy(t *testing.T) {
	store, _, _ := newFileStore(t, filepath.Join(t.TempDir(), "state.json"))
	store.Update(Patch{CompletedTasks: ptr([]string{"a"}), LastUpdated: float64(1)})

	doc := store.Get()
	doc.CompletedTasks[0] = "mutated"

	assert.Equal(t, []string{"a"}, store.Get().CompletedTasks)
}

func TestLoad_MissingFileKeepsDefault(t *testing.T) {
	store, notifier, _ := newFileStore(t, filepath.Join(t.TempDir(), "absent.json"))

	store.Load(context.Background())

	assert.Equal(t, domain.NewSharedDocument(), store.Get())
	assert.Len(t, notifier.docs, 1, "load publishes the starting document")
}

func TestLoad_MalformedFileKeepsDefaultAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schedule": [`), 0o644))
	store, _, _ := newFileStore(t, path)

	store.Load(context.Background())

	assert.Equal(t, domain.NewSharedDocument(), store.Get())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"schedule": [`, string(raw))
}

func TestLoad_NonObjectIsIgnored(t *testing.T) {
	for _, body := range []string{`[1,2]`, `42`, `null`, `"text"`} {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		store, _, _ := newFileStore(t, path)

		store.Load(context.Background())

		assert.Equal(t, domain.NewSharedDocument(), store.Get(), body)
	}
}

func TestLoad_MergesOverDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"userName":"Kim","lastUpdated":"5","extra":true}`), 0o644))
	store, notifier, _ := newFileStore(t, path)

	store.Load(context.Background())

	doc := store.Get()
	assert.Equal(t, "Kim", doc.UserName)
	assert.Equal(t, int64(5), doc.LastUpdated)
	assert.Nil(t, doc.Schedule)
	assert.Equal(t, []string{}, doc.CompletedTasks)
	assert.Equal(t, map[string][]domain.Comment{}, doc.WeeklyComments)
	assert.Equal(t, doc, notifier.last())
}

func TestLoad_CoercesMissingTimestampToNow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"completedTasks":["0-0-am-0"],"weeklyComments":null}`), 0o644))
	store, _, _ := newFileStore(t, path)

	store.Load(context.Background())

	doc := store.Get()
	assert.Equal(t, fixedNow, doc.LastUpdated)
	assert.Equal(t, []string{"0-0-am-0"}, doc.CompletedTasks)
	assert.NotNil(t, doc.WeeklyComments)
}

func TestLoad_MalformedFieldKeepsDefaultForThatField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schedule":"oops","userName":"Kim","lastUpdated":8}`), 0o644))
	store, _, _ := newFileStore(t, path)

	store.Load(context.Background())

	doc := store.Get()
	assert.Nil(t, doc.Schedule)
	assert.Equal(t, "Kim", doc.UserName)
	assert.Equal(t, int64(8), doc.LastUpdated)
}

func TestLoad_RepositoryErrorKeepsDefault(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything).Return(nil, errors.New("connection refused"))
	store := NewStore(repo, &recordingNotifier{}, nil, WithClock(fixedClock))

	store.Load(context.Background())

	assert.Equal(t, domain.NewSharedDocument(), store.Get())
	repo.AssertExpectations(t)
}

func TestUpdate_ConcurrentWritersDoNotLoseFields(t *testing.T) {
	store, _, _ := newFileStore(t, filepath.Join(t.TempDir(), "state.json"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 100 {
			store.Update(Patch{CompletedTasks: ptr([]string{"k"}), LastUpdated: float64(1)})
		}
	}()
	go func() {
		defer wg.Done()
		for range 100 {
			store.Update(Patch{UserName: ptr("Kim"), LastUpdated: float64(2)})
		}
	}()
	wg.Wait()

	doc := store.Get()
	assert.Equal(t, []string{"k"}, doc.CompletedTasks)
	assert.Equal(t, "Kim", doc.UserName)
}
