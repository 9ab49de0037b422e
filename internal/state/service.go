package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"onboarding-hub/internal/domain"
	"onboarding-hub/internal/metrics"
	"onboarding-hub/internal/worker"
)

// Service is what the sync endpoints need from the store.
type Service interface {
	Get() domain.SharedDocument
	Update(patch Patch) domain.SharedDocument
}

// Notifier receives every new canonical document.
type Notifier interface {
	Broadcast(doc domain.SharedDocument) error
}

// Store owns the canonical shared document. Writes are merged field by field:
// each top-level field present in a patch replaces the stored value, absent
// fields are kept. There is no version check; the last Update to run wins.
type Store struct {
	mu        sync.Mutex
	doc       domain.SharedDocument
	notifier  Notifier
	repo      Repository
	persister *worker.WorkerPool
	now       func() int64
}

type StoreOption func(*Store)

// WithClock overrides the millisecond clock used to coerce timestamps.
func WithClock(now func() int64) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(repo Repository, notifier Notifier, persister *worker.WorkerPool, opts ...StoreOption) *Store {
	s := &Store{
		doc:       domain.NewSharedDocument(),
		notifier:  notifier,
		repo:      repo,
		persister: persister,
		now:       nowMillis,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the default document with the persisted snapshot, if any.
// Every failure is logged and leaves the default in place; the snapshot is
// never modified here.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.publish()

	raw, err := s.repo.Load(ctx)
	if errors.Is(err, ErrSnapshotNotFound) {
		log.Info().Str("backend", s.repo.Name()).Msg("no persisted shared state, starting empty")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("backend", s.repo.Name()).Msg("failed to load persisted state")
		return
	}

	doc, err := mergeSnapshot(domain.NewSharedDocument(), raw, s.now)
	if err != nil {
		log.Warn().Err(err).Str("backend", s.repo.Name()).Msg("failed to load persisted state")
		return
	}
	s.doc = doc
	log.Info().Str("backend", s.repo.Name()).Int64("last_updated", doc.LastUpdated).Msg("loaded persisted shared state")
}

func (s *Store) Get() domain.SharedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Update applies patch, broadcasts the result and queues persistence. The
// returned document is the new canonical state.
func (s *Store) Update(patch Patch) domain.SharedDocument {
	s.mu.Lock()
	next := s.doc
	if patch.Schedule != nil {
		next.Schedule = domain.CloneSchedule(*patch.Schedule)
	}
	if patch.CompletedTasks != nil {
		next.CompletedTasks = append([]string{}, (*patch.CompletedTasks)...)
	}
	if patch.WeeklyComments != nil {
		next.WeeklyComments = domain.CloneComments(*patch.WeeklyComments)
		if next.WeeklyComments == nil {
			next.WeeklyComments = map[string][]domain.Comment{}
		}
	}
	if patch.UserName != nil {
		next.UserName = *patch.UserName
	}
	next.LastUpdated = CoerceTimestamp(patch.LastUpdated, s.now)
	s.doc = next
	s.publish()
	out := s.doc.Clone()
	s.mu.Unlock()

	metrics.RecordStateWrite()
	s.persist(out)
	return out
}

// publish must be called with s.mu held so broadcasts leave in store order.
func (s *Store) publish() {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Broadcast(s.doc.Clone()); err != nil {
		log.Error().Err(err).Msg("broadcast failed")
	}
}

func (s *Store) persist(doc domain.SharedDocument) {
	if s.repo == nil || s.persister == nil {
		return
	}
	snapshot, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode shared state")
		return
	}

	backend := s.repo.Name()
	accepted := s.persister.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := s.repo.Save(ctx, snapshot); err != nil {
			metrics.RecordPersistence(backend, "failed")
			return fmt.Errorf("persist shared state to %s: %w", backend, err)
		}
		metrics.RecordPersistence(backend, "success")
		return nil
	})
	if !accepted {
		metrics.RecordPersistence(backend, "dropped")
	}
}

// mergeSnapshot overlays the fields of a persisted JSON object onto base.
// Unknown keys are ignored and a field that does not decode keeps base's value.
func mergeSnapshot(base domain.SharedDocument, raw []byte, now func() int64) (domain.SharedDocument, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return base, errors.New("persisted state is not a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base, fmt.Errorf("parse persisted state: %w", err)
	}

	out := base
	decodeField(fields, "schedule", &out.Schedule)
	decodeField(fields, "completedTasks", &out.CompletedTasks)
	decodeField(fields, "weeklyComments", &out.WeeklyComments)
	decodeField(fields, "userName", &out.UserName)

	var last any
	decodeField(fields, "lastUpdated", &last)
	out.LastUpdated = CoerceTimestamp(last, now)

	if out.CompletedTasks == nil {
		out.CompletedTasks = []string{}
	}
	if out.WeeklyComments == nil {
		out.WeeklyComments = map[string][]domain.Comment{}
	}
	return out, nil
}

func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) {
	v, ok := fields[key]
	if !ok {
		return
	}
	var decoded T
	if err := json.Unmarshal(v, &decoded); err != nil {
		log.Warn().Err(err).Str("field", key).Msg("ignoring malformed persisted field")
		return
	}
	*dst = decoded
}
