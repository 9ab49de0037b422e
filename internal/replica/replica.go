// Package replica is the client side of the shared document: a local copy
// that is mutated optimistically, pushed to the server and reconciled with
// server broadcasts by timestamp.
package replica

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"onboarding-hub/internal/domain"
	"onboarding-hub/internal/schedule"
	"onboarding-hub/internal/share"
	hubsync "onboarding-hub/internal/sync"
	"onboarding-hub/internal/worker"
)

const (
	// DefaultAuthor signs tasks and comments written without a user name.
	DefaultAuthor = "익명"
	// legacyUserName was stored by older clients as a placeholder.
	legacyUserName = "익명인턴"

	pushQueueSize = 256
)

type Replica struct {
	mu          sync.Mutex
	schedule    []domain.Week
	completed   *schedule.CompletionSet
	comments    map[string][]domain.Comment
	userName    string
	lastApplied int64

	client  hubsync.Client
	storage LocalStorage
	now     func() int64
	newID   func() string

	// pushQueue sends pushes one at a time in commit order, so the server
	// never ends on an older snapshot than one it has already accepted.
	pushQueue   *worker.WorkerPool
	pushes      sync.WaitGroup
	pushTimeout time.Duration
}

type Option func(*Replica)

// WithSchedule sets the schedule used until storage or the server provides one.
func WithSchedule(weeks []domain.Week) Option {
	return func(r *Replica) { r.schedule = domain.CloneSchedule(weeks) }
}

func WithClock(now func() int64) Option {
	return func(r *Replica) { r.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Replica) { r.newID = newID }
}

func New(client hubsync.Client, storage LocalStorage, opts ...Option) *Replica {
	r := &Replica{
		completed:   schedule.NewCompletionSet(nil),
		comments:    map[string][]domain.Comment{},
		client:      client,
		storage:     storage,
		now:         func() int64 { return time.Now().UnixMilli() },
		newID:       commentID,
		pushTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if client != nil {
		r.pushQueue = worker.NewWorkerPool("push", 1, pushQueueSize)
	}
	return r
}

// commentID returns a short random id. Collisions are tolerated.
func commentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Bootstrap initializes the replica. A valid share payload is adopted
// wholesale and pushed, skipping local storage and the server. Otherwise the
// replica loads local storage and then catches up with the server once.
func (r *Replica) Bootstrap(ctx context.Context, shareData string) {
	if shareData != "" {
		payload, err := share.FromLink(shareData)
		if err == nil {
			r.adopt(payload)
			return
		}
		log.Error().Err(err).Msg("failed to decode share payload, ignoring it")
	}

	r.loadLocal(ctx)
	r.CatchUp(ctx)
}

func (r *Replica) adopt(p share.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schedule = domain.CloneSchedule(p.Schedule)
	r.completed = schedule.NewCompletionSet(p.CompletedTasks)
	r.comments = domain.CloneComments(p.Comments)
	if r.comments == nil {
		r.comments = map[string][]domain.Comment{}
	}
	r.commit()
}

// loadLocal restores each stored field independently; a missing or unreadable
// field keeps its in-memory default.
func (r *Replica) loadLocal(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name, ok := r.readField(ctx, KeyUserName); ok && name != "" && name != legacyUserName {
		r.userName = name
	}
	if raw, ok := r.readField(ctx, KeySchedule); ok {
		var weeks []domain.Week
		if decodeLocal(KeySchedule, raw, &weeks) {
			r.schedule = weeks
		}
	}
	if raw, ok := r.readField(ctx, KeyCompletedTasks); ok {
		var keys []string
		if decodeLocal(KeyCompletedTasks, raw, &keys) {
			r.completed = schedule.NewCompletionSet(keys)
		}
	}
	if raw, ok := r.readField(ctx, KeyWeeklyComments); ok {
		var comments map[string][]domain.Comment
		if decodeLocal(KeyWeeklyComments, raw, &comments) && comments != nil {
			r.comments = comments
		}
	}
}

func (r *Replica) readField(ctx context.Context, key string) (string, bool) {
	if r.storage == nil {
		return "", false
	}
	v, ok, err := r.storage.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read local field")
		return "", false
	}
	return v, ok
}

func decodeLocal(key, raw string, dst any) bool {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("ignoring malformed local field")
		return false
	}
	return true
}

// CatchUp fetches the canonical document once and applies it when newer.
// Transport errors are swallowed; the replica keeps working offline.
func (r *Replica) CatchUp(ctx context.Context) bool {
	if r.client == nil {
		return false
	}
	doc, err := r.client.FetchState(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("catch-up fetch failed")
		return false
	}
	return r.Apply(doc)
}

// Follow applies every newer document from the server's event stream until
// ctx is cancelled or the stream fails. It does not reconnect.
func (r *Replica) Follow(ctx context.Context, onApply func(domain.SharedDocument)) error {
	return r.client.Stream(ctx, func(payload []byte) {
		var doc domain.SharedDocument
		if err := json.Unmarshal(payload, &doc); err != nil {
			log.Debug().Err(err).Msg("ignoring unparsable stream message")
			return
		}
		if r.Apply(doc) && onApply != nil {
			onApply(r.Snapshot())
		}
	})
}

// Apply merges a remote document if its timestamp is strictly newer than the
// last one applied or produced locally. Only present fields are taken: a
// non-null schedule, completion list or comment map, and a non-empty name.
// Applied documents are saved locally but never pushed back.
func (r *Replica) Apply(doc domain.SharedDocument) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.LastUpdated <= r.lastApplied {
		log.Debug().Int64("remote", doc.LastUpdated).Int64("local", r.lastApplied).Msg("discarding stale document")
		return false
	}

	if doc.Schedule != nil {
		r.schedule = domain.CloneSchedule(doc.Schedule)
	}
	if doc.CompletedTasks != nil {
		r.completed = schedule.NewCompletionSet(doc.CompletedTasks)
	}
	if doc.WeeklyComments != nil {
		r.comments = domain.CloneComments(doc.WeeklyComments)
	}
	if doc.UserName != "" {
		r.userName = doc.UserName
	}
	r.lastApplied = doc.LastUpdated
	r.saveLocal()
	return true
}

// ToggleTask flips the completion of slot and reports the new state. The key
// is not checked against the schedule.
func (r *Replica) ToggleTask(slot schedule.Slot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	done := r.completed.Toggle(slot.Key())
	r.commit()
	return done
}

func (r *Replica) AddTask(week, day int, session schedule.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := schedule.AddTask(r.schedule, week, day, session, r.author())
	if err != nil {
		return err
	}
	r.schedule = next
	r.commit()
	return nil
}

func (r *Replica) UpdateTask(slot schedule.Slot, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := schedule.UpdateTask(r.schedule, slot, text, r.author(), r.now())
	if err != nil {
		return err
	}
	r.schedule = next
	r.commit()
	return nil
}

// DeleteTask removes the task at slot. Completion keys of later tasks in the
// same list are left as they are.
func (r *Replica) DeleteTask(slot schedule.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := schedule.DeleteTask(r.schedule, slot)
	if err != nil {
		return err
	}
	r.schedule = next
	r.commit()
	return nil
}

func (r *Replica) AddComment(week int, text string) domain.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := domain.Comment{
		ID:        r.newID(),
		Text:      text,
		Author:    r.author(),
		Timestamp: r.now(),
	}
	key := weekKey(week)
	r.comments = r.cloneComments()
	r.comments[key] = append(r.comments[key], c)
	r.commit()
	return c
}

// DeleteComment removes every comment with id from week's thread.
func (r *Replica) DeleteComment(week int, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := weekKey(week)
	kept := make([]domain.Comment, 0, len(r.comments[key]))
	for _, c := range r.comments[key] {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	r.comments = r.cloneComments()
	r.comments[key] = kept
	r.commit()
}

func (r *Replica) SetUserName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userName = name
	r.commit()
}

// Snapshot returns the replica's current document.
func (r *Replica) Snapshot() domain.SharedDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.document()
}

func (r *Replica) Progress(week int) schedule.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return schedule.WeekProgress(r.schedule, week, r.completed)
}

// ShareLink encodes the schedule, completion set and comments onto base.
func (r *Replica) ShareLink(base string) (string, error) {
	r.mu.Lock()
	p := share.Payload{
		Schedule:       domain.CloneSchedule(r.schedule),
		CompletedTasks: r.completed.Keys(),
		Comments:       domain.CloneComments(r.comments),
	}
	r.mu.Unlock()
	return share.Link(base, p)
}

// Wait blocks until every push queued so far has finished.
func (r *Replica) Wait() {
	r.pushes.Wait()
}

// Close drains queued pushes and stops the push worker.
func (r *Replica) Close() {
	r.Wait()
	if r.pushQueue != nil {
		r.pushQueue.Shutdown()
	}
}

func (r *Replica) author() string {
	if r.userName == "" {
		return DefaultAuthor
	}
	return r.userName
}

func (r *Replica) document() domain.SharedDocument {
	return domain.SharedDocument{
		Schedule:       domain.CloneSchedule(r.schedule),
		CompletedTasks: r.completed.Keys(),
		WeeklyComments: domain.CloneComments(r.comments),
		UserName:       r.userName,
		LastUpdated:    r.lastApplied,
	}
}

// commit finishes a local mutation: save locally, stamp, push. Must be called
// with r.mu held.
func (r *Replica) commit() {
	r.saveLocal()
	r.lastApplied = r.now()
	r.push(r.document())
}

func (r *Replica) push(doc domain.SharedDocument) {
	if r.pushQueue == nil {
		return
	}
	r.pushes.Add(1)
	accepted := r.pushQueue.Submit(func(ctx context.Context) error {
		defer r.pushes.Done()
		ctx, cancel := context.WithTimeout(ctx, r.pushTimeout)
		defer cancel()
		if err := r.client.PushState(ctx, doc); err != nil {
			log.Debug().Err(err).Int64("last_updated", doc.LastUpdated).Msg("push failed, keeping local state")
		}
		return nil
	})
	if !accepted {
		r.pushes.Done()
	}
}

// saveLocal writes the four local fields. Must be called with r.mu held.
func (r *Replica) saveLocal() {
	if r.storage == nil {
		return
	}
	ctx := context.Background()
	fields := []struct {
		key   string
		value any
	}{
		{KeySchedule, r.schedule},
		{KeyCompletedTasks, r.completed.Keys()},
		{KeyWeeklyComments, r.comments},
	}
	if err := r.storage.Set(ctx, KeyUserName, r.userName); err != nil {
		log.Warn().Err(err).Str("key", KeyUserName).Msg("failed to save local field")
	}
	for _, f := range fields {
		raw, err := json.Marshal(f.value)
		if err != nil {
			log.Warn().Err(err).Str("key", f.key).Msg("failed to encode local field")
			continue
		}
		if err := r.storage.Set(ctx, f.key, string(raw)); err != nil {
			log.Warn().Err(err).Str("key", f.key).Msg("failed to save local field")
		}
	}
}

func (r *Replica) cloneComments() map[string][]domain.Comment {
	out := domain.CloneComments(r.comments)
	if out == nil {
		out = map[string][]domain.Comment{}
	}
	return out
}

func weekKey(week int) string {
	return strconv.Itoa(week)
}
