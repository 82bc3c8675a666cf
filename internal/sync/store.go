package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/remote"
)

// Store owns the aggregate and reconciles it with the local and remote
// stores. It is safe for concurrent use.
type Store struct {
	cfg    Config
	local  Local
	remote Remote
	logger *zap.Logger
	now    func() time.Time

	mu          stdsync.RWMutex
	data        model.Aggregate
	baseline    string
	lastSync    time.Time
	lastOutcome Outcome

	saving   atomic.Bool
	checking atomic.Bool

	listenersMu stdsync.RWMutex
	listeners   []Listener

	cronMu    stdsync.Mutex
	scheduler *cron.Cron
	entry     cron.EntryID
}

// New creates a Store holding the built-in defaults. rem may be nil for a
// local-only store; a nil logger discards output.
func New(local Local, rem Remote, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Paths == (Paths{}) {
		cfg.Paths = def.Paths
	}
	if cfg.ConflictRetries < 0 {
		cfg.ConflictRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	return &Store{
		cfg:    cfg,
		local:  local,
		remote: rem,
		logger: logger,
		now:    time.Now,
		data:   model.DefaultAggregate(),
	}
}

// Subscribe registers l for change notifications.
func (s *Store) Subscribe(l Listener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// Snapshot returns a deep copy of the aggregate.
func (s *Store) Snapshot() model.Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Info describes the sync state for status displays.
type Info struct {
	RemoteConfigured bool
	AutoSync         bool
	LastSync         time.Time
	LastOutcome      Outcome
	Digest           string
	Pending          bool
}

// Status reports the current sync state. Pending is true when memory differs
// from what was last exchanged with the remote.
func (s *Store) Status() Info {
	s.mu.RLock()
	info := Info{
		RemoteConfigured: s.remoteConfigured(),
		LastSync:         s.lastSync,
		LastOutcome:      s.lastOutcome,
		Digest:           Digest(s.data),
	}
	info.Pending = info.Digest != s.baseline
	s.mu.RUnlock()
	info.AutoSync = s.AutoSyncRunning()
	return info
}

func (s *Store) remoteConfigured() bool {
	return s.remote != nil && s.remote.Configured()
}

func (s *Store) record(o Outcome) Outcome {
	s.mu.Lock()
	s.lastOutcome = o
	if o.Status == Synced {
		s.lastSync = s.now()
	}
	s.mu.Unlock()
	return o
}

// Load installs the local copy and then overlays the remote documents. It
// never fails: remote problems yield a LocalOnly outcome. Changed reports
// whether any remote document differed from the local copy.
func (s *Store) Load(ctx context.Context) Outcome {
	local, err := s.local.LoadAggregate(ctx)
	if err != nil {
		s.logger.Error("failed to read local data, keeping memory", zap.Error(err))
		local = s.Snapshot()
	}

	s.mu.Lock()
	s.data = local.Clone()
	s.mu.Unlock()

	if !s.remoteConfigured() {
		s.setBaseline()
		s.notifyAll(Event{Type: EventLoad, Source: SourceLocal, At: s.now()})
		return s.record(Outcome{Status: LocalOnly})
	}

	docs := s.fetchAll(ctx)

	s.mu.Lock()
	changed := false
	if docs.water != nil {
		if water, err := model.DecodeWater(docs.water); err != nil {
			s.logger.Warn("ignoring unreadable remote document", zap.String("path", s.cfg.Paths.Water), zap.Error(err))
		} else if len(water) > 0 && !cmp.Equal(water, s.data.Water, equateEmpty) {
			s.data.Water = water
			changed = true
		}
	}
	if docs.dayTemplate != nil {
		if tpl, err := model.DecodeDayTemplate(docs.dayTemplate); err != nil {
			s.logger.Warn("ignoring unreadable remote document", zap.String("path", s.cfg.Paths.DayTemplate), zap.Error(err))
		} else if !tpl.IsEmpty() && !cmp.Equal(tpl, s.data.DayTemplate, equateEmpty) {
			s.data.DayTemplate = tpl
			changed = true
		}
	}
	if docs.settings != nil {
		if merged, err := model.MergeSettings(s.data.Settings, docs.settings); err != nil {
			s.logger.Warn("ignoring unreadable remote document", zap.String("path", s.cfg.Paths.Settings), zap.Error(err))
		} else if !cmp.Equal(merged, s.data.Settings, equateEmpty) {
			s.data.Settings = merged
			changed = true
		}
	}
	snap := s.data.Clone()
	s.mu.Unlock()

	if changed {
		s.persistLocal(ctx, snap)
	}
	s.setBaseline()

	source := SourceRemote
	out := Outcome{Status: Synced, Changed: changed}
	if docs.err != nil {
		s.logger.Warn("remote not available, using local data", zap.Error(docs.err))
		out = Outcome{Status: LocalOnly, Err: docs.err, Changed: changed}
		if !changed {
			source = SourceLocal
		}
	}
	s.notifyAll(Event{Type: EventLoad, Source: source, At: s.now()})
	return s.record(out)
}

// LoadLocal installs the local copy without contacting the remote. The
// baseline is left alone, so data that differs from the last exchange stays
// pending.
func (s *Store) LoadLocal(ctx context.Context) error {
	local, err := s.local.LoadAggregate(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local data: %w", err)
	}

	s.mu.Lock()
	s.data = local.Clone()
	s.mu.Unlock()

	s.notifyAll(Event{Type: EventLoad, Source: SourceLocal, At: s.now()})
	return nil
}

// Save writes the aggregate locally and pushes the three documents. A call
// while another save runs returns Skipped.
func (s *Store) Save(ctx context.Context) Outcome {
	if !s.saving.CompareAndSwap(false, true) {
		return Outcome{Status: Skipped}
	}
	defer s.saving.Store(false)

	snap := s.Snapshot()
	if err := s.local.SaveAggregate(ctx, snap); err != nil {
		s.logger.Error("failed to save local data", zap.Error(err))
		return s.record(Outcome{Status: Failed, Err: err})
	}
	if !s.remoteConfigured() {
		return s.record(Outcome{Status: LocalOnly})
	}

	if err := s.pushAll(ctx, snap); err != nil {
		s.logger.Warn("remote save failed, data saved locally", zap.Error(err))
		return s.record(Outcome{Status: LocalOnly, Err: err})
	}

	s.mu.Lock()
	s.baseline = Digest(snap)
	s.mu.Unlock()
	s.logger.Debug("saved data to remote")
	return s.record(Outcome{Status: Synced})
}

// commit persists the aggregate after a named update. The local write always
// happens, even when the push is skipped by an in-flight save.
func (s *Store) commit(ctx context.Context) Outcome {
	s.persistLocal(ctx, s.Snapshot())
	return s.Save(ctx)
}

func (s *Store) persistLocal(ctx context.Context, agg model.Aggregate) {
	if err := s.local.SaveAggregate(ctx, agg); err != nil {
		s.logger.Error("failed to save local data", zap.Error(err))
	}
}

func (s *Store) setBaseline() {
	s.mu.Lock()
	s.baseline = Digest(s.data)
	s.mu.Unlock()
}

type fetched struct {
	water       []byte
	dayTemplate []byte
	settings    []byte
	err         error
}

// fetchAll reads the three documents concurrently. Missing documents are
// left nil; err holds the first transport failure.
func (s *Store) fetchAll(ctx context.Context) fetched {
	var out fetched
	var g errgroup.Group
	g.Go(func() (err error) {
		out.water, err = s.fetchDocument(ctx, s.cfg.Paths.Water)
		return err
	})
	g.Go(func() (err error) {
		out.dayTemplate, err = s.fetchDocument(ctx, s.cfg.Paths.DayTemplate)
		return err
	})
	g.Go(func() (err error) {
		out.settings, err = s.fetchDocument(ctx, s.cfg.Paths.Settings)
		return err
	})
	out.err = g.Wait()
	return out
}

// fetchDocument returns the raw JSON at path, nil when the document does not
// exist, or the failure for anything else.
func (s *Store) fetchDocument(ctx context.Context, path string) ([]byte, error) {
	if !s.remoteConfigured() {
		return nil, nil
	}
	doc, err := s.remote.Get(ctx, path)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			s.logger.Debug("remote document not found, using default", zap.String("path", path))
			return nil, nil
		}
		s.logger.Warn("failed to fetch remote document", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	return doc.Content, nil
}

// FetchRemoteDocument reads the document at path and decodes it as T. A
// missing document, an unreachable remote or undecodable content all yield
// def. Nothing is retried.
func FetchRemoteDocument[T any](ctx context.Context, s *Store, path string, def T) T {
	raw, err := s.fetchDocument(ctx, path)
	if err != nil || raw == nil {
		return def
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.Warn("failed to decode remote document", zap.String("path", path), zap.Error(err))
		return def
	}
	return out
}

func (s *Store) pushAll(ctx context.Context, agg model.Aggregate) error {
	var g errgroup.Group
	g.Go(func() error { return s.PushRemoteDocument(ctx, s.cfg.Paths.Water, agg.Water) })
	g.Go(func() error { return s.PushRemoteDocument(ctx, s.cfg.Paths.DayTemplate, agg.DayTemplate) })
	g.Go(func() error { return s.PushRemoteDocument(ctx, s.cfg.Paths.Settings, agg.Settings) })
	return g.Wait()
}

// PushRemoteDocument writes data to path. The current revision is read before
// each attempt; a stale revision is retried up to ConflictRetries times with
// exponential backoff. Other failures return at once.
func (s *Store) PushRemoteDocument(ctx context.Context, path string, data any) error {
	if !s.remoteConfigured() {
		return remote.ErrNotConfigured
	}

	for attempt := 0; ; attempt++ {
		revision := ""
		doc, err := s.remote.Get(ctx, path)
		switch {
		case err == nil:
			revision = doc.Revision
		case errors.Is(err, remote.ErrNotFound):
			s.logger.Debug("remote document missing, creating", zap.String("path", path))
		default:
			s.logger.Debug("failed to read revision, writing as new", zap.String("path", path), zap.Error(err))
		}

		_, err = s.remote.Put(ctx, path, data, revision)
		if err == nil {
			return nil
		}
		if !errors.Is(err, remote.ErrConflict) {
			return fmt.Errorf("failed to push %s: %w", path, err)
		}
		if attempt >= s.cfg.ConflictRetries {
			return fmt.Errorf("failed to push %s after %d attempts: %w", path, attempt+1, err)
		}

		delay := s.cfg.Backoff << attempt
		s.logger.Info("remote revision conflict, retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("failed to push %s: %w", path, ctx.Err())
		case <-timer.C:
		}
	}
}
