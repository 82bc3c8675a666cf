package sync

import (
	"context"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"

	"github.com/tia2694/paludario/internal/model"
)

var equateEmpty = cmpopts.EquateEmpty()

// SyncFromRemote pulls the three documents and replaces every document that
// differs from memory. Settings are merged over the local ones before the
// comparison. Skipped while a save runs or without a remote.
func (s *Store) SyncFromRemote(ctx context.Context) Outcome {
	if !s.remoteConfigured() || s.saving.Load() {
		return Outcome{Status: Skipped}
	}

	docs := s.fetchAll(ctx)

	var kind changeKind
	s.mu.Lock()
	if docs.water != nil {
		if water, err := model.DecodeWater(docs.water); err != nil {
			s.logger.Warn("ignoring unreadable remote document", zap.String("path", s.cfg.Paths.Water), zap.Error(err))
		} else if !cmp.Equal(water, s.data.Water, equateEmpty) {
			s.data.Water = water
			kind |= changeWater
		}
	}
	if docs.dayTemplate != nil {
		if tpl, err := model.DecodeDayTemplate(docs.dayTemplate); err != nil {
			s.logger.Warn("ignoring unreadable remote document", zap.String("path", s.cfg.Paths.DayTemplate), zap.Error(err))
		} else if !cmp.Equal(tpl, s.data.DayTemplate, equateEmpty) {
			s.data.DayTemplate = tpl
			kind |= changeSchedule
		}
	}
	if docs.settings != nil {
		if merged, err := model.MergeSettings(s.data.Settings, docs.settings); err != nil {
			s.logger.Warn("ignoring unreadable remote document", zap.String("path", s.cfg.Paths.Settings), zap.Error(err))
		} else if !cmp.Equal(merged, s.data.Settings, equateEmpty) {
			s.data.Settings = merged
			kind |= changeSettings
		}
	}
	snap := s.data.Clone()
	if kind != 0 || docs.err == nil {
		s.baseline = Digest(s.data)
	}
	s.mu.Unlock()

	if kind != 0 {
		s.logger.Info("applied remote changes",
			zap.Bool("water", kind&changeWater != 0),
			zap.Bool("schedule", kind&changeSchedule != 0),
			zap.Bool("settings", kind&changeSettings != 0),
		)
		s.persistLocal(ctx, snap)
		s.notify(kind, snap, Event{Type: EventSync, Source: SourceRemote, At: s.now()})
	}

	if docs.err != nil {
		return s.record(Outcome{Status: LocalOnly, Err: docs.err, Changed: kind != 0})
	}
	return s.record(Outcome{Status: Synced, Changed: kind != 0})
}

// CheckForUpdates pulls when memory matches the last exchanged digest and
// pushes otherwise. Skipped without a remote, during a save, or while another
// check runs.
func (s *Store) CheckForUpdates(ctx context.Context) Outcome {
	if !s.remoteConfigured() || s.saving.Load() {
		return Outcome{Status: Skipped}
	}
	if !s.checking.CompareAndSwap(false, true) {
		return Outcome{Status: Skipped}
	}
	defer s.checking.Store(false)

	s.mu.RLock()
	current, baseline := Digest(s.data), s.baseline
	s.mu.RUnlock()

	if current == baseline {
		return s.SyncFromRemote(ctx)
	}

	// Save moves the baseline once the push lands
	s.logger.Debug("local changes detected, pushing", zap.String("digest", current))
	return s.Save(ctx)
}

// ForceSync pushes the local data and reloads from the remote.
func (s *Store) ForceSync(ctx context.Context) Outcome {
	if out := s.Save(ctx); out.Status != Synced {
		s.logger.Warn("force sync: push did not complete", zap.Stringer("outcome", out))
	}
	return s.Load(ctx)
}
