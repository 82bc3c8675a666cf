package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tia2694/paludario/internal/localstore"
	"github.com/tia2694/paludario/internal/model"
)

func TestDigest(t *testing.T) {
	a := model.DefaultAggregate()
	b := model.DefaultAggregate()
	assert.Equal(t, Digest(a), Digest(b))
	assert.Len(t, Digest(a), 16)

	b.Settings.Title = "changed"
	assert.NotEqual(t, Digest(a), Digest(b))
}

func TestCheckForUpdates_DigestStability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.Equal(t, Synced, f.store.Load(ctx).Status)
	getsAfterLoad := f.srv.Gets(waterPath)

	// No local change: the check pulls and writes nothing.
	out := f.store.CheckForUpdates(ctx)
	assert.Equal(t, Synced, out.Status)
	assert.False(t, out.Changed)
	assert.Equal(t, getsAfterLoad+1, f.srv.Gets(waterPath))
	assert.Equal(t, 0, f.srv.Puts(waterPath))

	// A change that bypassed the push is detected by the digest.
	f.store.mu.Lock()
	f.store.data.Settings.Title = "edited offline"
	f.store.mu.Unlock()
	require.True(t, f.store.Status().Pending)

	out = f.store.CheckForUpdates(ctx)
	assert.Equal(t, Synced, out.Status)
	assert.Equal(t, 1, f.srv.Puts(settingsPath))
	assert.False(t, f.store.Status().Pending)

	// Back in step: the next check pulls again.
	f.store.CheckForUpdates(ctx)
	assert.Equal(t, 1, f.srv.Puts(settingsPath))
}

func TestCheckForUpdates_WithoutRemoteSkips(t *testing.T) {
	s := New(localstore.New(localstore.NewMemoryKV(), nil), nil, testConfig(), nil)
	assert.Equal(t, Skipped, s.CheckForUpdates(context.Background()).Status)
	assert.Equal(t, Skipped, s.SyncFromRemote(context.Background()).Status)
}

func TestSyncFromRemote_AppliesDifferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Load(ctx)

	var events []Event
	var water []model.WaterReading
	settingsCalls := 0
	f.store.Subscribe(ListenerFuncs{
		DataUpdated:     func(e Event) { events = append(events, e) },
		WaterChanged:    func(w []model.WaterReading) { water = w },
		SettingsChanged: func(model.Settings) { settingsCalls++ },
	})

	f.srv.SetFile(waterPath, mustJSON(t, []model.WaterReading{reading("remote", 6.6)}))
	out := f.store.SyncFromRemote(ctx)
	require.Equal(t, Synced, out.Status)
	assert.True(t, out.Changed)
	require.Len(t, water, 1)
	assert.Equal(t, model.ID("remote"), water[0].ID)
	assert.Equal(t, 0, settingsCalls, "unchanged documents are not announced")
	require.Len(t, events, 1)
	assert.Equal(t, EventSync, events[0].Type)
	assert.False(t, f.store.Status().Pending)

	persisted, err := f.local.LoadAggregate(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted.Water, 1)

	out = f.store.SyncFromRemote(ctx)
	assert.False(t, out.Changed)
	assert.Len(t, events, 1)
}

func TestSyncFromRemote_ServerErrorKeepsMemory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.UpdateWater(ctx, []model.WaterReading{reading("a", 7)})

	f.srv.FailRequests(waterPath, 1)
	out := f.store.SyncFromRemote(ctx)
	assert.Equal(t, LocalOnly, out.Status)
	assert.Error(t, out.Err)
	assert.Len(t, f.store.Snapshot().Water, 1)
}

func TestForceSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Load(ctx)

	f.store.mu.Lock()
	f.store.data.Water = []model.WaterReading{reading("x", 7)}
	f.store.mu.Unlock()

	out := f.store.ForceSync(ctx)
	assert.Equal(t, Synced, out.Status)
	raw, ok := f.srv.File(waterPath)
	require.True(t, ok)
	water, err := model.DecodeWater(raw)
	require.NoError(t, err)
	assert.Len(t, water, 1)
	assert.Len(t, f.store.Snapshot().Water, 1)
}

func TestAutoSync_Idempotent(t *testing.T) {
	f := newFixture(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.False(t, f.store.AutoSyncRunning())
	assert.True(t, f.store.NextAutoSync().IsZero())

	require.NoError(t, f.store.StartAutoSync(ctx))
	require.NoError(t, f.store.StartAutoSync(ctx))
	assert.True(t, f.store.AutoSyncRunning())
	assert.True(t, f.store.Status().AutoSync)

	f.store.StopAutoSync()
	f.store.StopAutoSync()
	assert.False(t, f.store.AutoSyncRunning())
}

func TestAutoSync_Ticks(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a scheduler tick")
	}
	f := newFixture(t)
	f.store.cfg.Interval = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.store.Load(ctx)
	before := f.srv.Gets(waterPath)

	require.NoError(t, f.store.StartAutoSync(ctx))
	defer f.store.StopAutoSync()
	assert.False(t, f.store.NextAutoSync().IsZero())

	assert.Eventually(t, func() bool {
		return f.srv.Gets(waterPath) > before
	}, 5*time.Second, 50*time.Millisecond)
}

func TestAutoSync_SetInterval(t *testing.T) {
	f := newFixture(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Error(t, f.store.SetAutoSyncInterval(ctx, 0))

	// Not running: only the interval changes.
	require.NoError(t, f.store.SetAutoSyncInterval(ctx, time.Hour))
	assert.False(t, f.store.AutoSyncRunning())

	require.NoError(t, f.store.StartAutoSync(ctx))
	assert.WithinDuration(t, time.Now().Add(time.Hour), f.store.NextAutoSync(), 5*time.Second)

	require.NoError(t, f.store.SetAutoSyncInterval(ctx, 2*time.Hour))
	assert.True(t, f.store.AutoSyncRunning())
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), f.store.NextAutoSync(), 5*time.Second)

	f.store.StopAutoSync()
}
