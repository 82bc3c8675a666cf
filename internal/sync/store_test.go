package sync

import (
	"context"
	"encoding/json"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tia2694/paludario/internal/localstore"
	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/remote"
	"github.com/tia2694/paludario/internal/remote/remotetest"
)

const (
	waterPath    = "data/water.json"
	templatePath = "data/dayTemplate.json"
	settingsPath = "data/settings.json"
)

func ptr(v float64) *float64 { return &v }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Backoff = time.Millisecond
	return cfg
}

type fixture struct {
	store *Store
	srv   *remotetest.Server
	local *localstore.Store
	kv    *localstore.MemoryKV
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := remotetest.NewServer(t, "tia", "Paludario", "secret")
	client := remote.New(remote.Config{
		Owner:   "tia",
		Repo:    "Paludario",
		Token:   "secret",
		BaseURL: srv.URL,
	}, nil)
	kv := localstore.NewMemoryKV()
	local := localstore.New(kv, nil)
	return &fixture{
		store: New(local, client, testConfig(), zaptest.NewLogger(t)),
		srv:   srv,
		local: local,
		kv:    kv,
	}
}

func offlineRemote() *remote.Client {
	return remote.New(remote.Config{Owner: "tia", Repo: "Paludario", Token: "secret", BaseURL: "http://127.0.0.1:1"}, nil)
}

func reading(id string, ph float64) model.WaterReading {
	return model.WaterReading{
		ID:        model.ID(id),
		Timestamp: model.NewTimestamp(time.Date(2025, 3, 14, 18, 30, 0, 0, time.Local)),
		PH:        ptr(ph),
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestLoad_WithoutRemoteUsesLocal(t *testing.T) {
	ctx := context.Background()
	local := localstore.New(localstore.NewMemoryKV(), nil)
	want := model.DefaultAggregate()
	want.Water = []model.WaterReading{reading("r1", 7)}
	require.NoError(t, local.SaveAggregate(ctx, want))

	s := New(local, nil, testConfig(), nil)
	out := s.Load(ctx)
	assert.Equal(t, LocalOnly, out.Status)
	assert.NoError(t, out.Err)
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_OfflineIsIdempotent(t *testing.T) {
	ctx := context.Background()
	local := localstore.New(localstore.NewMemoryKV(), nil)
	agg := model.DefaultAggregate()
	agg.Water = []model.WaterReading{reading("r1", 7)}
	agg.Settings.Title = "Vasca"
	require.NoError(t, local.SaveAggregate(ctx, agg))

	s := New(local, offlineRemote(), testConfig(), zaptest.NewLogger(t))

	first := s.Load(ctx)
	require.Equal(t, LocalOnly, first.Status)
	require.Error(t, first.Err)
	snap1 := s.Snapshot()

	second := s.Load(ctx)
	require.Equal(t, LocalOnly, second.Status)
	if diff := cmp.Diff(snap1, s.Snapshot()); diff != "" {
		t.Errorf("second load changed the aggregate (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(agg, snap1); diff != "" {
		t.Errorf("offline load should equal local data (-want +got):\n%s", diff)
	}
}

func TestLoad_RemoteOverlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	local := model.DefaultAggregate()
	local.Water = []model.WaterReading{reading("local", 7)}
	local.DayTemplate.Spray = []model.Interval{{Start: 480, End: 485}}
	local.Settings.Title = "Local"
	local.Settings.DarkMode = true
	require.NoError(t, f.local.SaveAggregate(ctx, local))

	remoteWater := []model.WaterReading{reading("remote", 6.5)}
	f.srv.SetFile(waterPath, mustJSON(t, remoteWater))
	f.srv.SetFile(templatePath, []byte(`{"spray":[],"fan":[],"lights":[]}`))
	f.srv.SetFile(settingsPath, []byte(`{"title":"Remote","icon":"🐸"}`))

	out := f.store.Load(ctx)
	require.Equal(t, Synced, out.Status, out.String())
	assert.True(t, out.Changed)

	snap := f.store.Snapshot()
	if diff := cmp.Diff(remoteWater, snap.Water); diff != "" {
		t.Errorf("remote water should win (-want +got):\n%s", diff)
	}
	assert.Len(t, snap.DayTemplate.Spray, 1, "empty remote template must not replace local")
	assert.Equal(t, "Remote", snap.Settings.Title)
	assert.Equal(t, "🐸", snap.Settings.Icon)
	assert.True(t, snap.Settings.DarkMode, "fields missing remotely keep local values")

	persisted, err := f.local.LoadAggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Remote", persisted.Settings.Title)
}

func TestLoad_EmptyRemoteWaterKeepsLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	local := model.DefaultAggregate()
	local.Water = []model.WaterReading{reading("r1", 7), reading("r2", 7.2)}
	require.NoError(t, f.local.SaveAggregate(ctx, local))
	f.srv.SetFile(waterPath, []byte(`[]`))

	out := f.store.Load(ctx)
	require.Equal(t, Synced, out.Status)
	assert.Len(t, f.store.Snapshot().Water, 2)
}

func TestLoad_NotifiesListeners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var events []Event
	var waterCalls, scheduleCalls, settingsCalls int
	f.store.Subscribe(ListenerFuncs{
		DataUpdated:     func(e Event) { events = append(events, e) },
		WaterChanged:    func([]model.WaterReading) { waterCalls++ },
		ScheduleChanged: func(model.DayTemplate) { scheduleCalls++ },
		SettingsChanged: func(model.Settings) { settingsCalls++ },
	})
	f.srv.SetFile(waterPath, mustJSON(t, []model.WaterReading{reading("r1", 7)}))

	f.store.Load(ctx)
	require.Len(t, events, 1)
	assert.Equal(t, EventLoad, events[0].Type)
	assert.Equal(t, SourceRemote, events[0].Source)
	assert.Equal(t, 1, waterCalls)
	assert.Equal(t, 1, scheduleCalls)
	assert.Equal(t, 1, settingsCalls)
}

func TestSave_PushesAllDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Load(ctx)

	_, out, err := f.store.AddWaterReading(ctx, model.NewTimestamp(time.Now()), map[model.Param]*float64{model.ParamPH: ptr(6.9)})
	require.NoError(t, err)
	require.Equal(t, Synced, out.Status, out.String())

	for _, p := range []string{waterPath, templatePath, settingsPath} {
		_, ok := f.srv.File(p)
		assert.True(t, ok, "%s not written", p)
	}
	raw, _ := f.srv.File(waterPath)
	water, err := model.DecodeWater(raw)
	require.NoError(t, err)
	require.Len(t, water, 1)
	assert.Equal(t, 6.9, *water[0].PH)

	info := f.store.Status()
	assert.False(t, info.Pending)
	assert.False(t, info.LastSync.IsZero())
}

func TestPushRemoteDocument_ConflictRetryBound(t *testing.T) {
	ctx := context.Background()

	t.Run("two conflicts then success", func(t *testing.T) {
		f := newFixture(t)
		f.srv.FailConflicts(waterPath, 2)
		err := f.store.PushRemoteDocument(ctx, waterPath, []model.WaterReading{})
		require.NoError(t, err)
		assert.Equal(t, 3, f.srv.Puts(waterPath))
		assert.Equal(t, 3, f.srv.Gets(waterPath), "revision is re-read before each attempt")
	})

	t.Run("three conflicts fail after three attempts", func(t *testing.T) {
		f := newFixture(t)
		f.srv.FailConflicts(waterPath, 3)
		err := f.store.PushRemoteDocument(ctx, waterPath, []model.WaterReading{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, remote.ErrConflict), "got %v", err)
		assert.Equal(t, 3, f.srv.Puts(waterPath))
	})

	t.Run("other failures are not retried", func(t *testing.T) {
		f := newFixture(t)
		f.srv.SetFile(waterPath, []byte(`[]`))
		f.srv.FailRequests(waterPath, 2)
		err := f.store.PushRemoteDocument(ctx, waterPath, []model.WaterReading{})
		var apiErr *remote.APIError
		require.True(t, errors.As(err, &apiErr), "got %v", err)
		assert.Equal(t, 1, f.srv.Puts(waterPath))
	})
}

func TestPushRemoteDocument_BackoffHonoursContext(t *testing.T) {
	f := newFixture(t)
	f.store.cfg.Backoff = time.Hour
	f.srv.FailConflicts(waterPath, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := f.store.PushRemoteDocument(ctx, waterPath, []model.WaterReading{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSave_ConflictExhaustionIsLocalOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.srv.FailConflicts(settingsPath, 3)

	out := f.store.Save(ctx)
	assert.Equal(t, LocalOnly, out.Status)
	assert.True(t, errors.Is(out.Err, remote.ErrConflict), "got %v", out.Err)
	assert.True(t, f.store.Status().Pending)
}

func TestLocalDurability(t *testing.T) {
	ctx := context.Background()
	kv := localstore.NewMemoryKV()
	s := New(localstore.New(kv, nil), offlineRemote(), testConfig(), zaptest.NewLogger(t))
	s.Load(ctx)

	r, out, err := s.AddWaterReading(ctx, model.NewTimestamp(time.Date(2025, 5, 1, 9, 0, 0, 0, time.Local)), map[model.Param]*float64{model.ParamKH: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, LocalOnly, out.Status)
	assert.Error(t, out.Err)

	_, err = s.UpdateSettings(ctx, func(st *model.Settings) error {
		st.Title = "Vasca grande"
		st.Liters = 120
		st.DarkMode = true
		return nil
	})
	require.NoError(t, err)

	fresh := New(localstore.New(kv, nil), nil, testConfig(), nil)
	fresh.Load(ctx)
	water := fresh.Snapshot().Water
	require.Len(t, water, 1)
	assert.Equal(t, r.ID, water[0].ID)
	assert.Equal(t, 4.0, *water[0].KH)
	if diff := cmp.Diff(s.Snapshot(), fresh.Snapshot(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("reloaded aggregate differs (-saved +loaded):\n%s", diff)
	}

	// An empty title or subtitle is stored as "" but reads back as the
	// built-in default, so those two fields are the exception to the
	// round trip above.
	_, err = s.UpdateSettings(ctx, func(st *model.Settings) error {
		st.Title = ""
		st.Subtitle = ""
		return nil
	})
	require.NoError(t, err)

	fresh = New(localstore.New(kv, nil), nil, testConfig(), nil)
	fresh.Load(ctx)
	defaults := model.DefaultSettings()
	assert.Equal(t, defaults.Title, fresh.Snapshot().Settings.Title)
	assert.Equal(t, defaults.Subtitle, fresh.Snapshot().Settings.Subtitle)
}

func TestUnicodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Load(ctx)

	_, err := f.store.UpdateSettings(ctx, func(st *model.Settings) error {
		st.Title = "Paludario «Ranocchi» è qui 🐸"
		st.Icon = "🌱"
		return nil
	})
	require.NoError(t, err)

	client := remote.New(remote.Config{Owner: "tia", Repo: "Paludario", Token: "secret", BaseURL: f.srv.URL}, nil)
	other := New(localstore.New(localstore.NewMemoryKV(), nil), client, testConfig(), nil)
	out := other.Load(ctx)
	require.Equal(t, Synced, out.Status)

	got := other.Snapshot().Settings
	assert.Equal(t, "Paludario «Ranocchi» è qui 🐸", got.Title)
	assert.Equal(t, "🌱", got.Icon)
}

func TestUpdate_ValidationLeavesAggregateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Load(ctx)
	before := f.store.Snapshot()

	_, _, err := f.store.AddAnimal(ctx, model.AnimalInput{Species: "Betta", Count: 1, Males: 1, Females: 1})
	assert.True(t, model.IsValidation(err), "got %v", err)
	_, err = f.store.AddSprayInterval(ctx, "10:00", "09:00")
	assert.True(t, model.IsValidation(err), "got %v", err)
	_, err = f.store.SetThresholds(ctx, model.ParamPH, 9, 8)
	assert.True(t, model.IsValidation(err), "got %v", err)
	_, err = f.store.DeleteWaterReading(ctx, "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound), "got %v", err)
	_, err = f.store.UpdateSettings(ctx, func(st *model.Settings) error {
		st.Title = "half-applied"
		return errors.New("boom")
	})
	assert.Error(t, err)

	if diff := cmp.Diff(before, f.store.Snapshot()); diff != "" {
		t.Errorf("aggregate changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, 0, f.srv.Puts(waterPath))
}

func TestMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Load(ctx)
	s := f.store

	r, _, err := s.AddWaterReading(ctx, model.NewTimestamp(time.Now()), map[model.Param]*float64{model.ParamPH: ptr(7)})
	require.NoError(t, err)
	_, err = s.EditWaterReading(ctx, r.ID, model.ParamNO3, ptr(25))
	require.NoError(t, err)
	assert.Equal(t, 25.0, *s.Snapshot().Water[0].NO3)

	_, err = s.AddSprayInterval(ctx, "08:00", "08:05")
	require.NoError(t, err)
	_, err = s.AddFanInterval(ctx, "12:00", "13:00")
	require.NoError(t, err)
	_, err = s.SetChannel(ctx, 2, []model.Keyframe{{Time: 540, Value: 60}})
	require.NoError(t, err)
	_, err = s.RemoveInterval(ctx, Spray, 0)
	require.NoError(t, err)
	_, err = s.RemoveInterval(ctx, Spray, 0)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	tpl := s.Snapshot().DayTemplate
	assert.Empty(t, tpl.Spray)
	assert.Len(t, tpl.Fan, 1)
	assert.Len(t, tpl.ChannelKeyframes(2), 1)

	a, _, err := s.AddAnimal(ctx, model.AnimalInput{Species: "Neocaridina", Type: "crostaceo", Count: 10})
	require.NoError(t, err)
	_, err = s.SetAnimalStatus(ctx, a.ID, "malato")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSick, s.Snapshot().Settings.Animals[0].Status)
	_, err = s.RemoveAnimal(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Settings.Animals)

	air, _, err := s.AddAirReading(ctx, model.NewTimestamp(time.Now()), ptr(20), ptr(25), ptr(70), ptr(90))
	require.NoError(t, err)
	_, err = s.RemoveAirReading(ctx, air.ID)
	require.NoError(t, err)

	_, err = s.SetThresholds(ctx, model.ParamPH, 6.5, 7.5)
	require.NoError(t, err)
	assert.Equal(t, model.Threshold{Min: 6.5, Max: 7.5}, s.Snapshot().Settings.WaterThresholds[model.ParamPH])
	s.ResetThresholds(ctx)
	assert.Equal(t, model.DefaultThresholds(), s.Snapshot().Settings.WaterThresholds)

	_, err = s.DeleteWaterReading(ctx, r.ID)
	require.NoError(t, err)
	s.UpdateWater(ctx, []model.WaterReading{reading("a", 7), reading("b", 7)})
	assert.Len(t, s.Snapshot().Water, 2)
	s.ClearWater(ctx)
	assert.Empty(t, s.Snapshot().Water)

	raw, _ := f.srv.File(waterPath)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestFetchRemoteDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	def := model.DefaultDayTemplate()

	got := FetchRemoteDocument(ctx, f.store, templatePath, def)
	assert.True(t, got.IsEmpty(), "missing document yields the default")

	f.srv.SetFile(templatePath, []byte(`{"spray":[{"s":"08:00","e":"08:05"}]}`))
	got = FetchRemoteDocument(ctx, f.store, templatePath, def)
	assert.Len(t, got.Spray, 1)

	f.srv.SetFile(templatePath, []byte(`{"spray":"broken"}`))
	got = FetchRemoteDocument(ctx, f.store, templatePath, def)
	assert.True(t, got.IsEmpty(), "undecodable document yields the default")

	s := New(localstore.New(localstore.NewMemoryKV(), nil), offlineRemote(), testConfig(), nil)
	water := FetchRemoteDocument(ctx, s, waterPath, []model.WaterReading{reading("d", 1)})
	assert.Len(t, water, 1)
}

// blockingRemote holds every write until released.
type blockingRemote struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRemote) Configured() bool { return true }

func (b *blockingRemote) Get(context.Context, string) (remote.Document, error) {
	return remote.Document{}, remote.ErrNotFound
}

func (b *blockingRemote) Put(context.Context, string, any, string) (string, error) {
	b.entered <- struct{}{}
	<-b.release
	return "rev", nil
}

func TestSave_ReentrancyGuard(t *testing.T) {
	ctx := context.Background()
	rem := &blockingRemote{entered: make(chan struct{}, 16), release: make(chan struct{})}
	s := New(localstore.New(localstore.NewMemoryKV(), nil), rem, testConfig(), nil)

	var wg stdsync.WaitGroup
	var first Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = s.Save(ctx)
	}()
	<-rem.entered

	assert.Equal(t, Skipped, s.Save(ctx).Status)
	assert.Equal(t, Skipped, s.CheckForUpdates(ctx).Status)
	assert.Equal(t, Skipped, s.SyncFromRemote(ctx).Status)

	close(rem.release)
	wg.Wait()
	assert.Equal(t, Synced, first.Status)
	assert.Equal(t, Synced, s.Save(ctx).Status)
}

func TestLoadLocal_SkipsRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.srv.SetFile(waterPath, mustJSON(t, []model.WaterReading{reading("remote", 8)}))

	agg := model.DefaultAggregate()
	agg.Water = []model.WaterReading{reading("local", 7)}
	require.NoError(t, f.local.SaveAggregate(ctx, agg))

	require.NoError(t, f.store.LoadLocal(ctx))
	assert.Zero(t, f.srv.Gets(waterPath))
	if diff := cmp.Diff(agg, f.store.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, f.store.Status().Pending)

	out := f.store.Save(ctx)
	require.Equal(t, Synced, out.Status, out.String())
	raw, _ := f.srv.File(waterPath)
	water, err := model.DecodeWater(raw)
	require.NoError(t, err)
	require.Len(t, water, 1)
	assert.Equal(t, model.ID("local"), water[0].ID)
}

// countingKV records how often the local store is written.
type countingKV struct {
	*localstore.MemoryKV
	mu     stdsync.Mutex
	writes int
}

func (c *countingKV) SetMany(ctx context.Context, entries map[string]string) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.MemoryKV.SetMany(ctx, entries)
}

func (c *countingKV) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func TestLoad_UnchangedRemoteReportsNoChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	kv := &countingKV{MemoryKV: localstore.NewMemoryKV()}
	client := remote.New(remote.Config{Owner: "tia", Repo: "Paludario", Token: "secret", BaseURL: f.srv.URL}, nil)
	s := New(localstore.New(kv, nil), client, testConfig(), zaptest.NewLogger(t))

	s.Load(ctx)
	_, err := s.AddSprayInterval(ctx, "08:00", "08:05")
	require.NoError(t, err)
	_, _, err = s.AddWaterReading(ctx, model.NewTimestamp(time.Now()), map[model.Param]*float64{model.ParamPH: ptr(7.1)})
	require.NoError(t, err)
	digest := Digest(s.Snapshot())
	writes := kv.Writes()

	out := s.Load(ctx)
	require.Equal(t, Synced, out.Status, out.String())
	assert.False(t, out.Changed, "remote equals local copy")
	assert.Equal(t, writes, kv.Writes(), "local store must not be rewritten")
	assert.Equal(t, digest, Digest(s.Snapshot()))

	// another device edits the settings
	f.srv.SetFile(settingsPath, []byte(`{"title":"Altro titolo"}`))
	out = s.Load(ctx)
	require.Equal(t, Synced, out.Status, out.String())
	assert.True(t, out.Changed)
	assert.Equal(t, writes+1, kv.Writes())
	assert.Equal(t, "Altro titolo", s.Snapshot().Settings.Title)
}

func TestLoad_EmptyRemoteTemplateKeepsLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	local := model.DefaultAggregate()
	local.DayTemplate.Spray = []model.Interval{{Start: 480, End: 485}}
	require.NoError(t, f.local.SaveAggregate(ctx, local))

	// a template cleared elsewhere is not applied by Load
	f.srv.SetFile(templatePath, []byte(`{"spray":[],"fan":[],"lights":[]}`))
	out := f.store.Load(ctx)
	require.Equal(t, Synced, out.Status, out.String())
	assert.False(t, out.Changed)
	assert.Equal(t, local.DayTemplate.Spray, f.store.Snapshot().DayTemplate.Spray)

	f.srv.SetFile(templatePath, []byte(`{"spray":[],"fan":[{"s":"12:00","e":"13:00"}],"lights":[]}`))
	out = f.store.Load(ctx)
	require.Equal(t, Synced, out.Status, out.String())
	assert.True(t, out.Changed)
	tpl := f.store.Snapshot().DayTemplate
	assert.Empty(t, tpl.Spray)
	require.Len(t, tpl.Fan, 1)
	assert.Equal(t, model.ClockTime(720), tpl.Fan[0].Start)
}
