package sync

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/remote"
)

// Remote is the document store the aggregate is mirrored to.
type Remote interface {
	// Configured reports whether requests can be made at all.
	Configured() bool
	// Get reads a document. A missing document is remote.ErrNotFound.
	Get(ctx context.Context, path string) (remote.Document, error)
	// Put writes data with the revision read before; "" creates the file.
	// A stale revision is remote.ErrConflict.
	Put(ctx context.Context, path string, data any, revision string) (string, error)
}

// Local is the durable copy of the aggregate.
type Local interface {
	LoadAggregate(ctx context.Context) (model.Aggregate, error)
	SaveAggregate(ctx context.Context, agg model.Aggregate) error
}

// Listener receives change notifications.
//
// Callbacks run synchronously on the goroutine that made the change and must
// not call back into the Store's mutating methods.
type Listener interface {
	OnDataUpdated(Event)
	OnWaterChanged([]model.WaterReading)
	OnScheduleChanged(model.DayTemplate)
	OnSettingsChanged(model.Settings)
}

// ListenerFuncs adapts optional functions to a Listener.
type ListenerFuncs struct {
	DataUpdated     func(Event)
	WaterChanged    func([]model.WaterReading)
	ScheduleChanged func(model.DayTemplate)
	SettingsChanged func(model.Settings)
}

func (f ListenerFuncs) OnDataUpdated(e Event) {
	if f.DataUpdated != nil {
		f.DataUpdated(e)
	}
}

func (f ListenerFuncs) OnWaterChanged(w []model.WaterReading) {
	if f.WaterChanged != nil {
		f.WaterChanged(w)
	}
}

func (f ListenerFuncs) OnScheduleChanged(d model.DayTemplate) {
	if f.ScheduleChanged != nil {
		f.ScheduleChanged(d)
	}
}

func (f ListenerFuncs) OnSettingsChanged(s model.Settings) {
	if f.SettingsChanged != nil {
		f.SettingsChanged(s)
	}
}

// EventType names what caused a data-updated event.
type EventType string

const (
	EventLoad     EventType = "load"
	EventSync     EventType = "sync"
	EventUpdate   EventType = "update"
	EventSettings EventType = "settings"
)

// Source tells where the data of an event came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Event is delivered to OnDataUpdated.
type Event struct {
	Type   EventType `json:"type"`
	Source Source    `json:"source"`
	At     time.Time `json:"at"`
}

// Status is the result class of a sync operation.
type Status int

const (
	// Synced means local and remote hold the same data.
	Synced Status = iota
	// LocalOnly means the local store is current but the remote was not
	// reached or not configured.
	LocalOnly
	// Skipped means another operation was in flight.
	Skipped
	// Failed means the local store could not be written.
	Failed
)

func (s Status) String() string {
	switch s {
	case Synced:
		return "synced"
	case LocalOnly:
		return "local-only"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the typed result of Load, Save and the sync operations.
type Outcome struct {
	Status Status
	// Err explains LocalOnly and Failed outcomes; nil when the remote is
	// simply not configured.
	Err error
	// Changed reports whether memory was modified.
	Changed bool
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Status, o.Err)
	}
	return o.Status.String()
}

// Paths locates the three documents in the repository.
type Paths struct {
	Water       string
	DayTemplate string
	Settings    string
}

// DefaultPaths places the documents under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Water:       path.Join(dir, "water.json"),
		DayTemplate: path.Join(dir, "dayTemplate.json"),
		Settings:    path.Join(dir, "settings.json"),
	}
}

// Config tunes a Store.
type Config struct {
	Paths Paths
	// Interval between auto-sync checks.
	Interval time.Duration
	// ConflictRetries is the number of extra attempts after a 409.
	ConflictRetries int
	// Backoff is the delay before the first retry; it doubles each time.
	Backoff time.Duration
}

// DefaultConfig returns the settings used by the dashboard.
func DefaultConfig() Config {
	return Config{
		Paths:           DefaultPaths("data"),
		Interval:        30 * time.Second,
		ConflictRetries: 2,
		Backoff:         500 * time.Millisecond,
	}
}
