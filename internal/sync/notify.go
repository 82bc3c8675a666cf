package sync

import "github.com/tia2694/paludario/internal/model"

type changeKind uint8

const (
	changeWater changeKind = 1 << iota
	changeSchedule
	changeSettings

	changeAll = changeWater | changeSchedule | changeSettings
)

func (s *Store) subscribers() []Listener {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	return append([]Listener(nil), s.listeners...)
}

func (s *Store) notifyAll(e Event) {
	s.notify(changeAll, s.Snapshot(), e)
}

// notify calls every listener with copies of the changed documents followed
// by the data-updated event.
func (s *Store) notify(kind changeKind, snap model.Aggregate, e Event) {
	for _, l := range s.subscribers() {
		if kind&changeWater != 0 {
			l.OnWaterChanged(model.CloneWater(snap.Water))
		}
		if kind&changeSchedule != 0 {
			l.OnScheduleChanged(snap.DayTemplate.Clone())
		}
		if kind&changeSettings != 0 {
			l.OnSettingsChanged(snap.Settings.Clone())
		}
		l.OnDataUpdated(e)
	}
}
