package notify

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/schedule"
	syncstore "github.com/tia2694/paludario/internal/sync"
)

// Broadcaster receives encoded messages; *Server implements it.
type Broadcaster interface {
	Broadcast(Message)
}

// Publisher forwards a payload of the given kind to an external bus.
type Publisher interface {
	Publish(kind MessageType, payload []byte) error
}

// WaterSummary is the payload of water messages.
type WaterSummary struct {
	Count  int                 `json:"count"`
	Latest *model.WaterReading `json:"latest,omitempty"`
	Alerts []model.Param       `json:"alerts"`
}

// publishQueueSize bounds the messages waiting for the publishers.
const publishQueueSize = 100

type publication struct {
	kind MessageType
	data []byte
}

// Handler turns store notifications into broadcast messages. Publishers run
// on a separate goroutine so a slow broker never blocks the store; call Close
// to flush and stop it.
type Handler struct {
	targets    []Broadcaster
	publishers []Publisher
	logger     *zap.Logger

	mu         sync.Mutex
	thresholds model.Thresholds

	queueMu sync.RWMutex
	queue   chan publication
	closed  bool
	done    chan struct{}
}

var _ syncstore.Listener = (*Handler)(nil)

// NewHandler creates a handler; server may be nil when only publishers are used.
func NewHandler(server Broadcaster, logger *zap.Logger, publishers ...Publisher) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		publishers: publishers,
		logger:     logger,
		thresholds: model.DefaultThresholds(),
	}
	if server != nil {
		h.targets = append(h.targets, server)
	}
	if len(publishers) > 0 {
		h.queue = make(chan publication, publishQueueSize)
		h.done = make(chan struct{})
		go h.publishLoop()
	}
	return h
}

// Close delivers the queued messages and stops the publish goroutine. It is
// safe to call more than once.
func (h *Handler) Close() {
	if h.queue == nil {
		return
	}
	h.queueMu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.queueMu.Unlock()
	<-h.done
}

func (h *Handler) publishLoop() {
	defer close(h.done)
	for p := range h.queue {
		for _, pub := range h.publishers {
			if err := pub.Publish(p.kind, p.data); err != nil {
				h.logger.Warn("failed to publish notification", zap.String("type", string(p.kind)), zap.Error(err))
			}
		}
	}
}

// OnDataUpdated implements sync.Listener.
func (h *Handler) OnDataUpdated(e syncstore.Event) {
	h.send(MessageTypeDataUpdated, e)
}

// OnWaterChanged implements sync.Listener.
func (h *Handler) OnWaterChanged(water []model.WaterReading) {
	h.mu.Lock()
	thresholds := h.thresholds
	h.mu.Unlock()

	h.send(MessageTypeWater, SummarizeWater(water, thresholds))
}

// OnScheduleChanged implements sync.Listener.
func (h *Handler) OnScheduleChanged(d model.DayTemplate) {
	h.send(MessageTypeSchedule, schedule.BuildChart(d))
}

// OnSettingsChanged implements sync.Listener.
func (h *Handler) OnSettingsChanged(s model.Settings) {
	h.mu.Lock()
	h.thresholds = s.WaterThresholds.Clone()
	h.mu.Unlock()

	h.send(MessageTypeSettings, s)
}

func (h *Handler) send(t MessageType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to marshal notification", zap.String("type", string(t)), zap.Error(err))
		return
	}

	msg := Message{Type: t, Timestamp: time.Now(), Data: data}
	for _, b := range h.targets {
		b.Broadcast(msg)
	}
	if h.queue == nil {
		return
	}

	h.queueMu.RLock()
	defer h.queueMu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.queue <- publication{kind: t, data: data}:
	default:
		h.logger.Warn("publish queue full, dropping notification", zap.String("type", string(t)))
	}
}

// SummarizeWater reports the newest reading and its out-of-range parameters.
func SummarizeWater(water []model.WaterReading, thresholds model.Thresholds) WaterSummary {
	sum := WaterSummary{Count: len(water), Alerts: []model.Param{}}
	if len(water) == 0 {
		return sum
	}

	latest := model.NewestFirst(water)[0]
	sum.Latest = &latest
	for _, p := range model.Params {
		if thresholds.IsOutOfRange(p, latest.Value(p)) {
			sum.Alerts = append(sum.Alerts, p)
		}
	}
	return sum
}
