// Package events carries the screener's progress stream. The core publishes
// timestamped events; any collaborator (API, CLI, log sink) subscribes
// without the core depending on its lifecycle.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Event struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Symbol  string    `json:"symbol,omitempty"`
	Message string    `json:"message"`
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// that falls behind loses events rather than stalling the pipeline.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe returns a buffered event channel and a cancel func. The channel
// is closed on cancel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Bus) Publish(level Level, symbol, msg string) {
	ev := Event{Time: time.Now().UTC(), Level: level, Symbol: symbol, Message: msg}

	switch level {
	case LevelError:
		b.logger.Error(msg, zap.String("symbol", symbol))
	case LevelWarn:
		b.logger.Warn(msg, zap.String("symbol", symbol))
	default:
		b.logger.Info(msg, zap.String("symbol", symbol))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Bus) Info(symbol, msg string)  { b.Publish(LevelInfo, symbol, msg) }
func (b *Bus) Warn(symbol, msg string)  { b.Publish(LevelWarn, symbol, msg) }
func (b *Bus) Error(symbol, msg string) { b.Publish(LevelError, symbol, msg) }
