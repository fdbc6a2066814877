package camera

import (
	"context"
	"sync"
	"time"

	"capture-bridge/internal/application"
	"capture-bridge/internal/domain"
)

// Watcher polls device enumeration and reports connects and disconnects.
type Watcher struct {
	enumerate Enumerator
	interval  time.Duration
	logger    application.Logger

	mu      sync.Mutex
	known   map[string]domain.Device
	primed  bool
	watches map[int]func(application.DeviceEvent)
	nextID  int
}

// NewWatcher creates a watcher polling enumerate every interval.
func NewWatcher(enumerate Enumerator, interval time.Duration, logger application.Logger) *Watcher {
	return &Watcher{
		enumerate: enumerate,
		interval:  interval,
		logger:    logger,
		known:     make(map[string]domain.Device),
		watches:   make(map[int]func(application.DeviceEvent)),
	}
}

// Watcher returns a hot-plug watcher sharing the manager's enumeration.
func (m *MediaDevicesManager) Watcher(interval time.Duration) *Watcher {
	return NewWatcher(m.enumerate, interval, m.logger)
}

// Watch registers fn for hot-plug events.
func (w *Watcher) Watch(fn func(application.DeviceEvent)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	w.watches[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.watches, id)
		w.mu.Unlock()
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.Poll()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Poll enumerates once and dispatches the differences since the previous
// poll. The first poll only records the present devices.
func (w *Watcher) Poll() {
	current := make(map[string]domain.Device)
	for _, info := range w.enumerate() {
		if d, ok := toDevice(info); ok {
			current[d.UniqueID] = d
		}
	}

	w.mu.Lock()
	var events []application.DeviceEvent
	if w.primed {
		for id, d := range w.known {
			if _, ok := current[id]; !ok {
				events = append(events, application.DeviceEvent{Kind: application.DeviceDisconnected, Device: d})
			}
		}
		for id, d := range current {
			if _, ok := w.known[id]; !ok {
				events = append(events, application.DeviceEvent{Kind: application.DeviceConnected, Device: d})
			}
		}
	}
	w.known = current
	w.primed = true

	fns := make([]func(application.DeviceEvent), 0, len(w.watches))
	for _, fn := range w.watches {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, ev := range events {
		w.logger.Info("device change", "device", ev.Device.UniqueID, "connected", ev.Kind == application.DeviceConnected)
		for _, fn := range fns {
			fn(ev)
		}
	}
}
