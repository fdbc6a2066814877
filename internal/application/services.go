package application

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"capture-bridge/internal/domain"
)

// Source is the capability every registry entry has: a stable id.
type Source interface {
	ID() string
}

var _ Source = (*CaptureSession)(nil)

// ControllerOption configures a CaptureController.
type ControllerOption func(*CaptureController)

// WithWatcher lets sessions follow hot-plug events.
func WithWatcher(w DeviceWatcher) ControllerOption {
	return func(c *CaptureController) { c.watcher = w }
}

// WithDiagnostics routes session diagnostics to sink.
func WithDiagnostics(sink DiagnosticsSink) ControllerOption {
	return func(c *CaptureController) { c.diagnostics = sink }
}

// WithQueueSizes sets the delivery queue depths of new sessions.
func WithQueueSizes(video, audio int) ControllerOption {
	return func(c *CaptureController) {
		c.videoQueue = video
		c.audioQueue = audio
	}
}

// VideoSourceOption configures one video source.
type VideoSourceOption func(*SessionConfig)

// WithFastPath delivers hardware surfaces instead of converted frames.
func WithFastPath(enabled bool) VideoSourceOption {
	return func(c *SessionConfig) { c.FastPath = enabled }
}

// CaptureController creates, tracks and removes capture sessions.
type CaptureController struct {
	backend     CaptureBackend
	discovery   DeviceDiscovery
	watcher     DeviceWatcher
	diagnostics DiagnosticsSink
	logger      Logger
	videoQueue  int
	audioQueue  int

	mutex   sync.Mutex
	sources map[string]*CaptureSession
}

// NewCaptureController creates a controller over the given backend.
func NewCaptureController(backend CaptureBackend, discovery DeviceDiscovery, logger Logger, opts ...ControllerOption) *CaptureController {
	c := &CaptureController{
		backend:   backend,
		discovery: discovery,
		logger:    logger,
		sources:   make(map[string]*CaptureSession),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = nopLogger{}
	}
	return c
}

// ListInputs returns the present devices of the given kind.
func (c *CaptureController) ListInputs(kind domain.MediaKind) ([]domain.Device, error) {
	devices, err := c.discovery.ListDevices(kind)
	if err != nil {
		c.logger.Error("failed to list devices", "kind", kind, "error", err)
		return nil, err
	}

	out := devices[:0:0]
	for _, d := range devices {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out, nil
}

// CreateVideoSource opens, configures and starts a video session on the
// device. It returns the new source id.
func (c *CaptureController) CreateVideoSource(deviceID string, sink FrameSink, opts ...VideoSourceOption) (string, error) {
	if deviceID == "" || sink == nil {
		return "", fmt.Errorf("%w: video source needs a device id and a frame sink", domain.ErrInvalidParameters)
	}
	cfg := SessionConfig{DeviceUniqueID: deviceID, UseVideo: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return c.createSource(cfg, sink, nil)
}

// CreateAudioSource opens and starts an audio level session on the device.
func (c *CaptureController) CreateAudioSource(deviceID string, sink LevelSink) (string, error) {
	if deviceID == "" || sink == nil {
		return "", fmt.Errorf("%w: audio source needs a device id and a level sink", domain.ErrInvalidParameters)
	}
	return c.createSource(SessionConfig{DeviceUniqueID: deviceID, UseAudio: true}, nil, sink)
}

func (c *CaptureController) createSource(cfg SessionConfig, frames FrameSink, levels LevelSink) (string, error) {
	cfg.VideoQueue = c.videoQueue
	cfg.AudioQueue = c.audioQueue

	id := uuid.NewString()
	session, err := OpenSession(SessionParams{
		ID:          id,
		Config:      cfg,
		Backend:     c.backend,
		Watcher:     c.watcher,
		Frames:      frames,
		Levels:      levels,
		Diagnostics: c.diagnostics,
		Logger:      c.logger,
	})
	if err != nil {
		c.logger.Error("failed to open capture session", "device", cfg.DeviceUniqueID, "error", err)
		return "", err
	}

	if !session.SwitchDevice(cfg.DeviceUniqueID) || !session.Configure() || !session.Start() {
		err := session.LastError()
		if err == nil {
			err = domain.ErrDeviceUnavailable
		}
		session.Dispose()
		c.logger.Error("failed to start capture session", "device", cfg.DeviceUniqueID, "error", err)
		return "", fmt.Errorf("create source on %s: %w", cfg.DeviceUniqueID, err)
	}

	c.mutex.Lock()
	c.sources[id] = session
	c.mutex.Unlock()

	c.logger.Info("capture source created", "source", id, "device", cfg.DeviceUniqueID, "video", cfg.UseVideo, "fast_path", cfg.FastPath)
	return id, nil
}

// RemoveSource detaches and disposes the source. It reports whether the id was known.
func (c *CaptureController) RemoveSource(id string) bool {
	c.mutex.Lock()
	session, ok := c.sources[id]
	delete(c.sources, id)
	c.mutex.Unlock()

	if !ok {
		return false
	}

	session.SwitchDevice("")
	session.Dispose()
	c.logger.Info("capture source removed", "source", id)
	return true
}

// Source returns the registered session with the given id.
func (c *CaptureController) Source(id string) (*CaptureSession, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	src, ok := c.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, id)
	}
	return src, nil
}

// Sources returns the registered ids in sorted order.
func (c *CaptureController) Sources() []string {
	c.mutex.Lock()
	ids := make([]string, 0, len(c.sources))
	for id := range c.sources {
		ids = append(ids, id)
	}
	c.mutex.Unlock()
	sort.Strings(ids)
	return ids
}

// Stats returns a snapshot for every registered source.
func (c *CaptureController) Stats() []SessionStats {
	c.mutex.Lock()
	srcs := make([]*CaptureSession, 0, len(c.sources))
	for _, s := range c.sources {
		srcs = append(srcs, s)
	}
	c.mutex.Unlock()

	out := make([]SessionStats, 0, len(srcs))
	for _, s := range srcs {
		out = append(out, s.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close removes every source.
func (c *CaptureController) Close() error {
	var errs []error
	for _, id := range c.Sources() {
		if !c.RemoveSource(id) {
			errs = append(errs, fmt.Errorf("%w: %s", domain.ErrUnknownSource, id))
		}
	}
	return errors.Join(errs...)
}

// MultiDiagnostics fans diagnostics out to every non-nil sink.
func MultiDiagnostics(sinks ...DiagnosticsSink) DiagnosticsSink {
	var out []DiagnosticsSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return DiagnosticsFunc(func(sourceID string, d domain.Diagnostic) {
		for _, s := range out {
			s.OnDiagnostic(sourceID, d)
		}
	})
}

// LoggingDiagnostics writes every diagnostic to the logger. Drops are logged
// at debug level.
func LoggingDiagnostics(logger Logger) DiagnosticsSink {
	return DiagnosticsFunc(func(sourceID string, d domain.Diagnostic) {
		if d.Kind == domain.DiagnosticFrameDropped || d.Kind == domain.DiagnosticAudioDropped {
			logger.Debug("capture diagnostic", "source", sourceID, "event", d.String())
			return
		}
		logger.Info("capture diagnostic", "source", sourceID, "event", d.String())
	})
}
