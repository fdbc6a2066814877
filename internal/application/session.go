package application

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"capture-bridge/internal/audiolevel"
	"capture-bridge/internal/conversion"
	"capture-bridge/internal/domain"
)

// FallbackSubtype is forced on the conversion path when the device produces
// an unknown pixel subtype. It must classify to a format the converter accepts.
const FallbackSubtype = domain.SubtypeUYVY422

const dropLogPeriod = time.Second

// SessionState is the lifecycle state of a CaptureSession.
type SessionState int

const (
	SessionCreated SessionState = iota
	SessionConfiguring
	SessionRunning
	SessionStopped
	SessionDisposed
)

func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionConfiguring:
		return "configuring"
	case SessionRunning:
		return "running"
	case SessionStopped:
		return "stopped"
	case SessionDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// SessionConfig selects what a session captures.
type SessionConfig struct {
	DeviceUniqueID string
	UseVideo       bool
	UseAudio       bool
	FastPath       bool
	VideoQueue     int // Pending video deliveries before drops; 0 means default
	AudioQueue     int // Pending audio deliveries before drops; 0 means default
}

// SessionParams wires a session to its backend and sinks.
type SessionParams struct {
	ID          string
	Config      SessionConfig
	Backend     CaptureBackend
	Watcher     DeviceWatcher // Optional
	Frames      FrameSink     // Required when Config.UseVideo
	Levels      LevelSink     // Required when Config.UseAudio
	Diagnostics DiagnosticsSink
	Logger      Logger
}

// SessionStats is a snapshot of session counters.
type SessionStats struct {
	ID              string
	State           SessionState
	DeviceUniqueID  string
	FastPath        bool
	FramesDelivered uint64
	FramesDropped   uint64
	AudioBuffers    uint64
	AudioDropped    uint64
	VideoInfo       domain.VideoInfo
}

// CaptureSession owns one device input and delivers its samples.
//
// Control operations run on a dedicated control worker and are serialized.
// Video and audio deliveries run on their own sequential workers.
type CaptureSession struct {
	id          string
	backend     CaptureBackend
	watcher     DeviceWatcher
	frames      FrameSink
	levels      LevelSink
	diagnostics DiagnosticsSink
	logger      Logger
	processor   *audiolevel.Processor

	control *worker
	video   *worker
	audio   *worker

	mu          sync.Mutex
	state       SessionState
	info        domain.CaptureInfo
	input       CaptureInput
	running     bool
	requestedID string
	unwatch     func()

	// epoch is odd while samples may be delivered; each start and stop
	// advances it so queued work from an earlier run is discarded.
	epoch atomic.Uint64

	formatMu        sync.Mutex
	buildConversion func(domain.ColorSpace, domain.VideoRange, uint32) (conversion.Matrix, error)
	matrix          conversion.Matrix
	haveMatrix      bool

	surfaceMu sync.Mutex
	current   SurfaceToken
	previous  SurfaceToken

	delivered    atomic.Uint64
	dropped      atomic.Uint64
	audioBuffers atomic.Uint64
	audioDropped atomic.Uint64
	lastDropLog  atomic.Int64
	lastAudioLog atomic.Int64
}

// OpenSession validates the configuration, checks the requested device is
// present and builds the session graph. The session is left in the
// Configuring state with no input attached.
func OpenSession(p SessionParams) (*CaptureSession, error) {
	cfg := p.Config
	if !cfg.UseVideo && !cfg.UseAudio {
		return nil, fmt.Errorf("%w: neither audio nor video requested", domain.ErrInvalidParameters)
	}
	if cfg.UseVideo && p.Frames == nil {
		return nil, fmt.Errorf("%w: video session without frame sink", domain.ErrInvalidParameters)
	}
	if cfg.UseAudio && p.Levels == nil {
		return nil, fmt.Errorf("%w: audio session without level sink", domain.ErrInvalidParameters)
	}
	if p.Backend == nil {
		return nil, fmt.Errorf("%w: no capture backend", domain.ErrInvalidParameters)
	}
	if cfg.DeviceUniqueID != "" {
		if _, ok := p.Backend.FindDevice(cfg.DeviceUniqueID); !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrDeviceUnavailable, cfg.DeviceUniqueID)
		}
	}

	s := &CaptureSession{
		id:          p.ID,
		backend:     p.Backend,
		watcher:     p.Watcher,
		frames:      p.Frames,
		levels:      p.Levels,
		diagnostics: p.Diagnostics,
		logger:      p.Logger,
		processor:   audiolevel.New(),
		state:       SessionCreated,

		buildConversion: conversion.BuildConversion,
		info: domain.CaptureInfo{
			UseAudio:   cfg.UseAudio,
			UseVideo:   cfg.UseVideo,
			IsFastPath: cfg.FastPath,
		},
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}

	s.control = newWorker("control", defaultControlQueue)
	if cfg.UseVideo {
		s.video = newWorker("video", queueSize(cfg.VideoQueue, defaultVideoQueue))
	}
	if cfg.UseAudio {
		s.audio = newWorker("audio", queueSize(cfg.AudioQueue, defaultAudioQueue))
	}

	if s.watcher != nil {
		s.unwatch = s.watcher.Watch(s.onDeviceEvent)
	}

	s.setState(SessionConfiguring)
	s.logger.Debug("capture session created", "session", s.id, "video", cfg.UseVideo, "audio", cfg.UseAudio, "fast_path", cfg.FastPath)
	return s, nil
}

func queueSize(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// ID returns the session identifier.
func (s *CaptureSession) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *CaptureSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a copy of the capture info.
func (s *CaptureSession) Info() domain.CaptureInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// LastError returns the most recent failure recorded by a control operation.
func (s *CaptureSession) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.LastError
}

// Stats returns a snapshot of the session counters.
func (s *CaptureSession) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStats{
		ID:              s.id,
		State:           s.state,
		DeviceUniqueID:  s.info.DeviceUniqueID,
		FastPath:        s.info.IsFastPath,
		FramesDelivered: s.delivered.Load(),
		FramesDropped:   s.dropped.Load(),
		AudioBuffers:    s.audioBuffers.Load(),
		AudioDropped:    s.audioDropped.Load(),
		VideoInfo:       s.info.VideoInfo,
	}
}

// CurrentSurface returns a non-owning view of the surface most recently
// delivered on the fast path.
func (s *CaptureSession) CurrentSurface() WeakSurface {
	s.surfaceMu.Lock()
	defer s.surfaceMu.Unlock()
	return s.current.Weak()
}

// SwitchDevice stops any running capture, detaches the current input and
// attaches the device with the given id. An empty id only detaches, which
// leaves the session Stopped with every surface released.
func (s *CaptureSession) SwitchDevice(uniqueID string) bool {
	var ok bool
	if !s.control.Do(func() { ok = s.switchDevice(uniqueID) }) {
		s.setLastError(domain.ErrSessionDisposed)
		return false
	}
	return ok
}

// Configure negotiates the output pixel format of the attached input.
func (s *CaptureSession) Configure() bool {
	var ok bool
	if !s.control.Do(func() { ok = s.configure() }) {
		s.setLastError(domain.ErrSessionDisposed)
		return false
	}
	return ok
}

// Start begins streaming. Starting a running session is a no-op.
func (s *CaptureSession) Start() bool {
	var ok bool
	if !s.control.Do(func() { ok = s.start() }) {
		s.setLastError(domain.ErrSessionDisposed)
		return false
	}
	return ok
}

// Stop halts delivery. When it returns no sink is invoked again for this run,
// except for the final nil frame emitted on the conversion path.
func (s *CaptureSession) Stop() {
	s.control.Do(s.stop)
}

// Dispose stops the session, releases the input and shuts down its workers.
// Later control operations fail and record domain.ErrSessionDisposed.
func (s *CaptureSession) Dispose() {
	s.control.Do(func() {
		if s.State() == SessionDisposed {
			return
		}
		s.stop()
		s.detachInput()
		if s.unwatch != nil {
			s.unwatch()
			s.unwatch = nil
		}
		s.setState(SessionDisposed)
	})
	s.control.Close()
	if s.video != nil {
		s.video.Close()
	}
	if s.audio != nil {
		s.audio.Close()
	}
	s.logger.Debug("capture session disposed", "session", s.id)
}

func (s *CaptureSession) setState(st SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionDisposed {
		return
	}
	s.state = st
}

func (s *CaptureSession) setLastError(err error) {
	s.mu.Lock()
	s.info.LastError = err
	s.mu.Unlock()
}

func (s *CaptureSession) switchDevice(uniqueID string) bool {
	if s.State() == SessionDisposed {
		return false
	}

	s.mu.Lock()
	hadInput := s.input != nil
	s.mu.Unlock()
	if hadInput || uniqueID == "" {
		s.stop()
		s.detachInput()
	}

	s.mu.Lock()
	s.requestedID = uniqueID
	s.mu.Unlock()

	if uniqueID == "" {
		return true
	}

	device, ok := s.backend.FindDevice(uniqueID)
	if !ok {
		s.setLastError(fmt.Errorf("%w: %s", domain.ErrDeviceUnavailable, uniqueID))
		s.logger.Error("capture device not found", "session", s.id, "device", uniqueID)
		return false
	}

	input, err := s.backend.OpenInput(device, sampleHandler{s})
	if err != nil {
		s.setLastError(fmt.Errorf("open %s: %w", uniqueID, err))
		s.logger.Error("failed to open capture input", "session", s.id, "device", uniqueID, "error", err)
		return false
	}

	if err := s.checkCapabilities(input.MediaType()); err != nil {
		input.Close()
		s.setLastError(fmt.Errorf("%w: %s: %v", domain.ErrDeviceUnavailable, uniqueID, err))
		s.logger.Error("capture device lacks requested media", "session", s.id, "device", uniqueID, "error", err)
		return false
	}

	s.mu.Lock()
	s.input = input
	s.info.DeviceUniqueID = uniqueID
	s.info.LastError = nil
	s.mu.Unlock()
	s.setState(SessionConfiguring)

	s.logger.Info("capture device attached", "session", s.id, "device", uniqueID, "name", device.DisplayName)
	return true
}

func (s *CaptureSession) checkCapabilities(mt domain.MediaType) error {
	info := s.Info()
	if info.UseVideo && mt != domain.MediaTypeVideo && mt != domain.MediaTypeMuxed {
		return errors.New("no video capability")
	}
	if info.UseAudio && mt != domain.MediaTypeAudio && mt != domain.MediaTypeMuxed {
		return errors.New("no audio capability")
	}
	return nil
}

func (s *CaptureSession) detachInput() {
	s.mu.Lock()
	input := s.input
	s.input = nil
	s.info.DeviceUniqueID = ""
	s.mu.Unlock()

	if input == nil {
		return
	}
	if err := input.Close(); err != nil {
		s.logger.Error("failed to close capture input", "session", s.id, "error", err)
	}
}

func (s *CaptureSession) configure() bool {
	if s.State() == SessionDisposed {
		return false
	}

	s.mu.Lock()
	input := s.input
	info := s.info
	s.mu.Unlock()

	if input == nil {
		s.setLastError(fmt.Errorf("%w: no input attached", domain.ErrDeviceUnavailable))
		return false
	}

	s.resetVideoInfo()
	if !info.UseVideo {
		return true
	}

	if info.IsFastPath {
		if err := input.SetOutputSubtype(domain.SubtypeBGRA32); err != nil {
			s.setLastError(fmt.Errorf("set fast path format: %w", err))
			s.logger.Error("failed to force fast path format", "session", s.id, "error", err)
			return false
		}
		s.logger.Debug("fast path output configured", "session", s.id, "subtype", domain.SubtypeBGRA32)
		return true
	}

	active := input.ActiveSubtype()
	if domain.Classify(active) != domain.VideoFormatNone {
		s.logger.Info("using native pixel format", "session", s.id, "subtype", active)
		return true
	}

	if err := input.SetOutputSubtype(FallbackSubtype); err != nil {
		s.setLastError(fmt.Errorf("set fallback format: %w", err))
		s.logger.Error("failed to force fallback format", "session", s.id, "error", err)
		return false
	}
	s.logger.Info("unknown pixel format, using fallback", "session", s.id, "requested", active, "actual", FallbackSubtype)
	s.emit(domain.Diagnostic{
		Kind:      domain.DiagnosticFormatSubstituted,
		Requested: active,
		Actual:    FallbackSubtype,
	})
	return true
}

func (s *CaptureSession) resetVideoInfo() {
	s.formatMu.Lock()
	s.matrix = conversion.Matrix{}
	s.haveMatrix = false
	s.formatMu.Unlock()

	s.mu.Lock()
	s.info.VideoInfo = domain.VideoInfo{}
	s.mu.Unlock()
}

func (s *CaptureSession) start() bool {
	if s.State() == SessionDisposed {
		return false
	}

	s.mu.Lock()
	input := s.input
	running := s.running
	s.mu.Unlock()

	if input == nil {
		s.setLastError(fmt.Errorf("%w: no input attached", domain.ErrDeviceUnavailable))
		return false
	}
	if running {
		return true
	}

	s.epoch.Add(1)
	if err := input.Start(); err != nil {
		s.epoch.Add(1)
		s.setLastError(fmt.Errorf("start: %w", err))
		s.logger.Error("failed to start capture", "session", s.id, "error", err)
		return false
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.setState(SessionRunning)

	s.logger.Info("capture started", "session", s.id)
	return true
}

func (s *CaptureSession) stop() {
	st := s.State()
	if st == SessionStopped || st == SessionDisposed {
		return
	}

	s.mu.Lock()
	input := s.input
	wasRunning := s.running
	s.running = false
	info := s.info
	s.mu.Unlock()

	if s.epoch.Load()&1 == 1 {
		s.epoch.Add(1)
	}
	if input != nil && wasRunning {
		if err := input.Stop(); err != nil {
			s.logger.Error("failed to stop capture input", "session", s.id, "error", err)
		}
	}

	if s.video != nil {
		s.video.Flush()
	}
	if s.audio != nil {
		s.audio.Flush()
	}

	s.releaseSurfaces()

	if info.UseVideo && !info.IsFastPath && s.video != nil {
		s.video.Do(func() { s.frames.OnVideoFrame(nil) })
	}

	s.setState(SessionStopped)
	if wasRunning {
		s.logger.Info("capture stopped", "session", s.id, "delivered", s.delivered.Load(), "dropped", s.dropped.Load())
	}
}

func (s *CaptureSession) releaseSurfaces() {
	s.surfaceMu.Lock()
	current := s.current.Take()
	previous := s.previous.Take()
	s.surfaceMu.Unlock()

	current.Release()
	previous.Release()
}

func (s *CaptureSession) emit(d domain.Diagnostic) {
	if s.diagnostics != nil {
		s.diagnostics.OnDiagnostic(s.id, d)
	}
}

// onDeviceEvent is called by the watcher; the event is handled on the
// control worker.
func (s *CaptureSession) onDeviceEvent(ev DeviceEvent) {
	s.control.Submit(func() { s.handleDeviceEvent(ev) })
}

func (s *CaptureSession) handleDeviceEvent(ev DeviceEvent) {
	if s.State() == SessionDisposed {
		return
	}

	s.mu.Lock()
	attached := s.input != nil
	current := s.info.DeviceUniqueID
	requested := s.requestedID
	s.mu.Unlock()

	switch ev.Kind {
	case DeviceDisconnected:
		if !attached || ev.Device.UniqueID != current {
			return
		}
		s.logger.Info("capture device disconnected", "session", s.id, "device", current)
		s.stop()
		s.detachInput()
		s.emit(domain.Diagnostic{Kind: domain.DiagnosticDeviceDisconnected, DeviceID: current})

	case DeviceConnected:
		if attached || requested == "" || ev.Device.UniqueID != requested {
			return
		}
		s.logger.Info("requested capture device connected", "session", s.id, "device", requested)
		if s.switchDevice(requested) && s.configure() && s.start() {
			s.emit(domain.Diagnostic{Kind: domain.DiagnosticDeviceReconnected, DeviceID: requested})
		}
	}
}

// sampleHandler adapts the session to SampleHandler. Samples are stamped with
// the current epoch and queued on the delivery workers.
type sampleHandler struct {
	s *CaptureSession
}

func (h sampleHandler) OnVideoSample(sample domain.VideoSample) {
	s := h.s
	if s.video == nil {
		return
	}
	epoch := s.epoch.Load()
	if epoch&1 == 0 {
		return
	}
	if !s.video.TrySubmit(func() {
		if s.epoch.Load() != epoch {
			return
		}
		s.deliverVideo(sample)
	}) {
		s.recordDrop(epoch)
	}
}

func (h sampleHandler) OnAudioSample(sample domain.AudioSample) {
	s := h.s
	if s.audio == nil {
		return
	}
	epoch := s.epoch.Load()
	if epoch&1 == 0 {
		return
	}
	if !s.audio.TrySubmit(func() {
		if s.epoch.Load() != epoch {
			return
		}
		s.deliverAudio(sample)
	}) {
		s.recordAudioDrop(epoch)
	}
}

func (h sampleHandler) OnSampleDropped() {
	epoch := h.s.epoch.Load()
	if epoch&1 == 0 {
		return
	}
	h.s.recordDrop(epoch)
}

func (s *CaptureSession) recordDrop(epoch uint64) {
	if s.epoch.Load() != epoch {
		return
	}
	n := s.dropped.Add(1)
	if shouldLog(&s.lastDropLog, dropLogPeriod) {
		s.logger.Debug("video frame dropped", "session", s.id, "dropped", n)
	}
	s.emit(domain.Diagnostic{Kind: domain.DiagnosticFrameDropped, Count: n})
}

func (s *CaptureSession) recordAudioDrop(epoch uint64) {
	if s.epoch.Load() != epoch {
		return
	}
	n := s.audioDropped.Add(1)
	if shouldLog(&s.lastAudioLog, dropLogPeriod) {
		s.logger.Debug("audio delivery queue full, dropping buffer", "session", s.id, "dropped", n)
	}
	s.emit(domain.Diagnostic{Kind: domain.DiagnosticAudioDropped, Count: n})
}

func (s *CaptureSession) deliverVideo(sample domain.VideoSample) {
	if s.Info().IsFastPath {
		s.deliverSurface(sample)
		return
	}
	s.deliverConverted(sample)
}

func (s *CaptureSession) deliverSurface(sample domain.VideoSample) {
	surface := sample.Surface
	if surface == nil || (surface.Subtype != domain.SubtypeBGRA32 && surface.Subtype != domain.SubtypeARGB2101010) {
		subtype := sample.Subtype
		if surface != nil {
			subtype = surface.Subtype
		}
		s.emit(domain.Diagnostic{Kind: domain.DiagnosticUnsupportedPixelFormat, Requested: subtype})
		return
	}

	token := AcquireSurface(surface)
	s.surfaceMu.Lock()
	stale := s.previous.Take()
	s.previous = s.current.Take()
	s.current = token
	s.surfaceMu.Unlock()
	stale.Release()

	s.updateVideoInfo(domain.VideoInfo{ColorSpace: domain.ColorSpaceRGB, Range: domain.VideoRangeFull, IsValid: true})

	format := domain.VideoFormatBGRA
	if surface.Subtype == domain.SubtypeARGB2101010 {
		format = domain.VideoFormatR10L
	}
	frame := &domain.VideoFrame{
		TimestampNanos: sample.TimestampNanos,
		Width:          uint32(surface.Width),
		Height:         uint32(surface.Height),
		Format:         format,
		FullRange:      true,
		Surface:        surface,
	}
	frame.Planes[0] = domain.Plane{Data: surface.Data, LineSize: surface.LineSize}

	s.frames.OnVideoFrame(frame)
	s.delivered.Add(1)
}

func (s *CaptureSession) deliverConverted(sample domain.VideoSample) {
	format := domain.Classify(sample.Subtype)
	if format == domain.VideoFormatNone || len(sample.Planes) == 0 {
		s.logger.Debug("unsupported pixel format", "session", s.id, "subtype", sample.Subtype)
		s.emit(domain.Diagnostic{Kind: domain.DiagnosticUnsupportedPixelFormat, Requested: sample.Subtype})
		return
	}

	frame := &domain.VideoFrame{
		TimestampNanos: sample.TimestampNanos,
		Width:          uint32(sample.Width),
		Height:         uint32(sample.Height),
	}

	if !domain.IsYUV(format) {
		s.updateVideoInfo(domain.VideoInfo{ColorSpace: domain.ColorSpaceRGB, Range: domain.VideoRangeFull, IsValid: true})
		frame.Format = format
		frame.FullRange = true
		for i, p := range sample.Planes {
			if i == domain.MaxPlanes {
				break
			}
			data := make([]byte, len(p.Data))
			copy(data, p.Data)
			frame.Planes[i] = domain.Plane{Data: data, LineSize: p.LineSize}
		}
		s.frames.OnVideoFrame(frame)
		s.delivered.Add(1)
		return
	}

	cs := domain.ColorSpaceFromDescription(sample.Description)
	rng := domain.VideoRangePartial
	if domain.IsFullRangeFormat(sample.Subtype) {
		rng = domain.VideoRangeFull
	}

	m, err := s.conversionFor(cs, rng, domain.BitsPerComponent(format))
	if err != nil {
		s.setLastError(err)
		s.logger.Debug("conversion matrix unavailable, dropping frame", "session", s.id, "colorspace", cs, "error", err)
		if s.updateVideoInfo(domain.VideoInfo{ColorSpace: cs, Range: rng}) {
			s.frames.OnVideoFrame(nil)
		}
		return
	}
	s.updateVideoInfo(domain.VideoInfo{ColorSpace: cs, Range: rng, IsValid: true})

	plane := sample.Planes[0]
	data, err := conversion.Convert(plane.Data, sample.Width, sample.Height, plane.LineSize, sample.Subtype, m)
	if err != nil {
		kind := domain.DiagnosticUnsupportedPixelFormat
		if errors.Is(err, domain.ErrBufferFormat) {
			kind = domain.DiagnosticBufferFormatError
		}
		s.logger.Debug("frame conversion failed", "session", s.id, "subtype", sample.Subtype, "error", err)
		s.emit(domain.Diagnostic{Kind: kind, Requested: sample.Subtype, Err: err})
		return
	}

	frame.Format = domain.VideoFormatBGRA
	frame.Planes[0] = domain.Plane{Data: data, LineSize: sample.Width * conversion.BytesPerPixel}
	frame.ColorMatrix = m.Values
	frame.RangeMin = m.RangeMin
	frame.RangeMax = m.RangeMax
	frame.FullRange = m.Full

	s.frames.OnVideoFrame(frame)
	s.delivered.Add(1)
}

// conversionFor returns the cached matrix when colorspace and range are
// unchanged, building a new one otherwise.
func (s *CaptureSession) conversionFor(cs domain.ColorSpace, rng domain.VideoRange, bpc uint32) (conversion.Matrix, error) {
	current := s.Info().VideoInfo

	s.formatMu.Lock()
	defer s.formatMu.Unlock()

	if s.haveMatrix && current.IsValid && current.ColorSpace == cs && current.Range == rng {
		return s.matrix, nil
	}
	m, err := s.buildConversion(cs, rng, bpc)
	if err != nil {
		s.haveMatrix = false
		return conversion.Matrix{}, err
	}
	s.matrix = m
	s.haveMatrix = true
	return m, nil
}

// updateVideoInfo stores next and reports whether its validity flipped.
func (s *CaptureSession) updateVideoInfo(next domain.VideoInfo) bool {
	s.mu.Lock()
	prev := s.info.VideoInfo
	s.info.VideoInfo = next
	s.mu.Unlock()

	if prev.IsValid == next.IsValid {
		return false
	}
	s.logger.Debug("video format changed", "session", s.id, "colorspace", next.ColorSpace, "range", next.Range, "valid", next.IsValid)
	s.emit(domain.Diagnostic{Kind: domain.DiagnosticFormatChanged, Valid: next.IsValid})
	return true
}

func (s *CaptureSession) deliverAudio(sample domain.AudioSample) {
	frame, err := s.processor.Process(sample.Buffers, sample.Description)
	switch {
	case errors.Is(err, domain.ErrChannelCountExceeded):
		s.logger.Error("audio channel count exceeds limit", "session", s.id, "channels", len(sample.Buffers), "max", domain.MaxPlanes)
		s.emit(domain.Diagnostic{Kind: domain.DiagnosticChannelCountExceeded, Channels: len(sample.Buffers), Err: err})
	case err != nil:
		s.logger.Debug("audio buffer rejected", "session", s.id, "error", err)
		s.emit(domain.Diagnostic{Kind: domain.DiagnosticBufferFormatError, Err: err})
		return
	}

	frame.TimestampNanos = sample.TimestampNanos
	s.levels.OnAudioLevels(s.id, frame)
	s.audioBuffers.Add(1)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
