package application

import (
	"capture-bridge/internal/domain"
)

// DeviceDiscovery lists the input devices currently present.
type DeviceDiscovery interface {
	// ListDevices returns the devices of the given kind.
	ListDevices(kind domain.MediaKind) ([]domain.Device, error)
}

// CaptureBackend is the platform capture graph.
type CaptureBackend interface {
	// FindDevice looks up a device that is currently present.
	FindDevice(uniqueID string) (domain.Device, bool)

	// OpenInput attaches to the device and takes its configuration lock.
	// The handler receives samples between Start and Stop of the returned input.
	OpenInput(device domain.Device, handler SampleHandler) (CaptureInput, error)
}

// CaptureInput is one opened device input.
type CaptureInput interface {
	// MediaType reports the media carried by the device's active format.
	MediaType() domain.MediaType

	// ActiveSubtype returns the pixel subtype currently produced by the device.
	ActiveSubtype() domain.FourCC

	// SetOutputSubtype forces the pixel subtype delivered to the handler.
	SetOutputSubtype(subtype domain.FourCC) error

	// Start begins streaming. It may block briefly.
	Start() error

	// Stop ends streaming. No handler call happens after Stop returns.
	Stop() error

	// Close releases the input and unlocks the device configuration.
	Close() error
}

// SampleHandler receives raw samples from a CaptureInput.
type SampleHandler interface {
	OnVideoSample(sample domain.VideoSample)
	OnAudioSample(sample domain.AudioSample)
	OnSampleDropped()
}

// DeviceEventKind distinguishes hot-plug events.
type DeviceEventKind int

const (
	DeviceConnected DeviceEventKind = iota + 1
	DeviceDisconnected
)

// DeviceEvent is a hot-plug notification.
type DeviceEvent struct {
	Kind   DeviceEventKind
	Device domain.Device
}

// DeviceWatcher delivers hot-plug events.
type DeviceWatcher interface {
	// Watch registers fn and returns a function that unregisters it.
	Watch(fn func(DeviceEvent)) (cancel func())
}

// FrameSink receives decoded video frames. A nil frame means there is no
// current frame. It is called on the session's video worker.
type FrameSink interface {
	OnVideoFrame(frame *domain.VideoFrame)
}

// LevelSink receives audio level vectors on the session's audio worker.
type LevelSink interface {
	OnAudioLevels(sourceID string, frame domain.AudioFrame)
}

// DiagnosticsSink receives non-fatal session events.
type DiagnosticsSink interface {
	OnDiagnostic(sourceID string, d domain.Diagnostic)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(frame *domain.VideoFrame)

func (f FrameSinkFunc) OnVideoFrame(frame *domain.VideoFrame) { f(frame) }

// LevelSinkFunc adapts a function to LevelSink.
type LevelSinkFunc func(sourceID string, frame domain.AudioFrame)

func (f LevelSinkFunc) OnAudioLevels(sourceID string, frame domain.AudioFrame) { f(sourceID, frame) }

// DiagnosticsFunc adapts a function to DiagnosticsSink.
type DiagnosticsFunc func(sourceID string, d domain.Diagnostic)

func (f DiagnosticsFunc) OnDiagnostic(sourceID string, d domain.Diagnostic) { f(sourceID, d) }

// Logger is the logging contract used across the bridge.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}
