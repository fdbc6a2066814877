package domain

import "fmt"

// DiagnosticKind tags a Diagnostic event.
type DiagnosticKind int

const (
	DiagnosticFrameDropped DiagnosticKind = iota + 1
	DiagnosticChannelCountExceeded
	DiagnosticFormatSubstituted
	DiagnosticFormatChanged
	DiagnosticUnsupportedPixelFormat
	DiagnosticBufferFormatError
	DiagnosticDeviceDisconnected
	DiagnosticDeviceReconnected
	DiagnosticAudioDropped
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagnosticFrameDropped:
		return "frame_dropped"
	case DiagnosticChannelCountExceeded:
		return "channel_count_exceeded"
	case DiagnosticFormatSubstituted:
		return "format_substituted"
	case DiagnosticFormatChanged:
		return "format_changed"
	case DiagnosticUnsupportedPixelFormat:
		return "unsupported_pixel_format"
	case DiagnosticBufferFormatError:
		return "buffer_format_error"
	case DiagnosticDeviceDisconnected:
		return "device_disconnected"
	case DiagnosticDeviceReconnected:
		return "device_reconnected"
	case DiagnosticAudioDropped:
		return "audio_dropped"
	default:
		return "unknown"
	}
}

// Diagnostic is a non-fatal informational event raised by a session.
// Only the fields relevant to Kind are set.
type Diagnostic struct {
	Kind      DiagnosticKind
	Count     uint64 // FrameDropped, AudioDropped: total drops so far
	Channels  int    // ChannelCountExceeded: channels offered
	Requested FourCC // FormatSubstituted, UnsupportedPixelFormat
	Actual    FourCC // FormatSubstituted
	Valid     bool   // FormatChanged: new VideoInfo.IsValid
	DeviceID  string // DeviceDisconnected, DeviceReconnected
	Err       error
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case DiagnosticFrameDropped, DiagnosticAudioDropped:
		return fmt.Sprintf("%s count=%d", d.Kind, d.Count)
	case DiagnosticChannelCountExceeded:
		return fmt.Sprintf("%s channels=%d max=%d", d.Kind, d.Channels, MaxPlanes)
	case DiagnosticFormatSubstituted:
		return fmt.Sprintf("%s requested=%s actual=%s", d.Kind, d.Requested, d.Actual)
	case DiagnosticFormatChanged:
		return fmt.Sprintf("%s valid=%t", d.Kind, d.Valid)
	case DiagnosticUnsupportedPixelFormat:
		return fmt.Sprintf("%s subtype=%s", d.Kind, d.Requested)
	case DiagnosticDeviceDisconnected, DiagnosticDeviceReconnected:
		return fmt.Sprintf("%s device=%s", d.Kind, d.DeviceID)
	default:
		if d.Err != nil {
			return fmt.Sprintf("%s err=%v", d.Kind, d.Err)
		}
		return d.Kind.String()
	}
}
