package camera

import (
	"fmt"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/driver"
	"github.com/pion/mediadevices/pkg/prop"

	"capture-bridge/internal/application"
	"capture-bridge/internal/domain"
)

// Enumerator lists the devices known to mediadevices.
type Enumerator func() []mediadevices.MediaDeviceInfo

// MediaDevicesManager implements discovery and the capture backend on top of
// the mediadevices driver manager. Drivers are registered by the binary.
type MediaDevicesManager struct {
	logger    application.Logger
	enumerate Enumerator
	manager   *driver.Manager
}

// NewMediaDevicesManager creates a manager over the global driver registry.
func NewMediaDevicesManager(logger application.Logger) *MediaDevicesManager {
	return &MediaDevicesManager{
		logger:    logger,
		enumerate: mediadevices.EnumerateDevices,
		manager:   driver.GetManager(),
	}
}

// ListDevices returns the devices of the given kind.
func (m *MediaDevicesManager) ListDevices(kind domain.MediaKind) ([]domain.Device, error) {
	devices := m.enumerate()
	result := make([]domain.Device, 0, len(devices))

	for _, info := range devices {
		d, ok := toDevice(info)
		if !ok || d.Kind != kind {
			continue
		}
		result = append(result, d)
	}

	m.logger.Debug("devices enumerated", "kind", kind, "count", len(result))
	return result, nil
}

// FindDevice looks up a present device by id.
func (m *MediaDevicesManager) FindDevice(uniqueID string) (domain.Device, bool) {
	for _, info := range m.enumerate() {
		if info.DeviceID != uniqueID {
			continue
		}
		return toDevice(info)
	}
	return domain.Device{}, false
}

// OpenInput opens the driver of the device. The driver stays open, and so
// locked for other users, until the input is closed.
func (m *MediaDevicesManager) OpenInput(device domain.Device, handler application.SampleHandler) (application.CaptureInput, error) {
	drivers := m.manager.Query(driver.FilterID(device.UniqueID))
	if len(drivers) == 0 {
		return nil, fmt.Errorf("%w: no driver for %s", domain.ErrDeviceUnavailable, device.UniqueID)
	}
	d := drivers[0]

	if d.Status() != driver.StateOpened {
		if err := d.Open(); err != nil {
			return nil, fmt.Errorf("open driver %s: %w", device.UniqueID, err)
		}
	}

	props := d.Properties()
	in := &driverInput{
		driver:  d,
		device:  device,
		handler: handler,
		logger:  m.logger,
		opened:  true,
	}

	switch d.(type) {
	case driver.VideoRecorder:
		in.media = domain.MediaTypeVideo
		in.props = selectVideoProperty(props)
		in.output = subtypeForFormat(in.props.FrameFormat)
		in.native = in.output
	case driver.AudioRecorder:
		in.media = domain.MediaTypeAudio
		in.props = selectAudioProperty(props)
	default:
		d.Close()
		return nil, fmt.Errorf("%w: driver %s records neither audio nor video", domain.ErrDeviceUnavailable, device.UniqueID)
	}

	m.logger.Info("device opened",
		"device", device.UniqueID,
		"label", d.Info().Label,
		"width", in.props.Width,
		"height", in.props.Height,
		"format", in.props.FrameFormat,
		"subtype", in.native,
	)
	return in, nil
}

func toDevice(info mediadevices.MediaDeviceInfo) (domain.Device, bool) {
	d := domain.Device{UniqueID: info.DeviceID, DisplayName: info.Label}
	switch info.Kind {
	case mediadevices.VideoInput:
		d.Kind = domain.MediaKindVideo
	case mediadevices.AudioInput:
		d.Kind = domain.MediaKindAudio
	default:
		return domain.Device{}, false
	}
	if d.DisplayName == "" {
		d.DisplayName = info.DeviceID
	}
	return d, true
}

// selectVideoProperty prefers the largest raw format, falling back to the
// largest compressed one.
func selectVideoProperty(props []prop.Media) prop.Media {
	var best prop.Media
	bestRaw := false
	for _, p := range props {
		raw := subtypeForFormat(p.FrameFormat) != domain.SubtypeNone
		if raw && !bestRaw {
			best, bestRaw = p, true
			continue
		}
		if raw == bestRaw && p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}

func selectAudioProperty(props []prop.Media) prop.Media {
	var best prop.Media
	for _, p := range props {
		if p.ChannelCount > best.ChannelCount || (p.ChannelCount == best.ChannelCount && p.SampleRate > best.SampleRate) {
			best = p
		}
	}
	return best
}
