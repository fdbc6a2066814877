package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/mediadevices/pkg/driver"
	"github.com/pion/mediadevices/pkg/io/audio"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	"capture-bridge/internal/application"
	"capture-bridge/internal/domain"
)

// driverInput is a CaptureInput backed by one mediadevices driver.
type driverInput struct {
	driver  driver.Driver
	device  domain.Device
	handler application.SampleHandler
	logger  application.Logger
	media   domain.MediaType
	props   prop.Media

	mu      sync.Mutex
	native  domain.FourCC
	output  domain.FourCC
	opened  bool
	cancel  context.CancelFunc
	done    chan struct{}
	surface uint64
}

func (in *driverInput) MediaType() domain.MediaType { return in.media }

func (in *driverInput) ActiveSubtype() domain.FourCC {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.output
}

func (in *driverInput) SetOutputSubtype(subtype domain.FourCC) error {
	switch subtype {
	case domain.SubtypeUYVY422, domain.SubtypeBGRA32:
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedPixelFormat, subtype)
	}
	in.mu.Lock()
	in.output = subtype
	in.mu.Unlock()
	return nil
}

func (in *driverInput) Start() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.cancel != nil {
		return nil
	}
	if !in.opened {
		if err := in.driver.Open(); err != nil {
			return fmt.Errorf("reopen driver %s: %w", in.device.UniqueID, err)
		}
		in.opened = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	switch rec := in.driver.(type) {
	case driver.VideoRecorder:
		reader, err := rec.VideoRecord(in.props)
		if err != nil {
			cancel()
			return fmt.Errorf("video record %s: %w", in.device.UniqueID, err)
		}
		go in.videoLoop(ctx, reader, done)
	case driver.AudioRecorder:
		reader, err := rec.AudioRecord(in.props)
		if err != nil {
			cancel()
			return fmt.Errorf("audio record %s: %w", in.device.UniqueID, err)
		}
		go in.audioLoop(ctx, reader, done)
	default:
		cancel()
		return domain.ErrDeviceUnavailable
	}

	in.cancel = cancel
	in.done = done
	return nil
}

// Stop cancels the read loop and closes the driver, which unblocks a pending
// read. The next Start reopens the driver.
func (in *driverInput) Stop() error {
	in.mu.Lock()
	cancel, done := in.cancel, in.done
	in.cancel, in.done = nil, nil
	in.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	err := in.closeDriver()
	<-done
	return err
}

func (in *driverInput) Close() error {
	if err := in.Stop(); err != nil {
		return err
	}
	return in.closeDriver()
}

func (in *driverInput) closeDriver() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.opened {
		return nil
	}
	in.opened = false
	return in.driver.Close()
}

func (in *driverInput) videoLoop(ctx context.Context, reader video.Reader, done chan struct{}) {
	defer close(done)
	for {
		img, release, err := reader.Read()
		if ctx.Err() != nil {
			if release != nil {
				release()
			}
			return
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				in.logger.Error("video read failed", "device", in.device.UniqueID, "error", err)
			}
			return
		}
		if img == nil {
			in.handler.OnSampleDropped()
			continue
		}

		in.mu.Lock()
		output := in.output
		in.surface++
		surfaceID := in.surface
		in.mu.Unlock()

		sample, ok := videoSample(img, output, surfaceID, uint64(time.Now().UnixNano()))
		if release != nil {
			release()
		}
		if !ok {
			in.handler.OnSampleDropped()
			continue
		}
		in.handler.OnVideoSample(sample)
	}
}

func (in *driverInput) audioLoop(ctx context.Context, reader audio.Reader, done chan struct{}) {
	defer close(done)
	for {
		chunk, release, err := reader.Read()
		if ctx.Err() != nil {
			if release != nil {
				release()
			}
			return
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				in.logger.Error("audio read failed", "device", in.device.UniqueID, "error", err)
			}
			return
		}

		sample, ok := audioSample(chunk, uint64(time.Now().UnixNano()))
		if release != nil {
			release()
		}
		if !ok {
			in.logger.Debug("unsupported audio chunk", "device", in.device.UniqueID)
			continue
		}
		in.handler.OnAudioSample(sample)
	}
}
