package application

import (
	"errors"
	"sync"
	"testing"
	"time"

	"capture-bridge/internal/domain"
)

const waitTimeout = 2 * time.Second

type fakeBackend struct {
	mu      sync.Mutex
	devices map[string]domain.Device
	media   domain.MediaType
	subtype domain.FourCC
	openErr error
	inputs  []*fakeInput
}

func newFakeBackend(devices ...domain.Device) *fakeBackend {
	b := &fakeBackend{
		devices: make(map[string]domain.Device),
		media:   domain.MediaTypeVideo,
		subtype: domain.SubtypeUYVY422,
	}
	for _, d := range devices {
		b.devices[d.UniqueID] = d
	}
	return b
}

func (b *fakeBackend) FindDevice(id string) (domain.Device, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[id]
	return d, ok
}

func (b *fakeBackend) ListDevices(kind domain.MediaKind) ([]domain.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Device
	for _, d := range b.devices {
		out = append(out, d)
	}
	return out, nil
}

func (b *fakeBackend) OpenInput(d domain.Device, h SampleHandler) (CaptureInput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	in := &fakeInput{device: d, handler: h, media: b.media, active: b.subtype}
	b.inputs = append(b.inputs, in)
	return in, nil
}

func (b *fakeBackend) remove(id string) {
	b.mu.Lock()
	delete(b.devices, id)
	b.mu.Unlock()
}

func (b *fakeBackend) add(d domain.Device) {
	b.mu.Lock()
	b.devices[d.UniqueID] = d
	b.mu.Unlock()
}

func (b *fakeBackend) lastInput(t *testing.T) *fakeInput {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.inputs) == 0 {
		t.Fatal("no input opened")
	}
	return b.inputs[len(b.inputs)-1]
}

func (b *fakeBackend) inputCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inputs)
}

type fakeInput struct {
	mu      sync.Mutex
	device  domain.Device
	handler SampleHandler
	media   domain.MediaType
	active  domain.FourCC
	forced  []domain.FourCC
	started int
	stopped int
	closed  int
}

func (in *fakeInput) MediaType() domain.MediaType { return in.media }

func (in *fakeInput) ActiveSubtype() domain.FourCC {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.active
}

func (in *fakeInput) SetOutputSubtype(s domain.FourCC) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.forced = append(in.forced, s)
	in.active = s
	return nil
}

func (in *fakeInput) Start() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.started++
	return nil
}

func (in *fakeInput) Stop() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopped++
	return nil
}

func (in *fakeInput) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed > 0 {
		return errors.New("already closed")
	}
	in.closed++
	return nil
}

func (in *fakeInput) counts() (started, stopped, closed int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.started, in.stopped, in.closed
}

func (in *fakeInput) forcedSubtypes() []domain.FourCC {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]domain.FourCC(nil), in.forced...)
}

type fakeWatcher struct {
	mu  sync.Mutex
	fns map[int]func(DeviceEvent)
	seq int
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{fns: make(map[int]func(DeviceEvent))}
}

func (w *fakeWatcher) Watch(fn func(DeviceEvent)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	id := w.seq
	w.fns[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.fns, id)
		w.mu.Unlock()
	}
}

func (w *fakeWatcher) fire(ev DeviceEvent) {
	w.mu.Lock()
	fns := make([]func(DeviceEvent), 0, len(w.fns))
	for _, fn := range w.fns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (w *fakeWatcher) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.fns)
}

type frameRecorder struct {
	ch chan *domain.VideoFrame
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{ch: make(chan *domain.VideoFrame, 64)}
}

func (r *frameRecorder) OnVideoFrame(f *domain.VideoFrame) { r.ch <- f }

func (r *frameRecorder) next(t *testing.T) *domain.VideoFrame {
	t.Helper()
	select {
	case f := <-r.ch:
		return f
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func (r *frameRecorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case f := <-r.ch:
		t.Fatalf("unexpected frame delivered: %+v", f)
	default:
	}
}

type levelEvent struct {
	sourceID string
	frame    domain.AudioFrame
}

type levelRecorder struct {
	ch chan levelEvent
}

func newLevelRecorder() *levelRecorder {
	return &levelRecorder{ch: make(chan levelEvent, 64)}
}

func (r *levelRecorder) OnAudioLevels(id string, f domain.AudioFrame) {
	r.ch <- levelEvent{sourceID: id, frame: f}
}

type diagRecorder struct {
	ch chan domain.Diagnostic
}

func newDiagRecorder() *diagRecorder {
	return &diagRecorder{ch: make(chan domain.Diagnostic, 64)}
}

func (r *diagRecorder) OnDiagnostic(_ string, d domain.Diagnostic) { r.ch <- d }

// waitKind returns the first diagnostic of the given kind, skipping others.
func (r *diagRecorder) waitKind(t *testing.T, kind domain.DiagnosticKind) domain.Diagnostic {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case d := <-r.ch:
			if d.Kind == kind {
				return d
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
			return domain.Diagnostic{}
		}
	}
}

func (r *diagRecorder) drain() []domain.Diagnostic {
	var out []domain.Diagnostic
	for {
		select {
		case d := <-r.ch:
			out = append(out, d)
		default:
			return out
		}
	}
}

func uyvySample(width, height int, y, cb, cr byte) domain.VideoSample {
	lineSize := width * 2
	buf := make([]byte, lineSize*height)
	for i := 0; i < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = cb, y, cr, y
	}
	return domain.VideoSample{
		TimestampNanos: 1000,
		Width:          width,
		Height:         height,
		Subtype:        domain.SubtypeUYVY422,
		Description:    domain.FormatDescription{YCbCrMatrix: domain.YCbCrMatrixITU709},
		Planes:         []domain.Plane{{Data: buf, LineSize: lineSize}},
	}
}

func bgraSurface(id uint64, width, height int) *domain.Surface {
	return &domain.Surface{
		ID:       id,
		Width:    width,
		Height:   height,
		Subtype:  domain.SubtypeBGRA32,
		Data:     make([]byte, width*height*4),
		LineSize: width * 4,
	}
}

var testCamera = domain.Device{UniqueID: "cam-1", DisplayName: "Test Camera", Kind: domain.MediaKindVideo}
var testMic = domain.Device{UniqueID: "mic-1", DisplayName: "Test Mic", Kind: domain.MediaKindAudio}

func timeAfter() <-chan time.Time {
	return time.After(waitTimeout)
}
