package texture

import (
	"testing"

	"capture-bridge/internal/domain"
)

func TestRegistry_registerAndDispose(t *testing.T) {
	r := NewRegistry(nil)
	a, b := r.Register(), r.Register()
	if a != 1 || b != 2 {
		t.Fatalf("ids = %d, %d", a, b)
	}
	if !r.Dispose(a) {
		t.Fatal("Dispose of registered id returned false")
	}
	if r.Dispose(a) {
		t.Error("second Dispose returned true")
	}
	if _, ok := r.Provider(a); ok {
		t.Error("provider still present after Dispose")
	}
	if c := r.Register(); c != 3 {
		t.Errorf("id reused: %d", c)
	}
	if ids := r.IDs(); len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Errorf("IDs = %v", ids)
	}
}

func TestProvider_keepsCopyOfLatestFrame(t *testing.T) {
	var notified []int64
	r := NewRegistry(func(id int64) { notified = append(notified, id) })
	id := r.Register()
	p, _ := r.Provider(id)

	if _, ok := p.CopyPixelBuffer(); ok {
		t.Fatal("empty provider returned a frame")
	}

	data := []byte{1, 2, 3, 4}
	frame := &domain.VideoFrame{Width: 1, Height: 1, Format: domain.VideoFormatBGRA}
	frame.Planes[0] = domain.Plane{Data: data, LineSize: 4}
	p.OnVideoFrame(frame)
	data[0] = 99

	snap, ok := p.CopyPixelBuffer()
	if !ok {
		t.Fatal("no frame after delivery")
	}
	if snap.Data[0] != 1 || snap.LineSize != 4 || snap.Format != domain.VideoFormatBGRA {
		t.Errorf("snapshot = %+v", snap)
	}
	snap.Data[1] = 42
	again, _ := p.CopyPixelBuffer()
	if again.Data[1] != 2 {
		t.Error("CopyPixelBuffer shares memory between copies")
	}

	if len(notified) != 1 || notified[0] != id {
		t.Errorf("notified = %v", notified)
	}

	p.OnVideoFrame(nil)
	if _, ok := p.CopyPixelBuffer(); ok {
		t.Error("nil frame did not clear the provider")
	}

	st := p.Stats()
	if st.Samples != 1 || st.Copies != 2 || st.Cleared != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestProvider_recordsSurfaceID(t *testing.T) {
	p := &Provider{id: 1}
	sf := &domain.Surface{ID: 9, Data: []byte{0, 0, 0, 0}, LineSize: 4}
	frame := &domain.VideoFrame{Width: 1, Height: 1, Surface: sf}
	frame.Planes[0] = domain.Plane{Data: sf.Data, LineSize: sf.LineSize}
	p.OnVideoFrame(frame)

	snap, _ := p.CopyPixelBuffer()
	if snap.SurfaceID != 9 {
		t.Errorf("surface id = %d", snap.SurfaceID)
	}
	if sf.UseCount() != 0 {
		t.Error("provider changed the surface use count")
	}
}
