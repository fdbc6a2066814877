// Package texture keeps the latest video frame per registered texture id.
package texture

import (
	"sort"
	"sync"
	"sync/atomic"

	"capture-bridge/internal/domain"
)

// Snapshot is an owned copy of one video frame.
type Snapshot struct {
	TimestampNanos uint64
	Width          uint32
	Height         uint32
	Format         domain.VideoFormat
	LineSize       int
	Data           []byte
	SurfaceID      uint64
}

// Stats counts the activity of one provider.
type Stats struct {
	TextureID int64
	Samples   uint64
	Copies    uint64
	Cleared   uint64
}

// Provider holds the latest frame delivered for one texture. It implements
// application.FrameSink.
type Provider struct {
	id     int64
	notify func(textureID int64)

	mu     sync.Mutex
	latest *Snapshot

	samples atomic.Uint64
	copies  atomic.Uint64
	cleared atomic.Uint64
}

// ID returns the texture id.
func (p *Provider) ID() int64 { return p.id }

// OnVideoFrame stores a copy of the frame's first plane. A nil frame clears
// the provider.
func (p *Provider) OnVideoFrame(frame *domain.VideoFrame) {
	if frame == nil {
		p.mu.Lock()
		p.latest = nil
		p.mu.Unlock()
		p.cleared.Add(1)
		return
	}

	plane := frame.Planes[0]
	snap := &Snapshot{
		TimestampNanos: frame.TimestampNanos,
		Width:          frame.Width,
		Height:         frame.Height,
		Format:         frame.Format,
		LineSize:       plane.LineSize,
		Data:           append([]byte(nil), plane.Data...),
	}
	if frame.Surface != nil {
		snap.SurfaceID = frame.Surface.ID
	}

	p.mu.Lock()
	p.latest = snap
	p.mu.Unlock()
	p.samples.Add(1)

	if p.notify != nil {
		p.notify(p.id)
	}
}

// CopyPixelBuffer returns a copy of the latest frame.
func (p *Provider) CopyPixelBuffer() (Snapshot, bool) {
	p.mu.Lock()
	latest := p.latest
	p.mu.Unlock()

	if latest == nil {
		return Snapshot{}, false
	}
	out := *latest
	out.Data = append([]byte(nil), latest.Data...)
	p.copies.Add(1)
	return out, true
}

// Stats returns the provider counters.
func (p *Provider) Stats() Stats {
	return Stats{
		TextureID: p.id,
		Samples:   p.samples.Load(),
		Copies:    p.copies.Load(),
		Cleared:   p.cleared.Load(),
	}
}

// Registry allocates texture ids and their providers.
type Registry struct {
	notify func(textureID int64)

	mu        sync.Mutex
	next      int64
	providers map[int64]*Provider
}

// NewRegistry creates a registry. notify, when set, is called after every
// stored frame.
func NewRegistry(notify func(textureID int64)) *Registry {
	return &Registry{
		notify:    notify,
		providers: make(map[int64]*Provider),
	}
}

// Register allocates a new texture id. Ids start at 1 and are never reused.
func (r *Registry) Register() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.providers[r.next] = &Provider{id: r.next, notify: r.notify}
	return r.next
}

// Provider returns the provider of a texture id.
func (r *Registry) Provider(id int64) (*Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	return p, ok
}

// Dispose forgets a texture id. It reports whether the id was registered.
func (r *Registry) Dispose(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return false
	}
	delete(r.providers, id)
	return true
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []int64 {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
