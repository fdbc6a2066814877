package application

import (
	"sync/atomic"

	"capture-bridge/internal/domain"
)

type surfaceSlot struct {
	surface  *domain.Surface
	released atomic.Bool
}

// SurfaceToken owns exactly one use count of a hardware surface. Tokens are
// moved with Take and released once; the zero value holds nothing.
type SurfaceToken struct {
	slot *surfaceSlot
}

// AcquireSurface increments the surface use count and returns its token.
func AcquireSurface(s *domain.Surface) SurfaceToken {
	if s == nil {
		return SurfaceToken{}
	}
	s.IncrementUseCount()
	return SurfaceToken{slot: &surfaceSlot{surface: s}}
}

// Take moves the claim out of t, leaving t empty.
func (t *SurfaceToken) Take() SurfaceToken {
	out := *t
	t.slot = nil
	return out
}

// Release drops the claim. Releasing an empty or already released token is a no-op.
func (t *SurfaceToken) Release() {
	if t.slot == nil {
		return
	}
	if t.slot.released.CompareAndSwap(false, true) {
		t.slot.surface.DecrementUseCount()
	}
	t.slot = nil
}

// Surface returns the held surface, or nil.
func (t SurfaceToken) Surface() *domain.Surface {
	if t.slot == nil || t.slot.released.Load() {
		return nil
	}
	return t.slot.surface
}

// Weak returns a non-owning view of the token.
func (t SurfaceToken) Weak() WeakSurface {
	return WeakSurface{slot: t.slot}
}

// WeakSurface observes a surface without holding a use count.
type WeakSurface struct {
	slot *surfaceSlot
}

// Get returns the surface while its owning token is unreleased.
func (w WeakSurface) Get() (*domain.Surface, bool) {
	if w.slot == nil || w.slot.released.Load() {
		return nil, false
	}
	return w.slot.surface, true
}
