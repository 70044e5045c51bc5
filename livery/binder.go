package livery

import (
	"context"
	"image"
	"io"
	"log"
	"strings"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"

	"github.com/trijayaagung/armada-studio/scene"
)

// Role is a logical surface category resolved by case-insensitive substring
// containment against material names.
type Role int

const (
	RoleBody Role = iota
	RoleAlpha
)

func (r Role) String() string {
	switch r {
	case RoleBody:
		return "body"
	case RoleAlpha:
		return "alpha"
	}
	return "unknown"
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "body":
		return RoleBody, nil
	case "alpha", "glass":
		return RoleAlpha, nil
	}
	return 0, errors.Errorf("Unknown livery role %q", s)
}

func (r Role) Matches(materialName string) bool {
	name := strings.ToLower(materialName)
	switch r {
	case RoleBody:
		return strings.Contains(name, "body")
	case RoleAlpha:
		return strings.Contains(name, "alpha") || strings.Contains(name, "glass")
	}
	return false
}

// alphaTestThreshold keeps glass edges from aliasing into halos.
const alphaTestThreshold = 0.1

// Bind is the completion future of one bind call. The decode runs off the
// caller's goroutine; Err is meaningful once Done is closed.
type Bind struct {
	Role Role

	done    chan struct{}
	err     error
	applied int
}

func (b *Bind) Done() <-chan struct{} { return b.done }

func (b *Bind) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

// Applied reports how many materials received the texture. Zero matches is a
// no-op, not an error.
func (b *Bind) Applied() int {
	select {
	case <-b.done:
		return b.applied
	default:
		return 0
	}
}

// Wait blocks until the bind settles or ctx expires.
func (b *Bind) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Binder swaps livery bitmaps onto scene materials by role. It owns every
// texture it has bound and releases the previous one exactly once when a role
// is rebound. Create a fresh Binder per loaded scene.
//
// applyLock, when set, is held for the duration of every material swap and
// release. Pass the render target's lock so a swap never interleaves with a
// frame being rasterized.
type Binder struct {
	mu        sync.Mutex
	applyLock sync.Locker
	bound     map[Role]*scene.Texture
	pending   []*Bind
}

func NewBinder(applyLock sync.Locker) *Binder {
	return &Binder{
		applyLock: applyLock,
		bound:     make(map[Role]*scene.Texture),
	}
}

// Bind decodes src into a texture and applies it to every material of sc
// matching role. A nil src settles immediately and leaves the materials'
// current textures untouched. Decode failure keeps the previous binding and
// surfaces on the returned future; it never panics past the bind boundary.
//
// Body and alpha binds are not ordered relative to each other. A capture
// issued before both settle can observe a partially textured scene; callers
// wanting a guaranteed-complete frame must Ready() first.
func (b *Binder) Bind(sc *scene.Scene, role Role, src io.Reader) *Bind {
	bind := &Bind{Role: role, done: make(chan struct{})}

	if src == nil {
		close(bind.done)
		return bind
	}

	b.mu.Lock()
	b.pending = append(b.pending, bind)
	b.mu.Unlock()

	go func() {
		defer close(bind.done)

		img, format, err := image.Decode(src)
		if err != nil {
			bind.err = errors.Wrapf(err, "Failed to decode %s bitmap", role)
			log.Printf("[livery] %v", bind.err)
			return
		}

		tex := scene.NewTexture(role.String(), img)
		tex.FlipY = false // livery art is authored against the mesh UV origin
		tex.WrapS = scene.WrapRepeat
		tex.WrapT = scene.WrapRepeat
		tex.MinFilter = scene.FilterTrilinear
		tex.MagFilter = scene.FilterBilinear
		tex.BuildMipmaps()

		bind.applied = b.apply(sc, role, tex)
		log.Printf("[livery] Bound %s %s bitmap %dx%d to %d materials",
			format, role, tex.Width, tex.Height, bind.applied)
	}()

	return bind
}

func (b *Binder) apply(sc *scene.Scene, role Role, tex *scene.Texture) int {
	matched := sc.MaterialsMatching(role.Matches)
	if len(matched) == 0 {
		return 0
	}

	if b.applyLock != nil {
		b.applyLock.Lock()
		defer b.applyLock.Unlock()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev := b.bound[role]; prev != nil {
		prev.Release()
	}
	b.bound[role] = tex

	for _, mat := range matched {
		mat.Map = tex
		if role == RoleAlpha {
			mat.Transparent = true
			mat.AlphaTest = alphaTestThreshold
		}
	}
	return len(matched)
}

// Bound returns the texture currently owned for role, if any.
func (b *Binder) Bound(role Role) (*scene.Texture, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tex, ok := b.bound[role]
	return tex, ok
}

// Ready blocks until every bind issued so far has settled. Individual decode
// failures do not fail the barrier; they already surfaced on their futures.
func (b *Binder) Ready(ctx context.Context) error {
	b.mu.Lock()
	waiting := make([]*Bind, len(b.pending))
	copy(waiting, b.pending)
	b.mu.Unlock()

	for _, bind := range waiting {
		select {
		case <-bind.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ReleaseAll drops every owned texture, once each. Called when the editing
// session ends or a new scene replaces the old one.
func (b *Binder) ReleaseAll() {
	if b.applyLock != nil {
		b.applyLock.Lock()
		defer b.applyLock.Unlock()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for role, tex := range b.bound {
		tex.Release()
		delete(b.bound, role)
	}
}
