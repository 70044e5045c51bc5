package scene

import (
	"image"
	"image/draw"
)

type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClampToEdge
)

type Filter int

const (
	FilterNearest Filter = iota
	FilterBilinear
	// FilterTrilinear blends between the two nearest mip levels.
	FilterTrilinear
)

// Texture is a CPU-side RGBA texture with an optional mip chain.
//
// FlipY stays false for livery art: row 0 of the source bitmap must map to the
// mesh's baked UV origin. An implicit vertical flip here silently misaligns
// every hand-painted livery against the mesh.
type Texture struct {
	Name   string
	Width  int
	Height int

	FlipY     bool
	WrapS     WrapMode
	WrapT     WrapMode
	MinFilter Filter
	MagFilter Filter

	// levels[0] is the full resolution image, RGBA8 row-major.
	levels []mipLevel

	released     bool
	releaseCalls int
}

type mipLevel struct {
	w, h int
	pix  []uint8
}

// NewTexture copies img into a standalone level-0 texture. The caller keeps
// ownership of img.
func NewTexture(name string, img image.Image) *Texture {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	return &Texture{
		Name:   name,
		Width:  b.Dx(),
		Height: b.Dy(),
		WrapS:  WrapRepeat,
		WrapT:  WrapRepeat,
		levels: []mipLevel{{w: b.Dx(), h: b.Dy(), pix: rgba.Pix}},
	}
}

func (t *Texture) LevelCount() int { return len(t.levels) }

// Level returns the pixel data of a mip level, clamped to the chain length.
func (t *Texture) Level(i int) (pix []uint8, w, h int) {
	if i < 0 {
		i = 0
	}
	if i >= len(t.levels) {
		i = len(t.levels) - 1
	}
	l := &t.levels[i]
	return l.pix, l.w, l.h
}

// BuildMipmaps extends the chain down to 1x1 with a 2x2 box filter.
func (t *Texture) BuildMipmaps() {
	t.levels = t.levels[:1]
	for {
		prev := &t.levels[len(t.levels)-1]
		if prev.w <= 1 && prev.h <= 1 {
			return
		}
		w := prev.w / 2
		if w < 1 {
			w = 1
		}
		h := prev.h / 2
		if h < 1 {
			h = 1
		}
		next := mipLevel{w: w, h: h, pix: make([]uint8, w*h*4)}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var sum [4]uint32
				count := uint32(0)
				for dy := 0; dy < 2; dy++ {
					for dx := 0; dx < 2; dx++ {
						sx := x*2 + dx
						sy := y*2 + dy
						if sx >= prev.w {
							sx = prev.w - 1
						}
						if sy >= prev.h {
							sy = prev.h - 1
						}
						off := (sy*prev.w + sx) * 4
						for c := 0; c < 4; c++ {
							sum[c] += uint32(prev.pix[off+c])
						}
						count++
					}
				}
				off := (y*w + x) * 4
				for c := 0; c < 4; c++ {
					next.pix[off+c] = uint8(sum[c] / count)
				}
			}
		}
		t.levels = append(t.levels, next)
	}
}

// Release frees the pixel data. The binder guarantees exactly one call per
// replaced binding; ReleaseCalls exists so that guarantee stays checkable.
func (t *Texture) Release() {
	t.releaseCalls++
	t.released = true
	t.levels = nil
}

func (t *Texture) Released() bool    { return t.released }
func (t *Texture) ReleaseCalls() int { return t.releaseCalls }
