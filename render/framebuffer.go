package render

import (
	"image"
	"math"
)

// Framebuffer is a CPU render target: straight-alpha RGBA8 color plus a
// float32 depth plane. The background clears to fully transparent black so
// composited artifacts keep a clean silhouette.
type Framebuffer struct {
	Width      int
	Height     int
	PixelRatio float32

	Pix   []uint8
	depth []float32
}

func NewFramebuffer(width, height int) *Framebuffer {
	fb := &Framebuffer{PixelRatio: 1}
	fb.Resize(width, height)
	return fb
}

func (fb *Framebuffer) Resize(width, height int) {
	fb.Width = width
	fb.Height = height
	fb.Pix = make([]uint8, width*height*4)
	fb.depth = make([]float32, width*height)
	fb.Clear()
}

func (fb *Framebuffer) Clear() {
	for i := range fb.Pix {
		fb.Pix[i] = 0
	}
	inf := float32(math.Inf(1))
	for i := range fb.depth {
		fb.depth[i] = inf
	}
}

// Image returns a defensive copy of the color plane. The framebuffer may be
// cleared or resized right after a capture; the returned image must not alias
// it.
func (fb *Framebuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	copy(img.Pix, fb.Pix)
	return img
}

func (fb *Framebuffer) depthAt(x, y int) float32 {
	return fb.depth[y*fb.Width+x]
}

func (fb *Framebuffer) setDepth(x, y int, z float32) {
	fb.depth[y*fb.Width+x] = z
}

// blendPixel writes straight-alpha src over the stored color.
func (fb *Framebuffer) blendPixel(x, y int, r, g, b, a float32) {
	off := (y*fb.Width + x) * 4
	if a >= 1 {
		fb.Pix[off+0] = clamp8(r)
		fb.Pix[off+1] = clamp8(g)
		fb.Pix[off+2] = clamp8(b)
		fb.Pix[off+3] = 255
		return
	}

	dr := float32(fb.Pix[off+0]) / 255
	dg := float32(fb.Pix[off+1]) / 255
	db := float32(fb.Pix[off+2]) / 255
	da := float32(fb.Pix[off+3]) / 255

	outA := a + da*(1-a)
	if outA <= 0 {
		fb.Pix[off+0] = 0
		fb.Pix[off+1] = 0
		fb.Pix[off+2] = 0
		fb.Pix[off+3] = 0
		return
	}
	fb.Pix[off+0] = clamp8((r*a + dr*da*(1-a)) / outA)
	fb.Pix[off+1] = clamp8((g*a + dg*da*(1-a)) / outA)
	fb.Pix[off+2] = clamp8((b*a + db*da*(1-a)) / outA)
	fb.Pix[off+3] = clamp8(outA)
}

func clamp8(v float32) uint8 {
	v *= 255
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
