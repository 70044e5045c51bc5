// Package watermark turns a captured frame into the branded, shareable
// artifact. It is pure raster work with no dependency on the render engine:
// identical input produces pixel-identical output.
package watermark

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// bandFraction is the height of the gradient scrim relative to the
	// frame (100px on a 1080p export in the original artwork).
	bandFraction = 0.09

	primaryFontFraction   = 0.020
	secondaryFontFraction = 0.014

	primaryBaselineFraction   = 0.046
	secondaryBaselineFraction = 0.0185
)

type faceKey struct {
	bold bool
	size int
}

// Compositor overlays the branding band and caption lines. Safe for
// concurrent use; parsed fonts are shared and faces cached per size.
type Compositor struct {
	OrgName string
	Credit  string

	primary   *opentype.Font
	secondary *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

func NewCompositor(orgName, credit string) (*Compositor, error) {
	primary, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse primary font")
	}
	secondary, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse secondary font")
	}
	return &Compositor{
		OrgName:   orgName,
		Credit:    credit,
		primary:   primary,
		secondary: secondary,
		faces:     make(map[faceKey]font.Face),
	}, nil
}

// Apply draws src onto a fresh surface of identical dimensions, then the
// gradient scrim over the bottom of the frame and the centered captions with
// a drop shadow. src is never mutated.
func (c *Compositor) Apply(src *image.RGBA) (*image.RGBA, error) {
	if src == nil {
		return nil, errors.Errorf("Nil source frame")
	}
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("Empty source frame %dx%d", w, h)
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)

	c.drawBand(out, w, h)
	if err := c.drawCaptions(out, w, h); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode runs Apply and PNG-encodes the result.
func (c *Compositor) Encode(src *image.RGBA) ([]byte, error) {
	out, err := c.Apply(src)
	if err != nil {
		return nil, err
	}
	return EncodePNG(out)
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrapf(err, "Failed to encode png")
	}
	return buf.Bytes(), nil
}

// drawBand paints the vertical scrim: transparent at the band's top edge,
// 40% black at 40% depth, 80% black at the bottom, linearly in between.
func (c *Compositor) drawBand(img *image.RGBA, w, h int) {
	bandH := int(bandFraction * float64(h))
	if bandH < 1 {
		bandH = 1
	}
	top := h - bandH

	for y := top; y < h; y++ {
		t := float64(y-top) / float64(bandH)
		var alpha float64
		if t < 0.4 {
			alpha = t / 0.4 * 0.4
		} else {
			alpha = 0.4 + (t-0.4)/0.6*0.4
		}
		blendRowBlack(img, y, w, alpha)
	}
}

func blendRowBlack(img *image.RGBA, y, w int, alpha float64) {
	if alpha <= 0 {
		return
	}
	for x := 0; x < w; x++ {
		off := img.PixOffset(x, y)
		sr := float64(img.Pix[off+0]) / 255
		sg := float64(img.Pix[off+1]) / 255
		sb := float64(img.Pix[off+2]) / 255
		sa := float64(img.Pix[off+3]) / 255

		outA := alpha + sa*(1-alpha)
		if outA <= 0 {
			continue
		}
		// Black over source, straight alpha.
		img.Pix[off+0] = round8(sr * sa * (1 - alpha) / outA)
		img.Pix[off+1] = round8(sg * sa * (1 - alpha) / outA)
		img.Pix[off+2] = round8(sb * sa * (1 - alpha) / outA)
		img.Pix[off+3] = round8(outA)
	}
}

func round8(v float64) uint8 {
	v *= 255
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func (c *Compositor) drawCaptions(img *image.RGBA, w, h int) error {
	shadow := color.RGBA{0, 0, 0, 204}

	if c.OrgName != "" {
		face, err := c.face(true, int(primaryFontFraction*float64(w)))
		if err != nil {
			return err
		}
		baseline := h - int(primaryBaselineFraction*float64(h))
		drawCentered(img, face, c.OrgName, w, baseline, color.RGBA{255, 255, 255, 255}, shadow)
	}

	if c.Credit != "" {
		face, err := c.face(false, int(secondaryFontFraction*float64(w)))
		if err != nil {
			return err
		}
		baseline := h - int(secondaryBaselineFraction*float64(h))
		drawCentered(img, face, c.Credit, w, baseline, color.RGBA{0xe2, 0xe8, 0xf0, 255}, shadow)
	}
	return nil
}

func (c *Compositor) face(bold bool, size int) (font.Face, error) {
	if size < 6 {
		size = 6
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := faceKey{bold: bold, size: size}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}

	fnt := c.secondary
	if bold {
		fnt = c.primary
	}
	f, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create %dpx face", size)
	}
	c.faces[key] = f
	return f, nil
}

func drawCentered(img *image.RGBA, face font.Face, text string, w, baseline int, fg, shadow color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Face: face,
	}
	width := d.MeasureString(text)
	x := (fixed.I(w) - width) / 2

	// Drop shadow first, one pixel down-right.
	d.Src = image.NewUniform(shadow)
	d.Dot = fixed.Point26_6{X: x + fixed.I(1), Y: fixed.I(baseline + 1)}
	d.DrawString(text)

	d.Src = image.NewUniform(fg)
	d.Dot = fixed.Point26_6{X: x, Y: fixed.I(baseline)}
	d.DrawString(text)
}
