package render

import (
	"math"

	"github.com/trijayaagung/armada-studio/scene"
)

// sampleTexture reads a texel with the texture's configured wrap and filter
// modes. lod selects the mip level for minification; magnification always
// uses the texture's MagFilter at level 0.
func sampleTexture(t *scene.Texture, u, v float32, lod float32) (r, g, b, a float32) {
	if t == nil || t.LevelCount() == 0 {
		return 1, 1, 1, 1
	}

	if t.FlipY {
		v = 1 - v
	}

	if lod <= 0 {
		if t.MagFilter == scene.FilterNearest {
			return sampleNearest(t, 0, u, v)
		}
		return sampleBilinear(t, 0, u, v)
	}

	switch t.MinFilter {
	case scene.FilterNearest:
		return sampleNearest(t, int(lod+0.5), u, v)
	case scene.FilterBilinear:
		return sampleBilinear(t, int(lod+0.5), u, v)
	default: // trilinear
		lo := int(lod)
		hi := lo + 1
		frac := lod - float32(lo)
		r0, g0, b0, a0 := sampleBilinear(t, lo, u, v)
		if frac <= 0 || lo >= t.LevelCount()-1 {
			return r0, g0, b0, a0
		}
		r1, g1, b1, a1 := sampleBilinear(t, hi, u, v)
		return mix(r0, r1, frac), mix(g0, g1, frac), mix(b0, b1, frac), mix(a0, a1, frac)
	}
}

func mix(a, b, t float32) float32 {
	return a + (b-a)*t
}

func wrapCoord(v float32, mode scene.WrapMode) float32 {
	switch mode {
	case scene.WrapClampToEdge:
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	default: // repeat
		v -= float32(math.Floor(float64(v)))
		return v
	}
}

func wrapTexel(i, n int, mode scene.WrapMode) int {
	if n <= 0 {
		return 0
	}
	switch mode {
	case scene.WrapClampToEdge:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	default:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
}

func sampleNearest(t *scene.Texture, level int, u, v float32) (r, g, b, a float32) {
	pix, w, h := t.Level(level)
	u = wrapCoord(u, t.WrapS)
	v = wrapCoord(v, t.WrapT)
	x := wrapTexel(int(u*float32(w)), w, t.WrapS)
	y := wrapTexel(int(v*float32(h)), h, t.WrapT)
	off := (y*w + x) * 4
	return float32(pix[off]) / 255, float32(pix[off+1]) / 255,
		float32(pix[off+2]) / 255, float32(pix[off+3]) / 255
}

func sampleBilinear(t *scene.Texture, level int, u, v float32) (r, g, b, a float32) {
	pix, w, h := t.Level(level)

	u = wrapCoord(u, t.WrapS)
	v = wrapCoord(v, t.WrapT)

	fx := u*float32(w) - 0.5
	fy := v*float32(h) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	var acc [4]float32
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			x := wrapTexel(x0+i, w, t.WrapS)
			y := wrapTexel(y0+j, h, t.WrapT)
			wgt := (1 - tx + float32(i)*(2*tx-1)) * (1 - ty + float32(j)*(2*ty-1))
			off := (y*w + x) * 4
			for c := 0; c < 4; c++ {
				acc[c] += wgt * float32(pix[off+c])
			}
		}
	}
	return acc[0] / 255, acc[1] / 255, acc[2] / 255, acc[3] / 255
}
