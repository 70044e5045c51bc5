package scene

type ColorFloat [4]float32

func NewColorFloatA(c []float32) ColorFloat {
	return ColorFloat{c[0], c[1], c[2], c[3]}
}

func NewColorFloat(c []float32) ColorFloat {
	return ColorFloat{c[0], c[1], c[2], 1.0}
}

func White() ColorFloat {
	return ColorFloat{1, 1, 1, 1}
}
