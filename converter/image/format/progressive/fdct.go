package progressive

import "math"

const blockSize = 64

// block holds 8x8 samples or coefficients.
type block [blockSize]int32

// unzig maps a zig-zag index to its natural index.
var unzig = [blockSize]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// dctBasis[u][x] is C(u)/2 * cos((2x+1)uπ/16).
var dctBasis [8][8]float64

func init() {
	for u := 0; u < 8; u++ {
		c := 0.5
		if u == 0 {
			c = 0.5 / math.Sqrt2
		}
		for x := 0; x < 8; x++ {
			dctBasis[u][x] = c * math.Cos(float64((2*x+1)*u)*math.Pi/16)
		}
	}
}

// quantize transforms the level shifted samples in natural order and
// returns the coefficients divided by q, in zig-zag order.
func quantize(samples *block, q *[blockSize]byte) block {
	var rows, coef [blockSize]float64
	for y := 0; y < 8; y++ {
		for u := 0; u < 8; u++ {
			var sum float64
			for x := 0; x < 8; x++ {
				sum += float64(samples[8*y+x]-128) * dctBasis[u][x]
			}
			rows[8*y+u] = sum
		}
	}
	for v := 0; v < 8; v++ {
		for u := 0; u < 8; u++ {
			var sum float64
			for y := 0; y < 8; y++ {
				sum += rows[8*y+u] * dctBasis[v][y]
			}
			coef[8*v+u] = sum
		}
	}

	var out block
	for zig := 0; zig < blockSize; zig++ {
		out[zig] = int32(math.Round(coef[unzig[zig]] / float64(q[zig])))
	}

	return out
}
