package progressive

import "math"

// huffmanSpec is a Huffman table as it is stored in a DHT segment.
type huffmanSpec struct {
	// count[i] is the number of codes of length i+1 bits.
	count [16]byte
	// value lists the symbols in order of increasing code length.
	value []byte
}

// fixedSpec holds the luminance tables of section K.3. Fixed coding uses
// them for every component.
var fixedSpec = [2]huffmanSpec{
	// DC.
	{
		[16]byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0},
		[]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	},
	// AC.
	{
		[16]byte{0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 125},
		[]byte{
			0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12,
			0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
			0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xa1, 0x08,
			0x23, 0x42, 0xb1, 0xc1, 0x15, 0x52, 0xd1, 0xf0,
			0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0a, 0x16,
			0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28,
			0x29, 0x2a, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39,
			0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
			0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59,
			0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
			0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79,
			0x7a, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
			0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98,
			0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
			0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6,
			0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3, 0xc4, 0xc5,
			0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4,
			0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xe1, 0xe2,
			0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea,
			0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
			0xf9, 0xfa,
		},
	},
}

// huffmanLUT maps a symbol to its code in the low 24 bits and the code
// length in the high 8 bits.
type huffmanLUT [256]uint32

func (h *huffmanLUT) init(s huffmanSpec) {
	code, k := uint32(0), 0
	for i := 0; i < len(s.count); i++ {
		nBits := uint32(i+1) << 24
		for j := uint8(0); j < s.count[i]; j++ {
			h[s.value[k]] = nBits | code
			code++
			k++
		}
		code <<= 1
	}
}

// maxCodeLength is the longest code a DHT segment can describe.
const maxCodeLength = 16

// optimalSpec builds a Huffman table for the symbol frequencies in freq
// following section K.2. Codes are limited to 16 bits and no code consists
// of only 1 bits. Symbols with a zero frequency get no code.
func optimalSpec(freq *[256]int) huffmanSpec {
	const reserved = 256

	var f [257]int
	copy(f[:], freq[:])
	f[reserved] = 1

	empty := true
	for _, n := range freq {
		if n > 0 {
			empty = false
			break
		}
	}
	if empty {
		f[0] = 1
	}

	var codeSize [257]int
	var others [257]int
	for i := range others {
		others[i] = -1
	}

	for {
		// The two least frequent trees. Ties go to the larger symbol.
		c1, c2 := -1, -1
		v := math.MaxInt
		for i, n := range f {
			if n > 0 && n <= v {
				v, c1 = n, i
			}
		}
		v = math.MaxInt
		for i, n := range f {
			if n > 0 && n <= v && i != c1 {
				v, c2 = n, i
			}
		}
		if c2 < 0 {
			break
		}

		f[c1] += f[c2]
		f[c2] = 0

		codeSize[c1]++
		for others[c1] >= 0 {
			c1 = others[c1]
			codeSize[c1]++
		}
		others[c1] = c2

		codeSize[c2]++
		for others[c2] >= 0 {
			c2 = others[c2]
			codeSize[c2]++
		}
	}

	var bits [len(codeSize) + 1]int
	for _, s := range codeSize {
		if s > 0 {
			bits[s]++
		}
	}

	// Move pairs of over-long codes up the tree until every code fits.
	for i := len(bits) - 1; i > maxCodeLength; i-- {
		for bits[i] > 0 {
			j := i - 2
			for bits[j] == 0 {
				j--
			}
			bits[i] -= 2
			bits[i-1]++
			bits[j+1] += 2
			bits[j]--
		}
	}

	// The reserved symbol holds one of the longest codes.
	i := maxCodeLength
	for bits[i] == 0 {
		i--
	}
	bits[i]--

	var spec huffmanSpec
	for l := 1; l <= maxCodeLength; l++ {
		spec.count[l-1] = byte(bits[l])
	}
	for l := 1; l < len(codeSize); l++ {
		for sym := 0; sym < reserved; sym++ {
			if codeSize[sym] == l {
				spec.value = append(spec.value, byte(sym))
			}
		}
	}

	return spec
}
