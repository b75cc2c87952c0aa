// Package progressive writes progressive JPEG with 4:2:0 chroma subsampling.
//
// The scans use spectral selection only: an interleaved DC scan followed by
// AC bands per component. With OptimizeCoding set, every scan carries
// Huffman tables built from its own symbol counts, and runs of blocks whose
// band is empty share one end-of-band code. Without it the example tables of
// section K.3 are used and every empty band is coded on its own.
package progressive

import (
	"bufio"
	"errors"
	"image"
	"image/color"
	"io"
	"math/bits"
)

const (
	sof2Marker = 0xc2
	dhtMarker  = 0xc4
	dqtMarker  = 0xdb
	sosMarker  = 0xda
)

// DefaultQuality is used when no Options are given.
const DefaultQuality = 75

// maxEOBRun is the longest run of empty bands one code can describe.
const maxEOBRun = 0x7fff

// Options are the encoding parameters. Quality ranges from 1 to 100
// inclusive, higher is better.
type Options struct {
	Quality        int
	OptimizeCoding bool
}

// unscaledQuant are the quantization tables of section K.1 in zig-zag order.
var unscaledQuant = [2][blockSize]byte{
	// Luminance.
	{
		16, 11, 12, 14, 12, 10, 16, 14,
		13, 14, 18, 17, 16, 19, 24, 40,
		26, 24, 22, 22, 24, 49, 35, 37,
		29, 40, 58, 51, 61, 60, 57, 51,
		56, 55, 64, 72, 92, 78, 64, 68,
		87, 69, 55, 56, 80, 109, 81, 87,
		95, 98, 103, 104, 103, 62, 77, 113,
		121, 112, 100, 120, 92, 101, 103, 99,
	},
	// Chrominance.
	{
		17, 18, 18, 24, 21, 24, 47, 26,
		26, 47, 99, 66, 56, 66, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
	},
}

var fixedLUT [2]huffmanLUT

func init() {
	for i, s := range fixedSpec {
		fixedLUT[i].init(s)
	}
}

// scan is one entry of the scan script. comp is -1 for the interleaved DC
// scan.
type scan struct {
	comp   int
	ss, se int
}

var scanScript = []scan{
	{comp: -1, ss: 0, se: 0},
	{comp: 0, ss: 1, se: 5},
	{comp: 1, ss: 1, se: 63},
	{comp: 2, ss: 1, se: 63},
	{comp: 0, ss: 6, se: 63},
}

type component struct {
	id    byte
	h, v  int
	quant int
	table int
	// bw and bh count blocks padded to whole MCUs. cols and rows count the
	// blocks that cover the component's own samples.
	bw, bh     int
	cols, rows int
	// blocks are quantized coefficients in zig-zag order.
	blocks []block
}

// table is a Huffman table with its DHT class and slot.
type table struct {
	class, id byte
	spec      huffmanSpec
}

// writer is a buffered writer.
type writer interface {
	Flush() error
	io.Writer
	io.ByteWriter
}

type encoder struct {
	// w is the writer to write to. After the first error all writes are
	// no-ops.
	w   writer
	err error
	buf [16]byte
	// bits and nBits are accumulated bits not yet written to w.
	bits, nBits uint32

	quant    [2][blockSize]byte
	optimize bool

	mcuW, mcuH int
	comp       [3]component
}

// Encode writes m to w as a progressive JPEG. Default parameters are used if
// o is nil.
func Encode(w io.Writer, m image.Image, o *Options) error {
	b := m.Bounds()
	if b.Empty() {
		return errors.New("progressive: empty image")
	}
	if b.Dx() >= 1<<16 || b.Dy() >= 1<<16 {
		return errors.New("progressive: image is too large to encode")
	}

	e := &encoder{}
	if ww, ok := w.(writer); ok {
		e.w = ww
	} else {
		e.w = bufio.NewWriter(w)
	}

	quality := DefaultQuality
	if o != nil {
		quality = min(max(o.Quality, 1), 100)
		e.optimize = o.OptimizeCoding
	}
	e.setQuality(quality)
	e.transform(m)

	e.write([]byte{0xff, 0xd8})
	e.writeDQT()
	e.writeSOF(b.Size())
	if !e.optimize {
		e.writeDHT(table{0, 0, fixedSpec[0]}, table{1, 0, fixedSpec[1]})
	}
	for _, s := range scanScript {
		e.writeScan(s)
	}
	e.write([]byte{0xff, 0xd9})
	e.flush()

	return e.err
}

func (e *encoder) setQuality(quality int) {
	var scale int
	if quality < 50 {
		scale = 5000 / quality
	} else {
		scale = 200 - quality*2
	}
	for i := range e.quant {
		for j := range e.quant[i] {
			x := (int(unscaledQuant[i][j])*scale + 50) / 100
			e.quant[i][j] = uint8(min(max(x, 1), 255))
		}
	}
}

// transform converts m to YCbCr, subsamples the chroma and stores the
// quantized coefficients of every block. Edge blocks repeat the last row and
// column.
func (e *encoder) transform(m image.Image) {
	w, h := m.Bounds().Dx(), m.Bounds().Dy()
	e.mcuW, e.mcuH = (w+15)/16, (h+15)/16

	chromaTable := 1
	if !e.optimize {
		chromaTable = 0
	}
	e.comp[0] = component{id: 1, h: 2, v: 2, quant: 0, table: 0,
		bw: 2 * e.mcuW, bh: 2 * e.mcuH, cols: (w + 7) / 8, rows: (h + 7) / 8}
	for i := 1; i < 3; i++ {
		e.comp[i] = component{id: byte(i + 1), h: 1, v: 1, quant: 1, table: chromaTable,
			bw: e.mcuW, bh: e.mcuH, cols: e.mcuW, rows: e.mcuH}
	}

	planes := toYCbCr(m)

	var s block
	for i := range e.comp {
		c := &e.comp[i]
		p := planes[i]
		c.blocks = make([]block, c.bw*c.bh)
		for by := 0; by < c.bh; by++ {
			for bx := 0; bx < c.bw; bx++ {
				for j := 0; j < 8; j++ {
					for k := 0; k < 8; k++ {
						x, y := bx*8+k, by*8+j
						if i == 0 {
							s[8*j+k] = int32(p[min(y, h-1)*w+min(x, w-1)])
							continue
						}
						x0, x1 := min(2*x, w-1), min(2*x+1, w-1)
						y0, y1 := min(2*y, h-1), min(2*y+1, h-1)
						sum := int32(p[y0*w+x0]) + int32(p[y0*w+x1]) + int32(p[y1*w+x0]) + int32(p[y1*w+x1])
						s[8*j+k] = (sum + 2) >> 2
					}
				}
				c.blocks[by*c.bw+bx] = quantize(&s, &e.quant[c.quant])
			}
		}
	}
}

// toYCbCr returns the full resolution Y, Cb and Cr planes of m. Translucent
// pixels are composed onto black.
func toYCbCr(m image.Image) [3][]uint8 {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	var planes [3][]uint8
	for i := range planes {
		planes[i] = make([]uint8, w*h)
	}

	nrgba, _ := m.(*image.NRGBA)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, bl uint8
			if nrgba != nil {
				p := nrgba.Pix[nrgba.PixOffset(b.Min.X+x, b.Min.Y+y):]
				a := uint32(p[3])
				r = uint8(uint32(p[0]) * a / 0xff)
				g = uint8(uint32(p[1]) * a / 0xff)
				bl = uint8(uint32(p[2]) * a / 0xff)
			} else {
				rr, gg, bb, _ := m.At(b.Min.X+x, b.Min.Y+y).RGBA()
				r, g, bl = uint8(rr>>8), uint8(gg>>8), uint8(bb>>8)
			}
			i := y*w + x
			planes[0][i], planes[1][i], planes[2][i] = color.RGBToYCbCr(r, g, bl)
		}
	}

	return planes
}

func (e *encoder) writeScan(s scan) {
	comps := []int{s.comp}
	if s.comp < 0 {
		comps = []int{0, 1, 2}
	}
	class := byte(1)
	if s.ss == 0 {
		class = 0
	}

	var coders [2]*coder
	if e.optimize {
		var freq [2][256]int
		for t := range coders {
			coders[t] = &coder{e: e, freq: &freq[t], maxRun: maxEOBRun}
		}
		e.runScan(s, coders)

		var tables []table
		for t := range coders {
			coders[t] = nil
			if !e.uses(comps, t) {
				continue
			}
			spec := optimalSpec(&freq[t])
			tables = append(tables, table{class, byte(t), spec})
			coders[t] = &coder{e: e, lut: new(huffmanLUT), maxRun: maxEOBRun}
			coders[t].lut.init(spec)
		}
		e.writeDHT(tables...)
	} else {
		fixed := &coder{e: e, lut: &fixedLUT[class], maxRun: 1}
		coders = [2]*coder{fixed, fixed}
	}

	e.writeSOS(s, comps)
	e.runScan(s, coders)
	e.pad()
}

func (e *encoder) uses(comps []int, t int) bool {
	for _, i := range comps {
		if e.comp[i].table == t {
			return true
		}
	}
	return false
}

func (e *encoder) runScan(s scan, coders [2]*coder) {
	if s.comp < 0 {
		e.dcScan(coders)
		return
	}
	c := &e.comp[s.comp]
	e.acScan(c, s.ss, s.se, coders[c.table])
}

// dcScan codes DC differences one MCU at a time.
func (e *encoder) dcScan(coders [2]*coder) {
	var pred [3]int32
	for my := 0; my < e.mcuH; my++ {
		for mx := 0; mx < e.mcuW; mx++ {
			for i := range e.comp {
				c := &e.comp[i]
				for j := 0; j < c.h*c.v; j++ {
					bx, by := c.h*mx+j%c.h, c.v*my+j/c.h
					dc := c.blocks[by*c.bw+bx][0]
					coders[c.table].value(0, dc-pred[i])
					pred[i] = dc
				}
			}
		}
	}
}

// acScan codes the band [ss, se] of one component, left to right and top to
// bottom.
func (e *encoder) acScan(c *component, ss, se int, cd *coder) {
	for by := 0; by < c.rows; by++ {
		for bx := 0; bx < c.cols; bx++ {
			b := &c.blocks[by*c.bw+bx]
			run := int32(0)
			for zig := ss; zig <= se; zig++ {
				if b[zig] == 0 {
					run++
					continue
				}
				cd.flushEOB()
				for run > 15 {
					cd.huff(0xf0)
					run -= 16
				}
				cd.value(run, b[zig])
				run = 0
			}
			if run > 0 {
				cd.eobRun++
				if cd.eobRun == cd.maxRun {
					cd.flushEOB()
				}
			}
		}
	}
	cd.flushEOB()
}

// coder either counts symbols into freq or writes them with lut.
type coder struct {
	e      *encoder
	lut    *huffmanLUT
	freq   *[256]int
	maxRun int
	eobRun int
}

func (c *coder) huff(sym uint8) {
	if c.freq != nil {
		c.freq[sym]++
		return
	}
	x := c.lut[sym]
	c.e.emit(x&(1<<24-1), x>>24)
}

func (c *coder) emit(bits, nBits uint32) {
	if c.freq == nil && nBits > 0 {
		c.e.emit(bits, nBits)
	}
}

// value codes run<<4|size followed by the size low bits of v.
func (c *coder) value(run, v int32) {
	a, b := v, v
	if a < 0 {
		a, b = -v, v-1
	}
	n := uint32(bits.Len32(uint32(a)))
	c.huff(uint8(run<<4) | uint8(n))
	c.emit(uint32(b)&(1<<n-1), n)
}

func (c *coder) flushEOB() {
	if c.eobRun == 0 {
		return
	}
	n := uint32(bits.Len32(uint32(c.eobRun))) - 1
	c.huff(uint8(n << 4))
	c.emit(uint32(c.eobRun)&(1<<n-1), n)
	c.eobRun = 0
}

func (e *encoder) flush() {
	if e.err != nil {
		return
	}
	e.err = e.w.Flush()
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

// emit emits the least significant nBits bits of bits to the bit-stream.
// The precondition is bits < 1<<nBits && nBits <= 16.
func (e *encoder) emit(bits, nBits uint32) {
	nBits += e.nBits
	bits <<= 32 - nBits
	bits |= e.bits
	for nBits >= 8 {
		b := uint8(bits >> 24)
		e.writeByte(b)
		if b == 0xff {
			e.writeByte(0x00)
		}
		bits <<= 8
		nBits -= 8
	}
	e.bits, e.nBits = bits, nBits
}

// pad fills the last byte of a scan with 1 bits.
func (e *encoder) pad() {
	if e.nBits > 0 {
		n := 8 - e.nBits
		e.emit(1<<n-1, n)
	}
	e.bits, e.nBits = 0, 0
}

func (e *encoder) writeMarkerHeader(marker uint8, markerlen int) {
	e.buf[0] = 0xff
	e.buf[1] = marker
	e.buf[2] = uint8(markerlen >> 8)
	e.buf[3] = uint8(markerlen & 0xff)
	e.write(e.buf[:4])
}

func (e *encoder) writeDQT() {
	const markerlen = 2 + 2*(1+blockSize)
	e.writeMarkerHeader(dqtMarker, markerlen)
	for i := range e.quant {
		e.writeByte(uint8(i))
		e.write(e.quant[i][:])
	}
}

func (e *encoder) writeSOF(size image.Point) {
	e.writeMarkerHeader(sof2Marker, 8+3*len(e.comp))
	e.buf[0] = 8
	e.buf[1] = uint8(size.Y >> 8)
	e.buf[2] = uint8(size.Y & 0xff)
	e.buf[3] = uint8(size.X >> 8)
	e.buf[4] = uint8(size.X & 0xff)
	e.buf[5] = uint8(len(e.comp))
	e.write(e.buf[:6])
	for _, c := range e.comp {
		e.write([]byte{c.id, byte(c.h<<4 | c.v), byte(c.quant)})
	}
}

func (e *encoder) writeDHT(tables ...table) {
	markerlen := 2
	for _, t := range tables {
		markerlen += 1 + 16 + len(t.spec.value)
	}
	e.writeMarkerHeader(dhtMarker, markerlen)
	for _, t := range tables {
		e.writeByte(t.class<<4 | t.id)
		e.write(t.spec.count[:])
		e.write(t.spec.value)
	}
}

// writeSOS writes the scan header. Successive approximation is not used, so
// Ah and Al are always zero.
func (e *encoder) writeSOS(s scan, comps []int) {
	e.writeMarkerHeader(sosMarker, 6+2*len(comps))
	e.writeByte(byte(len(comps)))
	for _, i := range comps {
		c := &e.comp[i]
		e.writeByte(c.id)
		if s.ss == 0 {
			e.writeByte(byte(c.table) << 4)
		} else {
			e.writeByte(byte(c.table))
		}
	}
	e.write([]byte{byte(s.ss), byte(s.se), 0})
}
