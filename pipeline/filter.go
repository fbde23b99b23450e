package pipeline

import (
	"fmt"

	"github.com/btune-go/btune/format"
)

// applyFilter runs one forward filter over src into dst. Both slices have
// equal length. lane is the element width the filter operates on (the
// filter meta byte when set, the context typesize otherwise).
func applyFilter(filter format.Filter, src, dst []byte, lane int) error {
	if lane < 1 {
		lane = 1
	}
	switch filter {
	case format.FilterShuffle:
		shuffleBytes(src, dst, lane)
	case format.FilterBitShuffle:
		shuffleBits(src, dst, lane)
	case format.FilterByteDelta:
		byteDelta(src, dst, lane)
	default:
		return fmt.Errorf("pipeline: unknown filter %d", filter)
	}

	return nil
}

// undoFilter reverses one filter over src into dst.
func undoFilter(filter format.Filter, src, dst []byte, lane int) error {
	if lane < 1 {
		lane = 1
	}
	switch filter {
	case format.FilterShuffle:
		unshuffleBytes(src, dst, lane)
	case format.FilterBitShuffle:
		unshuffleBits(src, dst, lane)
	case format.FilterByteDelta:
		byteUndelta(src, dst, lane)
	default:
		return fmt.Errorf("pipeline: unknown filter %d", filter)
	}

	return nil
}

// filterable reports whether a lane transpose of the given width applies
// to a buffer of this length. Tails that do not fill a whole element are
// passed through untouched by the callers.
func filterable(n, lane int) bool {
	return lane > 1 && n >= 2*lane
}

// shuffleBytes transposes src from element-major to lane-major order:
// byte j of element i lands at position j*nel+i.
func shuffleBytes(src, dst []byte, lane int) {
	if !filterable(len(src), lane) {
		copy(dst, src)
		return
	}
	nel := len(src) / lane
	tail := nel * lane
	for i := 0; i < nel; i++ {
		for j := 0; j < lane; j++ {
			dst[j*nel+i] = src[i*lane+j]
		}
	}
	copy(dst[tail:], src[tail:])
}

func unshuffleBytes(src, dst []byte, lane int) {
	if !filterable(len(src), lane) {
		copy(dst, src)
		return
	}
	nel := len(src) / lane
	tail := nel * lane
	for i := 0; i < nel; i++ {
		for j := 0; j < lane; j++ {
			dst[i*lane+j] = src[j*nel+i]
		}
	}
	copy(dst[tail:], src[tail:])
}

// shuffleBits transposes at bit granularity: bit b of element i lands at
// bit position b*nel+i of the output stream. Only whole groups of 8
// elements are transposed; the remainder is copied through.
func shuffleBits(src, dst []byte, lane int) {
	nbits := lane * 8
	nel := len(src) / lane
	nel -= nel % 8
	if lane < 1 || nel < 16 {
		copy(dst, src)
		return
	}
	body := nel * lane
	for i := range dst[:body] {
		dst[i] = 0
	}
	for i := 0; i < nel; i++ {
		for b := 0; b < nbits; b++ {
			bit := (src[i*lane+b/8] >> (b % 8)) & 1
			pos := b*nel + i
			dst[pos/8] |= bit << (pos % 8)
		}
	}
	copy(dst[body:], src[body:])
}

func unshuffleBits(src, dst []byte, lane int) {
	nbits := lane * 8
	nel := len(src) / lane
	nel -= nel % 8
	if lane < 1 || nel < 16 {
		copy(dst, src)
		return
	}
	body := nel * lane
	for i := range dst[:body] {
		dst[i] = 0
	}
	for i := 0; i < nel; i++ {
		for b := 0; b < nbits; b++ {
			pos := b*nel + i
			bit := (src[pos/8] >> (pos % 8)) & 1
			dst[i*lane+b/8] |= bit << (b % 8)
		}
	}
	copy(dst[body:], src[body:])
}

// byteDelta subtracts the previous byte within each lane-sized stream.
// It expects lane-major input, i.e. a shuffle in the preceding slot.
func byteDelta(src, dst []byte, lane int) {
	if !filterable(len(src), lane) {
		lane = 1
	}
	streamLen := len(src) / lane
	for j := 0; j < lane; j++ {
		off := j * streamLen
		prev := byte(0)
		for i := 0; i < streamLen; i++ {
			cur := src[off+i]
			dst[off+i] = cur - prev
			prev = cur
		}
	}
	copy(dst[lane*streamLen:], src[lane*streamLen:])
}

func byteUndelta(src, dst []byte, lane int) {
	if !filterable(len(src), lane) {
		lane = 1
	}
	streamLen := len(src) / lane
	for j := 0; j < lane; j++ {
		off := j * streamLen
		prev := byte(0)
		for i := 0; i < streamLen; i++ {
			prev += src[off+i]
			dst[off+i] = prev
		}
	}
	copy(dst[lane*streamLen:], src[lane*streamLen:])
}
