// Package entropy implements a fast, lossy estimator of LZ-compressed size.
//
// The estimator runs the matching half of an LZ77 compressor over the input
// and counts what the token stream would cost, without producing any
// compressed bytes. The tuner uses the resulting ratio both as a model
// feature and as a cheap detector of special chunks.
package entropy

import "encoding/binary"

const (
	maxCopy        = 32
	maxDistance    = 8191
	maxFarDistance = 65535 + maxDistance - 1

	// hashLog sets the hash table size (1 << hashLog entries). Larger
	// tables find farther matches at the cost of cache pressure; inputs
	// are truncated to the table size so the scan stays O(window).
	hashLog = 14
	hashLen = 1 << hashLog
)

// DefaultMinLen and DefaultIPShift are the scan parameters the feature
// extractor uses. (4,4), (3,4) and (4,3) also give usable estimates.
const (
	DefaultMinLen  = 3
	DefaultIPShift = 3
)

func hash(seq uint32) uint32 {
	return (seq * 2654435761) >> (32 - hashLog)
}

// matchEnd extends a match starting at ip against ref and returns the first
// position past the match. A zero-biased distance means a run of the byte
// just before ip; runs compare 8 bytes per step against a broadcast value.
func matchEnd(src []byte, ip, bound, ref int, run bool) int {
	if run {
		x := src[ip-1]
		var value [8]byte
		for i := range value {
			value[i] = x
		}
		word := binary.LittleEndian.Uint64(value[:])
		for ip < bound-8 {
			if binary.LittleEndian.Uint64(src[ref:]) != word {
				for ref < len(src) && src[ref] == x {
					ref++
					ip++
				}

				return ip
			}
			ip += 8
			ref += 8
		}
		for ip < bound && src[ref] == x {
			ref++
			ip++
		}

		return ip
	}

	for ip < bound-8 {
		if binary.LittleEndian.Uint64(src[ref:]) != binary.LittleEndian.Uint64(src[ip:]) {
			for src[ref] == src[ip] {
				ref++
				ip++
			}

			return ip
		}
		ip += 8
		ref += 8
	}
	for ip < bound && src[ref] == src[ip] {
		ref++
		ip++
	}

	return ip
}

// Cratio estimates the compression ratio of src with a single LZ-style
// scan. minlen is the shortest run/match worth a token; ipshift backs the
// scan pointer off the end of each match before costing it. The estimate
// is deterministic and never reads more than the hash window (16 KiB).
//
// Returns 0 when src is too short to scan.
func Cratio(src []byte, minlen, ipshift int) float64 {
	limit := len(src)
	if limit > hashLen {
		limit = hashLen
	}
	ipBound := limit - 1
	ipLimit := limit - 12
	if ipLimit <= 0 {
		return 0
	}

	var htab [hashLen]uint32

	ip := 0
	oc := 0

	// Starts as a literal copy.
	copyCount := 4
	oc += 5

	for ip < ipLimit {
		anchor := ip

		seq := binary.LittleEndian.Uint32(src[ip:])
		hval := hash(seq)
		ref := int(htab[hval])
		distance := anchor - ref
		htab[hval] = uint32(anchor)

		emitLiteral := func() {
			oc++
			anchor++
			ip = anchor
			copyCount++
			if copyCount == maxCopy {
				copyCount = 0
				oc++
			}
		}

		if distance == 0 || distance >= maxFarDistance {
			emitLiteral()
			continue
		}

		// A match must agree on its first 4 bytes.
		if binary.LittleEndian.Uint32(src[ref:]) != seq {
			emitLiteral()
			continue
		}
		ref += 4
		ip = anchor + 4

		// Distance is biased; zero now means a run.
		distance--
		ip = matchEnd(src, ip, ipBound, ref, distance == 0)

		ip -= ipshift
		matchLen := ip - anchor
		if matchLen < minlen {
			emitLiteral()
			continue
		}

		// An open literal group already paid its header byte.
		if copyCount == 0 {
			oc--
		}
		copyCount = 0

		// Cost of the match token: 2 header bytes near, 4 far, plus
		// length extension bytes past 7.
		if matchLen >= 7 {
			oc += (matchLen-7)/255 + 1
		}
		if distance < maxDistance {
			oc += 2
		} else {
			oc += 4
		}

		// Update the hash at the match boundary and assume a literal.
		seq = binary.LittleEndian.Uint32(src[ip:])
		htab[hash(seq)] = uint32(ip)
		ip += 2
		oc++
	}

	return float64(ip) / float64(oc)
}

// EstimateSize returns the estimated compressed size of src, clamped to
// the input length.
func EstimateSize(src []byte) int {
	cratio := Cratio(src, DefaultMinLen, DefaultIPShift)
	if cratio <= 0 {
		return len(src)
	}
	cbytes := int(float64(len(src)) / cratio)
	if cbytes > len(src) {
		cbytes = len(src)
	}

	return cbytes
}
