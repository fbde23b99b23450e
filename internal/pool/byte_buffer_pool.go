package pool

import "sync"

// Default capacity of a chunk scratch buffer, and the threshold above
// which returned buffers are dropped instead of pooled. Filters and lane
// splitting need a scratch copy of the chunk, so the defaults track common
// chunk sizes.
const (
	ChunkBufferDefaultSize  = 64 * 1024
	ChunkBufferMaxThreshold = 4 * 1024 * 1024
)

// ByteBuffer is a reusable byte slice wrapper handed out by the pool.
type ByteBuffer struct {
	B []byte
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer but keeps its capacity for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Grow ensures the buffer holds exactly n bytes, reallocating only when
// capacity is insufficient. Contents are unspecified after the call.
func (bb *ByteBuffer) Grow(n int) []byte {
	if cap(bb.B) < n {
		bb.B = make([]byte, n)
	} else {
		bb.B = bb.B[:n]
	}

	return bb.B
}

var chunkBufferPool = sync.Pool{
	New: func() any {
		return &ByteBuffer{B: make([]byte, 0, ChunkBufferDefaultSize)}
	},
}

// GetChunkBuffer returns an empty scratch buffer from the pool.
func GetChunkBuffer() *ByteBuffer {
	bb, _ := chunkBufferPool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// PutChunkBuffer returns a scratch buffer to the pool. Oversized buffers
// are dropped so one large chunk cannot pin memory for the whole process.
func PutChunkBuffer(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > ChunkBufferMaxThreshold {
		return
	}
	chunkBufferPool.Put(bb)
}
