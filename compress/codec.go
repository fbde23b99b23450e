package compress

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/btune-go/btune/format"
)

// Compressor compresses a single chunk payload at a given compression level.
//
// Levels follow the pipeline convention: 1 is fastest, 9 compresses hardest.
// Level 0 never reaches a Compressor; the pipeline short-circuits it to a
// plain copy. Codecs with fewer native levels map the range onto their own
// scale.
type Compressor interface {
	// Compress compresses data and returns a newly allocated result.
	// The input slice is not modified; internal buffers may be reused.
	Compress(data []byte, level int) ([]byte, error)
}

// Decompressor restores a chunk payload previously produced by the matching
// Compressor.
//
// The pipeline frames every chunk with its original size, so the exact
// destination length is always known at decompression time.
type Decompressor interface {
	// Decompress decompresses data into a newly allocated slice of dstLen
	// bytes. It returns an error if the payload is corrupt or does not
	// decode to exactly dstLen bytes.
	Decompress(data []byte, dstLen int) ([]byte, error)
}

// Codec combines both directions. Implementations must be safe for
// concurrent use; the builtin codecs share state only through sync.Pool.
type Codec interface {
	Compressor
	Decompressor
}

var (
	registryMu sync.RWMutex
	registry   = map[format.CodecID]Codec{
		format.CodecLZ4:   LZ4Codec{},
		format.CodecLZ4HC: LZ4HCCodec{},
		format.CodecZstd:  ZstdCodec{},
		format.CodecZlib:  ZlibCodec{},
		format.CodecS2:    S2Codec{},
	}
)

// Register adds a codec under the given id. Registering the same id twice
// is a no-op, so init paths may register unconditionally.
func Register(id format.CodecID, codec Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[id]; ok {
		return
	}
	registry[id] = codec
}

// Lookup returns the codec registered under id.
func Lookup(id format.CodecID) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if codec, ok := registry[id]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported codec: %s", id)
}

// Has reports whether a codec is registered under id.
func Has(id format.CodecID) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[id]

	return ok
}

// List returns the names of all registered codecs, sorted, comma separated.
func List() string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for id := range registry {
		names = append(names, id.String())
	}
	sort.Strings(names)

	return strings.Join(names, ",")
}
