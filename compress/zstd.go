package compress

// ZstdCodec is the Zstandard codec, the high-ratio option in the registry.
//
// Two implementations exist behind build tags, mirroring how deployments
// differ:
//   - default: pure Go via klauspost/compress/zstd
//   - "zstdcgo" tag: libzstd via valyala/gozstd, which reaches the full
//     native level range at a cgo cost
//
// Both map the pipeline's 1..9 level scale onto their own level space.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)
