package terminal

// defaultHistoryMaxBytes caps the scrollback retained per session.
const defaultHistoryMaxBytes = 2_000_000

// history is an ordered sequence of output chunks bounded by total byte
// count. The oldest chunks are evicted first when an append would exceed
// the cap. Not safe for concurrent use; the owning session serializes
// access under its own mutex.
type history struct {
	chunks   [][]byte
	size     int
	maxBytes int
}

func newHistory(maxBytes int) history {
	if maxBytes <= 0 {
		maxBytes = defaultHistoryMaxBytes
	}
	return history{maxBytes: maxBytes}
}

// append adds a chunk and evicts from the front until the cumulative size
// is back under the cap. The chunk must not be mutated by the caller after
// the append; snapshots share the underlying bytes.
func (h *history) append(chunk []byte) {
	h.chunks = append(h.chunks, chunk)
	h.size += len(chunk)
	for h.size > h.maxBytes && len(h.chunks) > 0 {
		h.size -= len(h.chunks[0])
		h.chunks[0] = nil
		h.chunks = h.chunks[1:]
	}
}

// snapshot returns the chunks in production order. The returned slice is a
// copy; the chunk contents are shared and treated as immutable.
func (h *history) snapshot() [][]byte {
	out := make([][]byte, len(h.chunks))
	copy(out, h.chunks)
	return out
}
