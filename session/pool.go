package session

import (
	"bytes"
	"sync"
)

var readerPool = sync.Pool{
	New: func() any {
		return bytes.NewReader(nil)
	},
}

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

var keyBufferPool = sync.Pool{
	New: func() any {
		// 30 bytes of raw entropy, 8 of clock, 8 of counter, 20 of digest.
		b := make([]byte, entropySize+16+digestSize)
		return &b
	},
}

// PutBuffer wipes the buffer's content and returns it to the pool, so session
// data is not retained in memory longer than necessary.
func PutBuffer(buf *bytes.Buffer) {
	b := buf.Bytes()
	clear(b)
	buf.Reset()
	bufferPool.Put(buf)
}
