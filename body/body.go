package body

import (
	"errors"
	"io"
	"iter"
)

// Iterator is a lazily produced response body.
//
// Next returns the next chunk, or io.EOF once the body is exhausted.
// An Iterator may also implement io.Closer; Closing propagates to it.
type Iterator interface {
	Next() ([]byte, error)
}

// Func adapts a function to an Iterator.
type Func func() ([]byte, error)

// Next calls f.
func (f Func) Next() ([]byte, error) { return f() }

type sliceIterator struct {
	chunks [][]byte
}

func (s *sliceIterator) Next() ([]byte, error) {
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

// Bytes returns an Iterator producing chunks in order.
func Bytes(chunks ...[]byte) Iterator {
	return &sliceIterator{chunks: chunks}
}

// String returns an Iterator producing each string as one chunk.
func String(chunks ...string) Iterator {
	b := make([][]byte, len(chunks))
	for i, c := range chunks {
		b[i] = []byte(c)
	}
	return &sliceIterator{chunks: b}
}

// Empty returns an Iterator that is already exhausted.
func Empty() Iterator {
	return &sliceIterator{}
}

type readerIterator struct {
	r   io.Reader
	buf []byte
}

// FromReader returns an Iterator reading r in chunks of at most size bytes.
// If r is an io.Closer the Iterator is too.
func FromReader(r io.Reader, size int) Iterator {
	if size <= 0 {
		size = 32 * 1024
	}
	it := &readerIterator{r: r, buf: make([]byte, size)}
	if c, ok := r.(io.Closer); ok {
		return &closingReaderIterator{readerIterator: it, c: c}
	}
	return it
}

func (it *readerIterator) Next() ([]byte, error) {
	for {
		n, err := it.r.Read(it.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, it.buf[:n])
			return chunk, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

type closingReaderIterator struct {
	*readerIterator
	c io.Closer
}

func (it *closingReaderIterator) Close() error { return it.c.Close() }

type seqIterator struct {
	next func() ([]byte, bool)
	stop func()
}

// FromSeq returns an Iterator pulling from seq. Closing the Iterator stops
// the sequence, so a generator's deferred cleanup runs even when the body
// is not drained.
func FromSeq(seq iter.Seq[[]byte]) Iterator {
	next, stop := iter.Pull(seq)
	return &seqIterator{next: next, stop: stop}
}

func (it *seqIterator) Next() ([]byte, error) {
	chunk, ok := it.next()
	if !ok {
		return nil, io.EOF
	}
	return chunk, nil
}

func (it *seqIterator) Close() error {
	it.stop()
	return nil
}

// Drain reads it to the end and returns the concatenated chunks.
// It does not close it.
func Drain(it Iterator) ([]byte, error) {
	var out []byte
	for {
		chunk, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, chunk...)
	}
}
