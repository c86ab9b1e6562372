package session

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"io"
	"sync/atomic"
	"time"
)

const (
	// KeyLength is the length of a session identifier: a hex encoded SHA-1.
	KeyLength = 2 * digestSize

	digestSize  = sha1.Size
	entropySize = 30
)

var keyCounter atomic.Uint64

// GenerateKey returns a new session identifier.
//
// The identifier is the hex encoded SHA-1 of salt, the wall clock in
// nanoseconds, a process wide counter and 30 bytes read from crypto/rand.
// The counter keeps keys distinct even when the clock does not advance;
// unpredictability rests entirely on crypto/rand.
func GenerateKey(salt string) (string, error) {
	ptr := keyBufferPool.Get().(*[]byte)
	b := *ptr
	defer func() {
		clear(b)
		keyBufferPool.Put(ptr)
	}()

	if _, err := io.ReadFull(rand.Reader, b[:entropySize]); err != nil {
		return "", err
	}
	binary.LittleEndian.PutUint64(b[entropySize:entropySize+8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint64(b[entropySize+8:entropySize+16], keyCounter.Add(1))

	h := sha1.New()
	_, _ = io.WriteString(h, salt)
	_, _ = h.Write(b[:entropySize+16])
	sum := h.Sum(b[entropySize+16 : entropySize+16])

	return hex.EncodeToString(sum), nil
}

// validKeyChars is a lookup table for valid hex characters (0-9, a-f).
var validKeyChars = [256]bool{}

func init() {
	for i := 0; i < len(validKeyChars); i++ {
		c := byte(i)
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') {
			validKeyChars[i] = true
		}
	}
}

// IsValidKey reports whether key has the shape of a session identifier:
// exactly 40 lowercase hex characters. It does not check that the key exists.
func IsValidKey(key string) bool {
	if len(key) != KeyLength {
		return false
	}
	for i := 0; i < KeyLength; i++ {
		if !validKeyChars[key[i]] {
			return false
		}
	}
	return true
}
