// Package memstream provides a bounds-checked cursor over an in-memory
// byte buffer, with the fixed-width and variable-length integer decoding
// used by MIDI-style binary formats.
package memstream

import "errors"

// Sentinel errors returned by Stream accessors. Callers are expected to
// match them with errors.Is and decide whether to abort, skip or
// substitute a default.
var (
	// ErrFormat reports malformed data, such as a variable-length
	// quantity that exceeds 4 bytes or a mismatched expected byte.
	ErrFormat = errors.New("memstream: malformed data")

	// ErrEOF reports any access that would cross the end of the buffer.
	ErrEOF = errors.New("memstream: end of stream")
)

// Maximum encoded size of a variable-length quantity.
const maxVLQLen = 4

// Stream is a forward cursor over an immutable byte buffer.
// It never reads outside the buffer; every fallible accessor returns an
// error instead. The zero value is an empty stream.
type Stream struct {
	data []byte
	off  int
}

// New returns a Stream reading from data. The buffer is not copied and
// must not be modified while the stream is in use.
func New(data []byte) *Stream {
	return &Stream{data: data}
}

// Len returns the total buffer length.
func (s *Stream) Len() int {
	return len(s.data)
}

// Pos returns the current read offset.
func (s *Stream) Pos() int {
	return s.off
}

// SetPos moves the cursor to an absolute offset.
// Offsets beyond the buffer length fail with ErrEOF; an offset equal to
// the length is valid and leaves the stream exhausted.
func (s *Stream) SetPos(off int) error {
	if off < 0 || off > len(s.data) {
		return ErrEOF
	}
	s.off = off
	return nil
}

// Skip advances the cursor by n bytes.
func (s *Stream) Skip(n int) error {
	if n < 0 || s.off+n > len(s.data) {
		return ErrEOF
	}
	s.off += n
	return nil
}

// SkipByte consumes the next byte if it equals b.
// A mismatch fails with ErrFormat and does not advance.
func (s *Stream) SkipByte(b byte) error {
	if s.off >= len(s.data) {
		return ErrEOF
	}
	if s.data[s.off] != b {
		return ErrFormat
	}
	s.off++
	return nil
}

// Peek returns the next n bytes without advancing.
// The returned slice aliases the underlying buffer and must be treated
// as read-only.
func (s *Stream) Peek(n int) ([]byte, error) {
	if n < 0 || s.off+n > len(s.data) {
		return nil, ErrEOF
	}
	return s.data[s.off : s.off+n], nil
}

// Read returns the next n bytes and advances past them.
// The returned slice aliases the underlying buffer.
func (s *Stream) Read(n int) ([]byte, error) {
	b, err := s.Peek(n)
	if err != nil {
		return nil, err
	}
	s.off += n
	return b, nil
}

// PeekByte returns the next byte without advancing.
func (s *Stream) PeekByte() (byte, error) {
	if s.off >= len(s.data) {
		return 0, ErrEOF
	}
	return s.data[s.off], nil
}

// ReadByte returns the next byte and advances past it.
func (s *Stream) ReadByte() (byte, error) {
	b, err := s.PeekByte()
	if err != nil {
		return 0, err
	}
	s.off++
	return b, nil
}

// ReadUint reads an n-byte big-endian unsigned integer, n in [1,4].
func (s *Stream) ReadUint(n int) (uint32, error) {
	if n < 1 || n > 4 {
		return 0, ErrFormat
	}
	b, err := s.Read(n)
	if err != nil {
		return 0, err
	}
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v, nil
}

// ReadVLQ decodes a variable-length quantity and advances past it.
func (s *Stream) ReadVLQ() (uint32, error) {
	v, n, err := s.decodeVLQ()
	if err != nil {
		return 0, err
	}
	s.off += n
	return v, nil
}

// PeekVLQ decodes a variable-length quantity without advancing.
// The position is unchanged even when decoding fails.
func (s *Stream) PeekVLQ() (uint32, error) {
	v, _, err := s.decodeVLQ()
	if err != nil {
		return 0, err
	}
	return v, nil
}

// decodeVLQ reads up to maxVLQLen bytes at the current offset: 7 value
// bits per byte, big-endian, continuation in the high bit of every byte
// except the last. A continuation bit on the 4th byte means the value
// would need a 5th byte, which the encoding forbids.
func (s *Stream) decodeVLQ() (v uint32, n int, err error) {
	for i := 0; i < maxVLQLen; i++ {
		if s.off+i >= len(s.data) {
			return 0, 0, ErrEOF
		}
		c := s.data[s.off+i]
		v = v<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrFormat
}

// AppendVLQ appends the variable-length encoding of v to dst and returns
// the extended slice. Values above 0x0FFFFFFF do not fit in 4 bytes and
// are truncated to 28 bits.
func AppendVLQ(dst []byte, v uint32) []byte {
	v &= 0x0FFFFFFF
	n := 1
	for shifted := v >> 7; shifted != 0; shifted >>= 7 {
		n++
	}
	for i := n - 1; i > 0; i-- {
		dst = append(dst, byte(v>>(7*uint(i)))|0x80)
	}
	return append(dst, byte(v&0x7F))
}
