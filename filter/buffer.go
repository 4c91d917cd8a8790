package filter

// Buffer is a growable byte container holding a single token value.
// Filters mutate it in place or replace its contents via Acquire.
// The buffer is owned by its token; pipelines never copy it.
type Buffer struct {
	b []byte
}

// NewBuffer creates a buffer holding a copy of p.
func NewBuffer(p []byte) *Buffer {
	buf := &Buffer{b: make([]byte, len(p))}
	copy(buf.b, p)
	return buf
}

// Value returns the current token bytes. The slice is valid until the
// next mutation of the buffer.
func (buf *Buffer) Value() []byte {
	return buf.b
}

// Len returns the token length in bytes.
func (buf *Buffer) Len() int {
	return len(buf.b)
}

// String returns the token as a string.
func (buf *Buffer) String() string {
	return string(buf.b)
}

// Acquire replaces the buffer contents with a copy of p, reusing the
// existing storage when it is large enough.
func (buf *Buffer) Acquire(p []byte) {
	if cap(buf.b) < len(p) {
		buf.b = make([]byte, len(p))
	} else {
		buf.b = buf.b[:len(p)]
	}
	copy(buf.b, p)
}

// AcquireString replaces the buffer contents with s.
func (buf *Buffer) AcquireString(s string) {
	if cap(buf.b) < len(s) {
		buf.b = make([]byte, len(s))
	} else {
		buf.b = buf.b[:len(s)]
	}
	copy(buf.b, s)
}
