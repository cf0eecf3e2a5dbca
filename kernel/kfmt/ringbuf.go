package kfmt

import "io"

// ringBufferSize is the capacity of the early-boot console buffer. Large
// enough to retain a full exception diagnostic dump produced before a
// real console sink is attached. Must be a power of two.
const ringBufferSize = 4096

// ringBuffer is a fixed-capacity circular byte buffer used to retain
// output produced before a real output sink has been configured. It
// keeps monotonically increasing read/write counters rather than
// wrapped indices: masking a counter yields the slot, and the counter
// distance is the byte count, so the full capacity is usable and
// full-versus-empty needs no sacrificial slot.
type ringBuffer struct {
	data [ringBufferSize]byte
	rpos uint64
	wpos uint64
}

// Write appends p, overwriting the oldest buffered bytes once the
// counter distance exceeds the capacity.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.data[rb.wpos&(ringBufferSize-1)] = b
		rb.wpos++
	}
	if rb.wpos-rb.rpos > ringBufferSize {
		rb.rpos = rb.wpos - ringBufferSize
	}
	return len(p), nil
}

// Read drains up to len(p) buffered bytes into p, returning io.EOF once
// the buffer is empty.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rpos == rb.wpos {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) && rb.rpos < rb.wpos {
		p[n] = rb.data[rb.rpos&(ringBufferSize-1)]
		rb.rpos++
		n++
	}
	return n, nil
}
