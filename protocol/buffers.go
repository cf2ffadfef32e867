package protocol

// InputBuffer is a byte source the frame decoder consumes from
type InputBuffer interface {
	// Data returns the buffered bytes as one contiguous slice
	Data() []byte

	// Available returns the number of buffered bytes
	Available() int

	// Pop drops n bytes from the front
	Pop(n int)
}

// OutputBuffer is a byte sink encoders append to
type OutputBuffer interface {
	Output(data []byte)

	// CurPosition returns the current write offset
	CurPosition() int

	// DataSince returns what was written from pos on
	DataSince(pos int) []byte
}

// SliceInputBuffer is an InputBuffer over a fixed slice
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput is an OutputBuffer over a fixed array; writes past the end
// are dropped
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written since the last Reset
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

func (s *ScratchOutput) Reset() { s.pos = 0 }

// SliceOutput is an OutputBuffer appending to a growable slice, for host
// side encoding
type SliceOutput struct {
	Buf []byte
}

func (s *SliceOutput) Output(data []byte) { s.Buf = append(s.Buf, data...) }

func (s *SliceOutput) CurPosition() int { return len(s.Buf) }

func (s *SliceOutput) DataSince(pos int) []byte {
	if pos > len(s.Buf) {
		return nil
	}
	return s.Buf[pos:]
}

// FifoBuffer is a ring of received serial bytes. One slot stays empty to
// tell full from empty.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
}

func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count written
func (f *FifoBuffer) Write(data []byte) int {
	n := 0
	for _, b := range data {
		next := (f.write + 1) % len(f.buf)
		if next == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = next
		n++
	}
	return n
}

func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return len(f.buf) - f.read + f.write
}

// Data returns the buffered bytes. A wrapped ring is copied out so frames
// crossing the end stay contiguous.
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	out := make([]byte, 0, f.Available())
	out = append(out, f.buf[f.read:]...)
	return append(out, f.buf[:f.write]...)
}

func (f *FifoBuffer) Pop(n int) {
	if a := f.Available(); n > a {
		n = a
	}
	f.read = (f.read + n) % len(f.buf)
}
