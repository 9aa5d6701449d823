package cyton

import "fmt"

// Frame layout.
const (
	FrameSize = 33

	HeaderMarker byte = 0xA0
	FooterMarker byte = 0xC0

	NumChannels = 8
	NumMotion   = 3

	offsetCounter  = 1
	offsetChannels = 2
	offsetMotion   = 26
	offsetFooter   = FrameSize - 1
)

// Frame is one raw packet captured from the stream.
// Byte 0 is the header marker, byte 1 the packet counter, bytes 2-25 eight
// 24-bit channel values, bytes 26-31 three 16-bit motion values and byte 32
// the footer marker.
type Frame [FrameSize]byte

// Counter returns the packet counter.
func (f *Frame) Counter() uint8 {
	return f[offsetCounter]
}

// HasFooter reports whether the last byte is the footer marker.
func (f *Frame) HasFooter() bool {
	return f[offsetFooter] == FooterMarker
}

// Validate checks the footer marker.
func (f *Frame) Validate() error {
	if !f.HasFooter() {
		return NewError(CodeMalformedFrame, "validate frame",
			fmt.Errorf("counter %d: footer 0x%02x", f.Counter(), f[offsetFooter]))
	}
	return nil
}

// Sample is a decoded frame.
type Sample struct {
	Counter  uint8              `json:"counter"`
	Channels [NumChannels]int32 `json:"channels"`
	Motion   [NumMotion]int16   `json:"motion"`
}

// Decode extracts the fields of a frame. No scaling to physical units is
// applied.
func Decode(f *Frame) (s Sample) {
	s.Counter = f.Counter()
	for i := range s.Channels {
		off := offsetChannels + i*3
		s.Channels[i] = Int24(f[off : off+3])
	}
	for i := range s.Motion {
		off := offsetMotion + i*2
		s.Motion[i] = Int16(f[off : off+2])
	}
	return
}

// Int24 decodes a big-endian 24-bit two's complement value.
func Int24(b []byte) int32 {
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	if v&0x00800000 != 0 {
		v |= 0xFF000000
	} else {
		v &= 0x00FFFFFF
	}
	return int32(v)
}

// Int16 decodes a big-endian 16-bit two's complement value.
func Int16(b []byte) int16 {
	return int16(uint16(b[0])<<8 | uint16(b[1]))
}

// PutInt24 encodes the low 24 bits of v big-endian into b.
func PutInt24(b []byte, v int32) {
	b[0], b[1], b[2] = byte(v>>16), byte(v>>8), byte(v)
}

// PutInt16 encodes v big-endian into b.
func PutInt16(b []byte, v int16) {
	b[0], b[1] = byte(v>>8), byte(v)
}

// Encode builds the frame a board would send for the sample.
func Encode(s Sample) *Frame {
	var f Frame
	f[0], f[offsetCounter], f[offsetFooter] = HeaderMarker, s.Counter, FooterMarker
	for i, v := range s.Channels {
		off := offsetChannels + i*3
		PutInt24(f[off:off+3], v)
	}
	for i, v := range s.Motion {
		off := offsetMotion + i*2
		PutInt16(f[off:off+2], v)
	}
	return &f
}
