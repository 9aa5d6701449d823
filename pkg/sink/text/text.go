// Package text writes samples as whitespace separated decimal lines:
// counter+128, motion x y z, then the eight channels.
package text

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/robotalks/openbci.go/pkg/cyton"
)

// CounterBias is added to the counter read as a signed byte, so the
// written counter is in 0-255 and wraps at 128.
const CounterBias = 128

// Writer is a buffered line sink.
type Writer struct {
	w      *bufio.Writer
	closer io.Closer
	line   []byte
}

// New creates a Writer on w.
func New(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Create creates (or truncates) the file at path. "-" writes to stdout.
func Create(path string) (*Writer, error) {
	if path == "-" {
		return New(os.Stdout), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := New(f)
	w.closer = f
	return w, nil
}

// AppendLine appends the line for s, without newline, to dst.
func AppendLine(dst []byte, s cyton.Sample) []byte {
	dst = strconv.AppendInt(dst, int64(int8(s.Counter))+CounterBias, 10)
	for _, v := range s.Motion {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	for _, v := range s.Channels {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	return dst
}

// FormatLine formats s as one line without newline.
func FormatLine(s cyton.Sample) string {
	return string(AppendLine(nil, s))
}

// ParseLine parses a line written by AppendLine.
func ParseLine(line string) (s cyton.Sample, err error) {
	fields := strings.Fields(line)
	if len(fields) != 1+cyton.NumMotion+cyton.NumChannels {
		return s, fmt.Errorf("expect %d fields, got %d", 1+cyton.NumMotion+cyton.NumChannels, len(fields))
	}
	counter, err := strconv.ParseInt(fields[0], 10, 16)
	if err != nil || counter < 0 || counter > 255 {
		return s, fmt.Errorf("invalid counter %q", fields[0])
	}
	s.Counter = uint8(int8(counter - CounterBias))
	for i := range s.Motion {
		v, err := strconv.ParseInt(fields[1+i], 10, 16)
		if err != nil {
			return s, fmt.Errorf("invalid motion %q: %v", fields[1+i], err)
		}
		s.Motion[i] = int16(v)
	}
	for i := range s.Channels {
		v, err := strconv.ParseInt(fields[1+cyton.NumMotion+i], 10, 32)
		if err != nil {
			return s, fmt.Errorf("invalid channel %q: %v", fields[1+cyton.NumMotion+i], err)
		}
		s.Channels[i] = int32(v)
	}
	return s, nil
}

// Append implements cyton.Sink.
func (w *Writer) Append(s cyton.Sample) error {
	w.line = append(AppendLine(w.line[:0], s), '\n')
	_, err := w.w.Write(w.line)
	return err
}

// Flush writes buffered lines.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	err := w.w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
