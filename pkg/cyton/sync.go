package cyton

import (
	"context"
	"io"
	"os"

	"github.com/golang/glog"
)

// SyncStats counts what a Synchronizer has seen.
type SyncStats struct {
	// Frames is the number of complete frames returned.
	Frames uint64
	// Resyncs is the number of captures restarted by a marker pair
	// found before the capture completed.
	Resyncs uint64
	// Skipped is the number of bytes dropped while not synchronized.
	Skipped uint64
	// BadFooters is the number of frames rejected by StrictFooter.
	BadFooters uint64
}

// Synchronizer locates frame boundaries in an unaligned byte stream.
// The last byte seen is carried across NextFrame calls so a marker pair
// may straddle two calls. The zero value is ready to use.
type Synchronizer struct {
	// StrictFooter drops completed frames whose last byte is not the
	// footer marker. By default frames are accepted as soon as they are
	// full, as the marker pair that started the capture already implies
	// alignment.
	StrictFooter bool

	prev  byte
	seq   int
	buf   Frame
	stats SyncStats
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(strictFooter bool) *Synchronizer {
	return &Synchronizer{StrictFooter: strictFooter}
}

// Stats returns the counters.
func (s *Synchronizer) Stats() SyncStats {
	return s.stats
}

// Synced reports whether a frame capture is in progress.
func (s *Synchronizer) Synced() bool {
	return s.seq > 0
}

// Reset drops any capture in progress and the carried byte.
func (s *Synchronizer) Reset() {
	s.prev, s.seq = 0, 0
}

// Feed consumes one byte and returns a frame when one is complete.
// The returned frame is a copy owned by the caller.
func (s *Synchronizer) Feed(b byte) *Frame {
	capturing := s.seq > 0
	if capturing {
		s.buf[s.seq] = b
		s.seq++
	}
	// A marker pair always restarts capture, even in the middle of a frame.
	if s.prev == FooterMarker && b == HeaderMarker {
		if capturing {
			s.stats.Resyncs++
			glog.Warningf("resync: marker pair at byte %d of frame", s.seq-1)
		}
		s.buf[0] = b
		s.seq = 1
	} else if !capturing {
		s.stats.Skipped++
	}
	s.prev = b

	if s.seq == FrameSize {
		s.seq = 0
		if s.StrictFooter {
			if err := s.buf.Validate(); err != nil {
				s.stats.BadFooters++
				glog.V(2).Infof("frame dropped: %v", err)
				return nil
			}
		}
		s.stats.Frames++
		f := s.buf
		return &f
	}
	return nil
}

// NextFrame reads from r one byte at a time until a frame is complete.
// Zero-byte reads and timeouts are retried; ctx is checked before every
// read, so r should return within its read timeout. On cancellation or
// read failure the partial capture is discarded.
func (s *Synchronizer) NextFrame(ctx context.Context, r io.Reader) (*Frame, error) {
	var buf [1]byte
	for {
		select {
		case <-ctx.Done():
			s.seq = 0
			return nil, cancelled(ctx.Err())
		default:
		}
		n, err := r.Read(buf[:])
		if n > 0 {
			if f := s.Feed(buf[0]); f != nil {
				return f, nil
			}
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			s.seq = 0
			return nil, NewError(CodeTransportIO, "read frame", err)
		}
	}
}
