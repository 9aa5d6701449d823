// Package sink provides destinations for decoded samples.
package sink

import (
	"io"

	"github.com/robotalks/openbci.go/pkg/cyton"
	fx "github.com/robotalks/openbci.go/pkg/framework"
)

// Multi appends every sample to all sinks in order.
type Multi []cyton.Sink

// Append implements cyton.Sink. All sinks see the sample even if one fails.
func (m Multi) Append(s cyton.Sample) error {
	var errs fx.AggregatedError
	for _, sink := range m {
		errs.Add(sink.Append(s))
	}
	return errs.Aggregate()
}

// Close closes the sinks implementing io.Closer.
func (m Multi) Close() error {
	var errs fx.AggregatedError
	for _, sink := range m {
		if closer, ok := sink.(io.Closer); ok {
			errs.Add(closer.Close())
		}
	}
	return errs.Aggregate()
}
