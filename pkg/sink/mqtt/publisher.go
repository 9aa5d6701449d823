package mqtt

import (
	"time"

	"github.com/robotalks/openbci.go/pkg/cyton"
)

// SamplesTopic is the topic samples of a device are published to.
func SamplesTopic(deviceID string) string {
	return deviceID + "/samples"
}

// Publisher is a sink publishing each sample.
type Publisher struct {
	Queue   *Queue
	Topic   string
	Session string
	// QoS 0 publishes without waiting for the broker.
	QoS byte

	seq uint64
	now func() time.Time
}

// NewPublisher creates a Publisher for the device and session.
func NewPublisher(q *Queue, deviceID, sessionID string) *Publisher {
	return &Publisher{
		Queue:   q,
		Topic:   SamplesTopic(deviceID),
		Session: sessionID,
		now:     time.Now,
	}
}

// Append implements cyton.Sink.
func (p *Publisher) Append(s cyton.Sample) error {
	payload, err := EncodeMessage(Message{Session: p.Session, Seq: p.seq, Time: p.now(), Sample: s})
	if err != nil {
		return err
	}
	p.seq++
	token := p.Queue.Pub(p.Topic, payload, p.QoS)
	if p.QoS == 0 {
		return nil
	}
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	return p.Queue.Close()
}
