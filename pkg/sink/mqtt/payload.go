package mqtt

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/openbci.go/pkg/cyton"
)

// Message is one sample on the bus.
type Message struct {
	Session string
	Seq     uint64
	Time    time.Time
	Sample  cyton.Sample
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringValue(v string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: v}}
}

func listValue(vs ...float64) *structpb.Value {
	l := &structpb.ListValue{Values: make([]*structpb.Value, len(vs))}
	for n, v := range vs {
		l.Values[n] = numberValue(v)
	}
	return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: l}}
}

// EncodeMessage encodes m as a protobuf Struct.
func EncodeMessage(m Message) ([]byte, error) {
	channels := make([]float64, cyton.NumChannels)
	for n, v := range m.Sample.Channels {
		channels[n] = float64(v)
	}
	motion := make([]float64, cyton.NumMotion)
	for n, v := range m.Sample.Motion {
		motion[n] = float64(v)
	}
	return proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"session":  stringValue(m.Session),
		"seq":      numberValue(float64(m.Seq)),
		"time":     stringValue(m.Time.UTC().Format(time.RFC3339Nano)),
		"counter":  numberValue(float64(m.Sample.Counter)),
		"channels": listValue(channels...),
		"motion":   listValue(motion...),
	}})
}

// DecodeMessage decodes a payload produced by EncodeMessage.
func DecodeMessage(payload []byte) (m Message, err error) {
	var st structpb.Struct
	if err = proto.Unmarshal(payload, &st); err != nil {
		return
	}
	fields := st.GetFields()
	m.Session = fields["session"].GetStringValue()
	m.Seq = uint64(fields["seq"].GetNumberValue())
	if ts := fields["time"].GetStringValue(); ts != "" {
		if m.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return
		}
	}
	m.Sample.Counter = uint8(fields["counter"].GetNumberValue())
	channels := fields["channels"].GetListValue().GetValues()
	if len(channels) != cyton.NumChannels {
		return m, fmt.Errorf("expect %d channels, got %d", cyton.NumChannels, len(channels))
	}
	for n, v := range channels {
		m.Sample.Channels[n] = int32(v.GetNumberValue())
	}
	motion := fields["motion"].GetListValue().GetValues()
	if len(motion) != cyton.NumMotion {
		return m, fmt.Errorf("expect %d motion values, got %d", cyton.NumMotion, len(motion))
	}
	for n, v := range motion {
		m.Sample.Motion[n] = int16(v.GetNumberValue())
	}
	return m, nil
}
