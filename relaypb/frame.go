// Package relaypb holds the wire envelope shared by every chatrelay transport and
// the gRPC service description used by servers and clients.
package relaypb

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Frame is the {"event": ..., "data": ...} envelope. Data is left raw so each
// side decodes it into the payload type the event calls for.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewFrame(event string, data any) (Frame, error) {
	if data == nil {
		return Frame{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Frame{Event: event, Data: raw}, nil
}

// Decode unmarshals the frame's data into v.
func (f Frame) Decode(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s without data: %w", f.Event, ErrMalformedFrame)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%s: %w: %v", f.Event, ErrMalformedFrame, err)
	}
	return nil
}

// ToStruct converts the frame to the protobuf Struct carried by the gRPC stream.
func (f Frame) ToStruct() (*structpb.Struct, error) {
	fields := map[string]any{"event": f.Event}
	if len(f.Data) > 0 {
		var data any
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", f.Event, ErrMalformedFrame, err)
		}
		fields["data"] = data
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct for %s: %w", f.Event, err)
	}
	return s, nil
}

func FrameFromStruct(s *structpb.Struct) (Frame, error) {
	event := s.GetFields()["event"].GetStringValue()
	if event == "" {
		return Frame{}, fmt.Errorf("missing event name: %w", ErrMalformedFrame)
	}
	value, ok := s.GetFields()["data"]
	if !ok {
		return Frame{Event: event}, nil
	}
	raw, err := protojson.Marshal(value)
	if err != nil {
		return Frame{}, fmt.Errorf("%s: %w: %v", event, ErrMalformedFrame, err)
	}
	return Frame{Event: event, Data: raw}, nil
}

// StructFrom converts any JSON-encodable value into a Struct. It is used for
// the unary calls whose request and response are plain objects.
func StructFrom(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	return s, nil
}

// StructInto decodes a Struct into v through its JSON form.
func StructInto(s *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
