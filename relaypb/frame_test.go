package relaypb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestNewFrame(t *testing.T) {
	frame, err := NewFrame("message", map[string]string{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "message", frame.Event)
	assert.JSONEq(t, `{"text":"hi"}`, string(frame.Data))

	frame, err = NewFrame("disconnect", nil)
	require.NoError(t, err)
	assert.Empty(t, frame.Data)

	_, err = NewFrame("message", make(chan int))
	assert.Error(t, err)
}

func TestFrame_Decode(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{"object", Frame{Event: "join_room", Data: []byte(`{"username":"A","roomId":"lobby"}`)}, false},
		{"missing data", Frame{Event: "join_room"}, true},
		{"wrong shape", Frame{Event: "join_room", Data: []byte(`"lobby"`)}, true},
		{"broken json", Frame{Event: "join_room", Data: []byte(`{"username":`)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				Username string `json:"username"`
				RoomID   string `json:"roomId"`
			}
			err := tt.frame.Decode(&v)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedFrame)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "A", v.Username)
			assert.Equal(t, "lobby", v.RoomID)
		})
	}
}

func TestFrame_StructRoundTrip(t *testing.T) {
	frames := []Frame{
		{Event: "typing", Data: []byte(`true`)},
		{Event: "switch_room", Data: []byte(`"den"`)},
		{Event: "users_list", Data: []byte(`[{"id":"c1","username":"A"}]`)},
		{Event: "disconnect"},
	}
	for _, want := range frames {
		t.Run(want.Event, func(t *testing.T) {
			s, err := want.ToStruct()
			require.NoError(t, err)

			got, err := FrameFromStruct(s)
			require.NoError(t, err)
			assert.Equal(t, want.Event, got.Event)
			if len(want.Data) == 0 {
				assert.Empty(t, got.Data)
				return
			}
			assert.JSONEq(t, string(want.Data), string(got.Data))
		})
	}
}

func TestFrameFromStruct_MissingEvent(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"data": "x"})
	require.NoError(t, err)

	_, err = FrameFromStruct(s)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestFrame_ToStructRejectsBrokenData(t *testing.T) {
	_, err := Frame{Event: "message", Data: []byte(`{`)}.ToStruct()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestStructFromInto(t *testing.T) {
	type query struct {
		RoomID  string `json:"roomId"`
		Limit   int    `json:"limit"`
		Pattern string `json:"pattern,omitempty"`
	}
	s, err := StructFrom(query{RoomID: "lobby", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, "lobby", s.GetFields()["roomId"].GetStringValue())
	assert.InDelta(t, 20, s.GetFields()["limit"].GetNumberValue(), 0)
	assert.NotContains(t, s.GetFields(), "pattern")

	var got query
	require.NoError(t, StructInto(s, &got))
	assert.Equal(t, query{RoomID: "lobby", Limit: 20}, got)

	_, err = StructFrom([]string{"not", "an", "object"})
	assert.Error(t, err)
}
