package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func startLiveServer(t *testing.T) string {
	t.Helper()
	live := NewLiveHandler(setupTestEvaluator(t), nil, zerolog.New(nil).Level(zerolog.Disabled))

	router := chi.NewRouter()
	live.RegisterLiveRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/quantum/live"
}

func dialLive(t *testing.T, url, subprotocol string) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	opts := &websocket.DialOptions{}
	if subprotocol != "" {
		opts.Subprotocols = []string{subprotocol}
	}
	conn, _, err := websocket.Dial(ctx, url, opts)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func exchangeJSON(t *testing.T, ctx context.Context, conn *websocket.Conn, frame string) LiveFrame {
	t.Helper()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, msgType)

	var reply LiveFrame
	require.NoError(t, json.Unmarshal(data, &reply))
	return reply
}

func TestLive_JSONSession(t *testing.T) {
	url := startLiveServer(t)
	conn, ctx := dialLive(t, url, SubprotocolJSON)
	assert.Equal(t, SubprotocolJSON, conn.Subprotocol())

	first := exchangeJSON(t, ctx, conn, `{"state":"phi_plus","a":{"theta":0,"phi":0},"b":{"theta":0.7854,"phi":0}}`)
	require.Empty(t, first.Error)
	require.NotNil(t, first.Simulation)
	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, "phi_plus", first.State)
	assert.InDelta(t, 1.0, first.Simulation.Probabilities.Sum(), 1e-9)

	_, err := uuid.Parse(first.SessionID)
	assert.NoError(t, err)

	second := exchangeJSON(t, ctx, conn, `{"state":"psi_minus","a":{"theta":1},"b":{"theta":1}}`)
	assert.Equal(t, uint64(2), second.Sequence)
	assert.Equal(t, first.SessionID, second.SessionID)
	require.NotNil(t, second.Simulation)
	assert.InDelta(t, 0.5, second.Simulation.Probabilities.PM, 1e-9)
}

func TestLive_DefaultsToJSON(t *testing.T) {
	url := startLiveServer(t)
	conn, ctx := dialLive(t, url, "")

	reply := exchangeJSON(t, ctx, conn, `{"state":"product_00","a":{"theta":0},"b":{"theta":0}}`)

	require.NotNil(t, reply.Simulation)
	assert.InDelta(t, 1.0, reply.Simulation.Probabilities.PP, 1e-9)
}

func TestLive_ErrorsKeepSessionOpen(t *testing.T) {
	url := startLiveServer(t)
	conn, ctx := dialLive(t, url, SubprotocolJSON)

	testCases := []struct {
		name  string
		frame string
	}{
		{"malformed", `{"state":`},
		{"unknown_state", `{"state":"ghz","a":{"theta":0},"b":{"theta":0}}`},
		{"missing_angles", `{"state":"phi_plus"}`},
		{"missing_state", `{"a":{"theta":0},"b":{"theta":0}}`},
	}

	for i, tc := range testCases {
		reply := exchangeJSON(t, ctx, conn, tc.frame)
		assert.NotEmpty(t, reply.Error, tc.name)
		assert.Nil(t, reply.Simulation, tc.name)
		assert.Equal(t, uint64(i+1), reply.Sequence, tc.name)
	}

	reply := exchangeJSON(t, ctx, conn, `{"state":"phi_plus","a":{"theta":0},"b":{"theta":0}}`)
	assert.Empty(t, reply.Error)
	require.NotNil(t, reply.Simulation)
}

func TestLive_WrongFrameType(t *testing.T) {
	url := startLiveServer(t)
	conn, ctx := dialLive(t, url, SubprotocolJSON)

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte{0x80}))
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var reply LiveFrame
	require.NoError(t, json.Unmarshal(data, &reply))
	assert.Contains(t, reply.Error, "expected")
}

func TestLive_MsgpackSession(t *testing.T) {
	url := startLiveServer(t)
	conn, ctx := dialLive(t, url, SubprotocolMsgpack)
	require.Equal(t, SubprotocolMsgpack, conn.Subprotocol())

	req := MeasurementRequest{
		StateRequest: StateRequest{State: "phi_plus"},
		A:            &AnglePair{Theta: 0},
		B:            &AnglePair{Theta: math.Pi / 4},
	}
	payload, err := msgpackMarshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, payload))

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, msgType)

	var reply LiveFrame
	require.NoError(t, msgpackUnmarshal(data, &reply))
	require.Empty(t, reply.Error)
	require.NotNil(t, reply.Simulation)
	assert.Equal(t, uint64(1), reply.Sequence)
	assert.InDelta(t, (1+math.Cos(math.Pi/4))/4, reply.Simulation.Probabilities.PP, 1e-9)
	assert.InDelta(t, math.Pi/2, reply.Simulation.Angles.APrime.Theta, 1e-12)
}

func TestCodecFor(t *testing.T) {
	assert.Equal(t, SubprotocolMsgpack, codecFor(SubprotocolMsgpack).name)
	assert.Equal(t, websocket.MessageBinary, codecFor(SubprotocolMsgpack).messageType)
	assert.Equal(t, SubprotocolJSON, codecFor("").name)
	assert.Equal(t, websocket.MessageText, codecFor(SubprotocolJSON).messageType)
}
