package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"

	"github.com/aristath/entangle/internal/modules/quantum"
)

const (
	// SubprotocolJSON selects text frames carrying JSON (the default)
	SubprotocolJSON = "json"
	// SubprotocolMsgpack selects binary frames carrying MessagePack
	SubprotocolMsgpack = "msgpack"

	liveWriteWait = 10 * time.Second
	liveReadLimit = 64 << 10
)

// LiveHandler serves the interactive simulator over a websocket. Every frame
// received is a MeasurementRequest; every frame sent is a LiveFrame.
type LiveHandler struct {
	evaluator      *quantum.Evaluator
	originPatterns []string
	log            zerolog.Logger
}

// NewLiveHandler creates a new websocket handler
func NewLiveHandler(evaluator *quantum.Evaluator, originPatterns []string, log zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		evaluator:      evaluator,
		originPatterns: originPatterns,
		log:            log.With().Str("handler", "quantum_live").Logger(),
	}
}

// LiveFrame is one server reply. Exactly one of Simulation or Error is set.
type LiveFrame struct {
	SessionID  string              `json:"session_id" msgpack:"session_id"`
	Sequence   uint64              `json:"sequence" msgpack:"sequence"`
	State      string              `json:"state,omitempty" msgpack:"state,omitempty"`
	Simulation *quantum.Simulation `json:"simulation,omitempty" msgpack:"simulation,omitempty"`
	Error      string              `json:"error,omitempty" msgpack:"error,omitempty"`
}

type liveCodec struct {
	name        string
	messageType websocket.MessageType
	marshal     func(v interface{}) ([]byte, error)
	unmarshal   func(data []byte, v interface{}) error
}

func codecFor(subprotocol string) liveCodec {
	if subprotocol == SubprotocolMsgpack {
		return liveCodec{
			name:        SubprotocolMsgpack,
			messageType: websocket.MessageBinary,
			marshal:     msgpackMarshal,
			unmarshal:   msgpackUnmarshal,
		}
	}
	return liveCodec{
		name:        SubprotocolJSON,
		messageType: websocket.MessageText,
		marshal:     json.Marshal,
		unmarshal:   json.Unmarshal,
	}
}

// msgpackMarshal falls back to json tags for types that carry no msgpack tags.
func msgpackMarshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func msgpackUnmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// HandleLive handles GET /api/quantum/live
func (l *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{SubprotocolJSON, SubprotocolMsgpack},
		OriginPatterns: l.originPatterns,
	})
	if err != nil {
		l.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended unexpectedly")

	conn.SetReadLimit(liveReadLimit)

	codec := codecFor(conn.Subprotocol())
	sessionID := uuid.New().String()
	log := l.log.With().Str("session_id", sessionID).Str("codec", codec.name).Logger()
	log.Info().Msg("Live session opened")

	ctx := r.Context()
	var sequence uint64
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				log.Info().Uint64("frames", sequence).Msg("Live session closed")
			} else if ctx.Err() != nil {
				log.Debug().Msg("Live session cancelled")
			} else {
				log.Warn().Err(err).Msg("Unexpected WebSocket read error")
			}
			return
		}

		sequence++
		frame := l.evaluate(codec, msgType, data)
		frame.SessionID = sessionID
		frame.Sequence = sequence
		if frame.Error != "" {
			log.Debug().Uint64("sequence", sequence).Str("error", frame.Error).Msg("Rejected live frame")
		}

		if err := l.write(ctx, conn, codec, frame); err != nil {
			log.Warn().Err(err).Msg("Failed to write live frame")
			return
		}
	}
}

// evaluate turns one inbound frame into a reply. Errors are reported in the
// reply so the session survives bad input.
func (l *LiveHandler) evaluate(codec liveCodec, msgType websocket.MessageType, data []byte) LiveFrame {
	if msgType != codec.messageType {
		return LiveFrame{Error: fmt.Sprintf("expected %s frames for subprotocol %s", codec.messageType, codec.name)}
	}

	var req MeasurementRequest
	if err := codec.unmarshal(data, &req); err != nil {
		return LiveFrame{Error: fmt.Sprintf("invalid frame: %v", err)}
	}
	if err := validate.Struct(&req); err != nil {
		return LiveFrame{Error: err.Error()}
	}

	sel, err := req.selection()
	if err != nil {
		return LiveFrame{Error: err.Error()}
	}

	sim, err := l.evaluator.Simulate(sel, req.A.orientation(), req.B.orientation())
	if err != nil {
		return LiveFrame{State: sel.String(), Error: err.Error()}
	}
	return LiveFrame{State: sel.String(), Simulation: &sim}
}

func (l *LiveHandler) write(ctx context.Context, conn *websocket.Conn, codec liveCodec, frame LiveFrame) error {
	data, err := codec.marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, liveWriteWait)
	defer cancel()

	return conn.Write(writeCtx, codec.messageType, data)
}
