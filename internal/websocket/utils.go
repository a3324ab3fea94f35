package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadEnvelope reads one message under a read deadline, decodes the
// action envelope, and returns the raw bytes for action-specific
// decoding.
func ReadEnvelope(conn *websocket.Conn) (RequestEnvelope, []byte, error) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return RequestEnvelope{}, nil, err
	}
	var envelope RequestEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return RequestEnvelope{}, nil, err
	}
	return envelope, raw, nil
}
