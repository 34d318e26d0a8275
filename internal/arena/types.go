// internal/arena/types.go
//
// Wire envelopes and per-session state for the arena protocol.
//
// Requests and responses are closed sets: a single struct per direction
// with a `type` tag, validated on decode so the dispatcher only ever sees
// the seven request kinds. This mirrors the tagged-enum protocol the bots
// speak and keeps exhaustive handling checkable in one switch.

package arena

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/pashneal/stourney-platform/internal/game"
)

// RequestType tags an inbound frame.
type RequestType string

const (
	ReqAuthenticate RequestType = "authenticate"
	ReqDebug        RequestType = "debug"
	ReqHeartbeat    RequestType = "heartbeat"
	ReqReconnect    RequestType = "reconnect"
	ReqInitialize   RequestType = "initialize"
	ReqUpdates      RequestType = "updates"
	ReqGameOver     RequestType = "gameOver"
)

// Request is one inbound frame. Only the fields relevant to Type are set.
type Request struct {
	Type RequestType `json:"type"`

	Secret       string           `json:"secret,omitempty"`       // authenticate
	Text         string           `json:"text,omitempty"`         // debug
	ID           string           `json:"id,omitempty"`           // reconnect
	Info         *game.ClientInfo `json:"info,omitempty"`         // initialize
	Updates      []game.Update    `json:"updates,omitempty"`      // updates
	TotalUpdates int              `json:"totalUpdates,omitempty"` // gameOver
}

// DecodeRequest parses a frame and rejects unknown or missing type tags.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("malformed frame: %w", err)
	}
	switch req.Type {
	case ReqAuthenticate, ReqDebug, ReqHeartbeat, ReqReconnect,
		ReqInitialize, ReqUpdates, ReqGameOver:
		return req, nil
	default:
		return Request{}, fmt.Errorf("unknown request type %q", req.Type)
	}
}

// ResponseType tags an outbound frame.
type ResponseType string

const (
	RespAuthenticated ResponseType = "authenticated"
	RespInitialized   ResponseType = "initialized"
	RespReconnected   ResponseType = "reconnected"
	RespInfo          ResponseType = "info"
	RespError         ResponseType = "error"
	RespTimeout       ResponseType = "timeout"
)

// Status distinguishes a positive from a negative protocol outcome.
// Negative outcomes are normal responses, not transport errors.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Response is one outbound frame.
type Response struct {
	Type   ResponseType `json:"type"`
	Status Status       `json:"status,omitempty"`
	Reason string       `json:"reason,omitempty"`
	ID     string       `json:"id,omitempty"`  // initialized success
	URL    string       `json:"url,omitempty"` // initialized success
	Text   string       `json:"text,omitempty"`
}

func AuthSuccess() Response {
	return Response{Type: RespAuthenticated, Status: StatusSuccess}
}

func AuthFailure(reason string) Response {
	return Response{Type: RespAuthenticated, Status: StatusFailure, Reason: reason}
}

func InitSuccess(id uuid.UUID, url string) Response {
	return Response{Type: RespInitialized, Status: StatusSuccess, ID: id.String(), URL: url}
}

func InitFailure(reason string) Response {
	return Response{Type: RespInitialized, Status: StatusFailure, Reason: reason}
}

func ReconnectSuccess() Response {
	return Response{Type: RespReconnected, Status: StatusSuccess}
}

func ReconnectFailure(reason string) Response {
	return Response{Type: RespReconnected, Status: StatusFailure, Reason: reason}
}

func Info(text string) Response {
	return Response{Type: RespInfo, Text: text}
}

func Error(text string) Response {
	return Response{Type: RespError, Text: text}
}

func Timeout() Response {
	return Response{Type: RespTimeout}
}

// SessionState is the per-session authority snapshot. A copy is owned by
// the connection and re-published to the session registry after every
// request/response cycle.
//
// Progress is only meaningful once Initialized is true; it caches how many
// update records have been recorded for the session and is recomputed from
// the registry's ledger length on reconnect, never from storage.
type SessionState struct {
	Authenticated bool
	Initialized   bool
	ID            uuid.UUID
	Progress      int
}

// NewSessionState returns the state for a fresh connection: both flags
// false and a newly minted session id already registered with storage.
func NewSessionState(id uuid.UUID) SessionState {
	return SessionState{ID: id}
}
