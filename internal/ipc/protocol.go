// Package ipc accepts semantic events from other processes over a per-user
// named pipe. Each connection carries one JSON request line and receives one
// JSON response line.
//
//	{"op":"should_ignore","fingerprint":"lock:NumLock","window_ms":300} -> {"ok":true,"ignored":false}
//	{"op":"publish","event":{"kind":"custom","name":"ocr","payload":"done"}} -> {"ok":true}
//	{"op":"last_pressed_key"} -> {"ok":true,"key":"Down"}
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/xyproto/env/v2"

	"rigela/internal/eventcore"
	"rigela/internal/keys"
	"rigela/internal/userutil"
)

// ErrUnsupported is returned where named pipes are unavailable.
var ErrUnsupported = errors.New("ipc: named pipes are not supported on this platform")

// Request operations.
const (
	OpShouldIgnore   = "should_ignore"
	OpPublish        = "publish"
	OpLastPressedKey = "last_pressed_key"
)

const (
	defaultPipePrefix = `\\.\pipe\RigelA-`
	// EnvPipeName overrides DefaultPipeName when it matches the RigelA pattern.
	EnvPipeName   = "RIGELA_PIPE"
	maxFrameBytes = 16 * 1024
	maxWindow     = time.Minute
)

var pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\RigelA-[a-z0-9._-]{1,128}$`)

// Request is one client call.
type Request struct {
	Op          string        `json:"op"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	WindowMS    int64         `json:"window_ms,omitempty"`
	Event       *EventPayload `json:"event,omitempty"`
}

// EventPayload is the wire form of eventcore.Event.
type EventPayload struct {
	Kind    string `json:"kind"`
	Key     string `json:"key,omitempty"`
	VK      uint16 `json:"vk,omitempty"`
	Name    string `json:"name,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Response is the server reply.
type Response struct {
	OK      bool   `json:"ok"`
	Ignored bool   `json:"ignored"`
	Key     string `json:"key,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Events is the event hub side of the server.
type Events interface {
	ShouldIgnore(fingerprint string, window time.Duration) bool
	Publish(ev eventcore.Event)
}

// KeySource reports the last non-modifier key passed through.
type KeySource interface {
	LastPressedKey() keys.Keys
}

// DefaultPipeName returns RIGELA_PIPE when it is a valid RigelA pipe name,
// otherwise `\\.\pipe\RigelA-<user>`.
func DefaultPipeName() string {
	if v, ok := trustedPipeNameFromEnv(); ok {
		return v
	}
	return userutil.ObjectName(defaultPipePrefix)
}

func trustedPipeNameFromEnv() (string, bool) {
	value := strings.TrimSpace(env.Str(EnvPipeName))
	if value == "" {
		return "", false
	}
	if !pipeNamePattern.MatchString(value) {
		slog.Warn("[ipc] RIGELA_PIPE rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

// EventFromPayload validates p and converts it to an eventcore.Event.
func EventFromPayload(p EventPayload) (eventcore.Event, error) {
	kind, err := eventcore.ParseKind(p.Kind)
	if err != nil {
		return eventcore.Event{}, err
	}
	ev := eventcore.Event{Kind: kind, VK: p.VK, Name: p.Name, Payload: p.Payload}
	if p.Key != "" {
		k, ok := keys.LookupName(p.Key)
		if !ok {
			return eventcore.Event{}, fmt.Errorf("unknown key %q", p.Key)
		}
		ev.Key = k
	}
	switch kind {
	case eventcore.KindCursorKey, eventcore.KindLockKey:
		if ev.Key == keys.VkNone {
			return eventcore.Event{}, fmt.Errorf("%s event requires a key", kind)
		}
	case eventcore.KindTalent, eventcore.KindCustom:
		if strings.TrimSpace(ev.Name) == "" {
			return eventcore.Event{}, fmt.Errorf("%s event requires a name", kind)
		}
	}
	return ev, nil
}

// PayloadFromEvent is the inverse of EventFromPayload.
func PayloadFromEvent(ev eventcore.Event) EventPayload {
	p := EventPayload{Kind: ev.Kind.String(), VK: ev.VK, Name: ev.Name, Payload: ev.Payload}
	if ev.Key != keys.VkNone {
		p.Key = ev.Key.String()
	}
	return p
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Op = strings.TrimSpace(req.Op)
	if req.Op == "" {
		return Request{}, errors.New("op is required")
	}
	return req, nil
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// writeFrame writes v as one JSON line.
func writeFrame(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

// readFrame reads one newline-terminated frame of at most maxBytes. A final
// frame without delimiter is accepted at EOF.
func readFrame(reader *bufio.Reader, maxBytes int) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxBytes)
	}
	if errors.Is(err, io.EOF) {
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func newFrameReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, maxFrameBytes+1)
}
