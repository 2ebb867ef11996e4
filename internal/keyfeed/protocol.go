// Package keyfeed streams raw key transitions, dispatched talents and
// warnings to a single local WebSocket client, such as a hotkey-capture UI.
//
// # Wire protocol
//
// All frames are JSON text messages.
//
// Client to server:
//
//	{"action":"subscribe","topics":["keys","talents"]}
//	{"action":"unsubscribe","topics":["log"]}
//
// Server to client, one per topic:
//
//	{"type":"key","key":"A","pressed":true}
//	{"type":"talent","id":"mouse.read.toggle","chord":"RigelA+M"}
//	{"type":"log","level":"WARN","message":"..."}
//	{"type":"error","message":"..."}
package keyfeed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"rigela/internal/keys"
)

// Topics a client may subscribe to.
const (
	TopicKeys    = "keys"
	TopicTalents = "talents"
	TopicLog     = "log"
)

var knownTopics = []string{TopicKeys, TopicTalents, TopicLog}

const (
	subscribeAction   = "subscribe"
	unsubscribeAction = "unsubscribe"
)

type subscribeMsg struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// KeyMessage reports one key transition.
type KeyMessage struct {
	Type    string `json:"type"`
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

// TalentMessage reports one dispatched talent.
type TalentMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Chord string `json:"chord"`
}

// LogMessage forwards one log record.
type LogMessage struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// IsTopic reports whether topic is one the hub publishes.
func IsTopic(topic string) bool {
	return slices.Contains(knownTopics, topic)
}

// EncodeKey builds the "key" frame for k.
func EncodeKey(k keys.Keys, pressed bool) ([]byte, error) {
	return json.Marshal(KeyMessage{Type: "key", Key: k.String(), Pressed: pressed})
}

// EncodeTalent builds the "talent" frame.
func EncodeTalent(id, chord string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("keyfeed: encode talent: id must not be empty")
	}
	return json.Marshal(TalentMessage{Type: "talent", ID: id, Chord: chord})
}

// EncodeLog builds the "log" frame.
func EncodeLog(level slog.Level, message string) ([]byte, error) {
	return json.Marshal(LogMessage{Type: "log", Level: level.String(), Message: message})
}
