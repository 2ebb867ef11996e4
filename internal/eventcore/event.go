package eventcore

import (
	"fmt"

	"rigela/internal/keys"
)

// Kind discriminates Event payloads.
type Kind uint8

const (
	// KindCursorKey reports a caret-moving key passed through to the
	// focused application.
	KindCursorKey Kind = iota + 1
	// KindLockKey reports a lock toggle (Num Lock, Scroll Lock).
	KindLockKey
	// KindTalent reports that a talent was dispatched.
	KindTalent
	// KindCustom carries an application-defined payload.
	KindCustom
)

var kindNames = map[Kind]string{
	KindCursorKey: "cursor_key",
	KindLockKey:   "lock_key",
	KindTalent:    "talent",
	KindCustom:    "custom",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves the String form of a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Event is a notification fanned out to observers.
type Event struct {
	Kind Kind
	// Key is set for KindCursorKey and KindLockKey.
	Key keys.Keys
	// VK is the raw virtual-key code for KindLockKey.
	VK uint16
	// Name identifies the talent for KindTalent or the topic for KindCustom.
	Name string
	// Payload is the chord for KindTalent and free-form text for KindCustom.
	Payload string
}

// CursorKey builds a cursor-key event.
func CursorKey(k keys.Keys) Event {
	return Event{Kind: KindCursorKey, Key: k}
}

// LockKey builds a lock-key event.
func LockKey(k keys.Keys, vk uint16) Event {
	return Event{Kind: KindLockKey, Key: k, VK: vk}
}

// TalentPerformed builds a dispatch notification.
func TalentPerformed(id, chord string) Event {
	return Event{Kind: KindTalent, Name: id, Payload: chord}
}

// Fingerprint is a dedup key for the event, e.g. "lock_key:NumLock".
func (e Event) Fingerprint() string {
	switch e.Kind {
	case KindCursorKey, KindLockKey:
		return e.Kind.String() + ":" + e.Key.String()
	case KindTalent:
		return e.Kind.String() + ":" + e.Name
	default:
		return e.Kind.String() + ":" + e.Name + ":" + e.Payload
	}
}
