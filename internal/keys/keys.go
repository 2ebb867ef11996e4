// Package keys defines the closed set of symbolic keys the screen reader
// understands and the total mapping from Win32 low-level hook codes onto it.
package keys

import "strings"

// Keys is a symbolic key identity. The zero value is VkNone.
type Keys uint16

const (
	VkNone Keys = iota

	// VkRigelA is the screen reader's primary modifier (Insert or Caps Lock).
	VkRigelA
	VkCtrl
	VkShift
	VkAlt
	VkWin

	Vk0
	Vk1
	Vk2
	Vk3
	Vk4
	Vk5
	Vk6
	Vk7
	Vk8
	Vk9

	VkA
	VkB
	VkC
	VkD
	VkE
	VkF
	VkG
	VkH
	VkI
	VkJ
	VkK
	VkL
	VkM
	VkN
	VkO
	VkP
	VkQ
	VkR
	VkS
	VkT
	VkU
	VkV
	VkW
	VkX
	VkY
	VkZ

	VkF1
	VkF2
	VkF3
	VkF4
	VkF5
	VkF6
	VkF7
	VkF8
	VkF9
	VkF10
	VkF11
	VkF12
	VkF13
	VkF14
	VkF15
	VkF16
	VkF17
	VkF18
	VkF19
	VkF20
	VkF21
	VkF22
	VkF23
	VkF24

	VkNumPad0
	VkNumPad1
	VkNumPad2
	VkNumPad3
	VkNumPad4
	VkNumPad5
	VkNumPad6
	VkNumPad7
	VkNumPad8
	VkNumPad9
	VkNumPadDiv
	VkNumPadMul
	VkNumPadSub
	VkNumPadAdd
	VkNumPadDecimal
	VkNumPadEnter

	VkEscape
	VkReturn
	VkTab
	VkBack
	VkSpace
	VkPause
	VkSnapshot
	VkHome
	VkEnd
	VkPrior
	VkNext
	VkLeft
	VkUp
	VkRight
	VkDown
	VkDelete
	VkClear
	VkHelp
	VkSelect
	VkPrint
	VkExecute
	VkApps
	VkSleep
	VkSeparator
	VkNumLock
	VkScroll

	VkOem1
	VkOemPlus
	VkOemComma
	VkOemMinus
	VkOemPeriod
	VkOem2
	VkOem3
	VkOem4
	VkOem5
	VkOem6
	VkOem7
	VkOem8
	VkOem102
	VkOemClear

	VkBrowserBack
	VkBrowserForward
	VkBrowserRefresh
	VkBrowserStop
	VkBrowserSearch
	VkBrowserFavorites
	VkBrowserHome
	VkVolumeMute
	VkVolumeDown
	VkVolumeUp
	VkMediaNextTrack
	VkMediaPrevTrack
	VkMediaStop
	VkMediaPlayPause
	VkLaunchMail
	VkLaunchMediaSelect
	VkLaunchApp1
	VkLaunchApp2

	VkKana
	VkImeOn
	VkJunja
	VkFinal
	VkHanja
	VkImeOff
	VkConvert
	VkNonConvert
	VkAccept
	VkModeChange
	VkProcessKey

	VkLButton
	VkRButton
	VkCancel
	VkMButton
	VkXButton1
	VkXButton2
	VkPacket
	VkAttn
	VkCrSel
	VkExSel
	VkErEof
	VkPlay
	VkZoom
	VkPa1

	keysCount
)

// Decode maps a raw hook transition onto its symbolic key. It is total:
// every unknown pair resolves to VkNone.
func Decode(code uint32, extended bool) Keys {
	if k, ok := decodeTable[scan{code: code, extended: extended}]; ok {
		return k
	}
	return VkNone
}

// Scan returns the primary (code, extended) pair that decodes to k.
// ok is false for VkNone and for keys outside the enumeration.
func (k Keys) Scan() (code uint32, extended bool, ok bool) {
	if !k.Valid() || k == VkNone {
		return 0, false, false
	}
	s := keyInfos[k].primary
	return s.code, s.extended, true
}

// Valid reports whether k belongs to the enumeration.
func (k Keys) Valid() bool {
	return k < keysCount
}

// String returns the canonical short name, e.g. "RigelA", "A", "NumPad5".
func (k Keys) String() string {
	if !k.Valid() {
		return keyInfos[VkNone].name
	}
	return keyInfos[k].name
}

// IsModifier reports whether k contributes to a chord's modifier set.
func (k Keys) IsModifier() bool {
	return ModifierOf(k) != ModNone
}

// IsCursorKey reports whether k moves the caret in an edit control.
func (k Keys) IsCursorKey() bool {
	switch k {
	case VkLeft, VkUp, VkRight, VkDown, VkHome, VkEnd, VkPrior, VkNext:
		return true
	}
	return false
}

// IsLockKey reports whether k toggles a keyboard lock state.
// Caps Lock is absent because it decodes to VkRigelA.
func (k Keys) IsLockKey() bool {
	return k == VkNumLock || k == VkScroll
}

// MarshalText encodes k as its canonical name.
func (k Keys) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a key name; unknown names decode to VkNone.
func (k *Keys) UnmarshalText(text []byte) error {
	*k = FromName(string(text))
	return nil
}

// FromName resolves a key name case-insensitively. Unknown names resolve
// to VkNone.
func FromName(name string) Keys {
	k, _ := LookupName(name)
	return k
}

// LookupName resolves a key name case-insensitively and reports whether the
// name is known. "None" is known and resolves to VkNone.
func LookupName(name string) (Keys, bool) {
	k, ok := nameTable[strings.ToUpper(strings.TrimSpace(name))]
	return k, ok
}

// All returns every key of the enumeration except VkNone, in declaration order.
func All() []Keys {
	out := make([]Keys, 0, int(keysCount)-1)
	for k := VkNone + 1; k < keysCount; k++ {
		out = append(out, k)
	}
	return out
}
