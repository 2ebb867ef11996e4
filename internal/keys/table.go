package keys

import (
	"fmt"
	"strings"
)

// Win32 virtual-key codes as delivered in KBDLLHOOKSTRUCT.vkCode.
const (
	vkLButton           = 0x01
	vkRButton           = 0x02
	vkCancel            = 0x03
	vkMButton           = 0x04
	vkXButton1          = 0x05
	vkXButton2          = 0x06
	vkBack              = 0x08
	vkTab               = 0x09
	vkClear             = 0x0C
	vkReturn            = 0x0D
	vkShift             = 0x10
	vkControl           = 0x11
	vkMenu              = 0x12
	vkPause             = 0x13
	vkCapital           = 0x14
	vkKana              = 0x15
	vkImeOn             = 0x16
	vkJunja             = 0x17
	vkFinal             = 0x18
	vkHanja             = 0x19
	vkImeOff            = 0x1A
	vkEscape            = 0x1B
	vkConvert           = 0x1C
	vkNonConvert        = 0x1D
	vkAccept            = 0x1E
	vkModeChange        = 0x1F
	vkSpace             = 0x20
	vkPrior             = 0x21
	vkNext              = 0x22
	vkEnd               = 0x23
	vkHome              = 0x24
	vkLeft              = 0x25
	vkUp                = 0x26
	vkRight             = 0x27
	vkDown              = 0x28
	vkSelect            = 0x29
	vkPrint             = 0x2A
	vkExecute           = 0x2B
	vkSnapshot          = 0x2C
	vkInsert            = 0x2D
	vkDelete            = 0x2E
	vkHelp              = 0x2F
	vk0                 = 0x30
	vkA                 = 0x41
	vkLWin              = 0x5B
	vkRWin              = 0x5C
	vkApps              = 0x5D
	vkSleep             = 0x5F
	vkNumPad0           = 0x60
	vkMultiply          = 0x6A
	vkAdd               = 0x6B
	vkSeparator         = 0x6C
	vkSubtract          = 0x6D
	vkDecimal           = 0x6E
	vkDivide            = 0x6F
	vkF1                = 0x70
	vkNumLock           = 0x90
	vkScroll            = 0x91
	vkLShift            = 0xA0
	vkRShift            = 0xA1
	vkLControl          = 0xA2
	vkRControl          = 0xA3
	vkLMenu             = 0xA4
	vkRMenu             = 0xA5
	vkBrowserBack       = 0xA6
	vkBrowserForward    = 0xA7
	vkBrowserRefresh    = 0xA8
	vkBrowserStop       = 0xA9
	vkBrowserSearch     = 0xAA
	vkBrowserFavorites  = 0xAB
	vkBrowserHome       = 0xAC
	vkVolumeMute        = 0xAD
	vkVolumeDown        = 0xAE
	vkVolumeUp          = 0xAF
	vkMediaNextTrack    = 0xB0
	vkMediaPrevTrack    = 0xB1
	vkMediaStop         = 0xB2
	vkMediaPlayPause    = 0xB3
	vkLaunchMail        = 0xB4
	vkLaunchMediaSelect = 0xB5
	vkLaunchApp1        = 0xB6
	vkLaunchApp2        = 0xB7
	vkOem1              = 0xBA
	vkOemPlus           = 0xBB
	vkOemComma          = 0xBC
	vkOemMinus          = 0xBD
	vkOemPeriod         = 0xBE
	vkOem2              = 0xBF
	vkOem3              = 0xC0
	vkOem4              = 0xDB
	vkOem5              = 0xDC
	vkOem6              = 0xDD
	vkOem7              = 0xDE
	vkOem8              = 0xDF
	vkOem102            = 0xE2
	vkProcessKey        = 0xE5
	vkPacket            = 0xE7
	vkAttn              = 0xF6
	vkCrSel             = 0xF7
	vkExSel             = 0xF8
	vkErEof             = 0xF9
	vkPlay              = 0xFA
	vkZoom              = 0xFB
	vkPa1               = 0xFD
	vkOemClear          = 0xFE
)

type scan struct {
	code     uint32
	extended bool
}

type extMode uint8

const (
	anyExt extMode = iota
	plainOnly
	extOnly
)

type mapping struct {
	key  Keys
	code uint32
	ext  extMode
}

type keyInfo struct {
	name    string
	primary scan
}

var (
	keyInfos    [keysCount]keyInfo
	decodeTable = make(map[scan]Keys, 320)
	nameTable   = make(map[string]Keys, 200)
)

// staticNames holds canonical names for keys outside the generated ranges.
var staticNames = map[Keys]string{
	VkNone:   "None",
	VkRigelA: "RigelA",
	VkCtrl:   "Ctrl",
	VkShift:  "Shift",
	VkAlt:    "Alt",
	VkWin:    "Win",

	VkNumPadDiv:     "NumPadDiv",
	VkNumPadMul:     "NumPadMul",
	VkNumPadSub:     "NumPadSub",
	VkNumPadAdd:     "NumPadAdd",
	VkNumPadDecimal: "NumPadDecimal",
	VkNumPadEnter:   "NumPadEnter",

	VkEscape:    "Esc",
	VkReturn:    "Enter",
	VkTab:       "Tab",
	VkBack:      "Backspace",
	VkSpace:     "Space",
	VkPause:     "Pause",
	VkSnapshot:  "PrintScreen",
	VkHome:      "Home",
	VkEnd:       "End",
	VkPrior:     "PageUp",
	VkNext:      "PageDown",
	VkLeft:      "Left",
	VkUp:        "Up",
	VkRight:     "Right",
	VkDown:      "Down",
	VkDelete:    "Delete",
	VkClear:     "Clear",
	VkHelp:      "Help",
	VkSelect:    "Select",
	VkPrint:     "Print",
	VkExecute:   "Execute",
	VkApps:      "Apps",
	VkSleep:     "Sleep",
	VkSeparator: "Separator",
	VkNumLock:   "NumLock",
	VkScroll:    "ScrollLock",

	VkOem1:      "Semicolon",
	VkOemPlus:   "Equals",
	VkOemComma:  "Comma",
	VkOemMinus:  "Minus",
	VkOemPeriod: "Period",
	VkOem2:      "Slash",
	VkOem3:      "Backquote",
	VkOem4:      "LeftBracket",
	VkOem5:      "Backslash",
	VkOem6:      "RightBracket",
	VkOem7:      "Quote",
	VkOem8:      "Oem8",
	VkOem102:    "Oem102",
	VkOemClear:  "OemClear",

	VkBrowserBack:       "BrowserBack",
	VkBrowserForward:    "BrowserForward",
	VkBrowserRefresh:    "BrowserRefresh",
	VkBrowserStop:       "BrowserStop",
	VkBrowserSearch:     "BrowserSearch",
	VkBrowserFavorites:  "BrowserFavorites",
	VkBrowserHome:       "BrowserHome",
	VkVolumeMute:        "VolumeMute",
	VkVolumeDown:        "VolumeDown",
	VkVolumeUp:          "VolumeUp",
	VkMediaNextTrack:    "MediaNext",
	VkMediaPrevTrack:    "MediaPrev",
	VkMediaStop:         "MediaStop",
	VkMediaPlayPause:    "MediaPlayPause",
	VkLaunchMail:        "LaunchMail",
	VkLaunchMediaSelect: "LaunchMedia",
	VkLaunchApp1:        "LaunchApp1",
	VkLaunchApp2:        "LaunchApp2",

	VkKana:       "Kana",
	VkImeOn:      "ImeOn",
	VkJunja:      "Junja",
	VkFinal:      "Final",
	VkHanja:      "Hanja",
	VkImeOff:     "ImeOff",
	VkConvert:    "Convert",
	VkNonConvert: "NonConvert",
	VkAccept:     "Accept",
	VkModeChange: "ModeChange",
	VkProcessKey: "ProcessKey",

	VkLButton:  "LButton",
	VkRButton:  "RButton",
	VkCancel:   "Cancel",
	VkMButton:  "MButton",
	VkXButton1: "XButton1",
	VkXButton2: "XButton2",
	VkPacket:   "Packet",
	VkAttn:     "Attn",
	VkCrSel:    "CrSel",
	VkExSel:    "ExSel",
	VkErEof:    "ErEof",
	VkPlay:     "Play",
	VkZoom:     "Zoom",
	VkPa1:      "Pa1",
}

// aliases are accepted by LookupName in addition to canonical names.
var aliases = map[string]Keys{
	"ESCAPE":    VkEscape,
	"RETURN":    VkReturn,
	"CONTROL":   VkCtrl,
	"MENU":      VkAlt,
	"SUPER":     VkWin,
	"DEL":       VkDelete,
	"PGUP":      VkPrior,
	"PGDN":      VkNext,
	"PRIOR":     VkPrior,
	"NEXT":      VkNext,
	"BACK":      VkBack,
	"SNAPSHOT":  VkSnapshot,
	"SCROLL":    VkScroll,
	"INSERT":    VkRigelA,
	"CAPSLOCK":  VkRigelA,
	"NUMPAD/":   VkNumPadDiv,
	"NUMPAD*":   VkNumPadMul,
	"NUMPAD-":   VkNumPadSub,
	"NUMPAD+":   VkNumPadAdd,
	"NUMPAD.":   VkNumPadDecimal,
	"NUMPADDOT": VkNumPadDecimal,
}

// mappings lists every (code, extended) pair the hook can deliver. The first
// mapping of a key is its primary pair. Several pairs may decode to the same
// key: left/right modifier variants collapse, Insert and Caps Lock both act as
// RigelA, and the keypad resolves to the same NumPad symbol whether Num Lock
// is on (VK_NUMPADn) or off (non-extended navigation codes).
var mappings = []mapping{
	{VkRigelA, vkInsert, plainOnly},
	{VkRigelA, vkInsert, extOnly},
	{VkRigelA, vkCapital, anyExt},

	{VkCtrl, vkLControl, anyExt},
	{VkCtrl, vkRControl, anyExt},
	{VkCtrl, vkControl, anyExt},
	{VkShift, vkLShift, anyExt},
	{VkShift, vkRShift, anyExt},
	{VkShift, vkShift, anyExt},
	{VkAlt, vkLMenu, anyExt},
	{VkAlt, vkRMenu, anyExt},
	{VkAlt, vkMenu, anyExt},
	{VkWin, vkLWin, anyExt},
	{VkWin, vkRWin, anyExt},

	{VkNumPad1, vkEnd, plainOnly},
	{VkNumPad2, vkDown, plainOnly},
	{VkNumPad3, vkNext, plainOnly},
	{VkNumPad4, vkLeft, plainOnly},
	{VkNumPad5, vkClear, plainOnly},
	{VkNumPad6, vkRight, plainOnly},
	{VkNumPad7, vkHome, plainOnly},
	{VkNumPad8, vkUp, plainOnly},
	{VkNumPad9, vkPrior, plainOnly},
	{VkNumPadDecimal, vkDelete, plainOnly},
	{VkNumPadDiv, vkDivide, anyExt},
	{VkNumPadMul, vkMultiply, anyExt},
	{VkNumPadSub, vkSubtract, anyExt},
	{VkNumPadAdd, vkAdd, anyExt},
	{VkNumPadDecimal, vkDecimal, anyExt},
	{VkNumPadEnter, vkReturn, extOnly},

	{VkEnd, vkEnd, extOnly},
	{VkDown, vkDown, extOnly},
	{VkNext, vkNext, extOnly},
	{VkLeft, vkLeft, extOnly},
	{VkClear, vkClear, extOnly},
	{VkRight, vkRight, extOnly},
	{VkHome, vkHome, extOnly},
	{VkUp, vkUp, extOnly},
	{VkPrior, vkPrior, extOnly},
	{VkDelete, vkDelete, extOnly},

	{VkReturn, vkReturn, plainOnly},
	{VkEscape, vkEscape, anyExt},
	{VkTab, vkTab, anyExt},
	{VkBack, vkBack, anyExt},
	{VkSpace, vkSpace, anyExt},
	{VkPause, vkPause, anyExt},
	{VkSnapshot, vkSnapshot, anyExt},
	{VkHelp, vkHelp, anyExt},
	{VkSelect, vkSelect, anyExt},
	{VkPrint, vkPrint, anyExt},
	{VkExecute, vkExecute, anyExt},
	{VkApps, vkApps, anyExt},
	{VkSleep, vkSleep, anyExt},
	{VkSeparator, vkSeparator, anyExt},
	{VkNumLock, vkNumLock, anyExt},
	{VkScroll, vkScroll, anyExt},

	{VkOem1, vkOem1, anyExt},
	{VkOemPlus, vkOemPlus, anyExt},
	{VkOemComma, vkOemComma, anyExt},
	{VkOemMinus, vkOemMinus, anyExt},
	{VkOemPeriod, vkOemPeriod, anyExt},
	{VkOem2, vkOem2, anyExt},
	{VkOem3, vkOem3, anyExt},
	{VkOem4, vkOem4, anyExt},
	{VkOem5, vkOem5, anyExt},
	{VkOem6, vkOem6, anyExt},
	{VkOem7, vkOem7, anyExt},
	{VkOem8, vkOem8, anyExt},
	{VkOem102, vkOem102, anyExt},
	{VkOemClear, vkOemClear, anyExt},

	{VkBrowserBack, vkBrowserBack, anyExt},
	{VkBrowserForward, vkBrowserForward, anyExt},
	{VkBrowserRefresh, vkBrowserRefresh, anyExt},
	{VkBrowserStop, vkBrowserStop, anyExt},
	{VkBrowserSearch, vkBrowserSearch, anyExt},
	{VkBrowserFavorites, vkBrowserFavorites, anyExt},
	{VkBrowserHome, vkBrowserHome, anyExt},
	{VkVolumeMute, vkVolumeMute, anyExt},
	{VkVolumeDown, vkVolumeDown, anyExt},
	{VkVolumeUp, vkVolumeUp, anyExt},
	{VkMediaNextTrack, vkMediaNextTrack, anyExt},
	{VkMediaPrevTrack, vkMediaPrevTrack, anyExt},
	{VkMediaStop, vkMediaStop, anyExt},
	{VkMediaPlayPause, vkMediaPlayPause, anyExt},
	{VkLaunchMail, vkLaunchMail, anyExt},
	{VkLaunchMediaSelect, vkLaunchMediaSelect, anyExt},
	{VkLaunchApp1, vkLaunchApp1, anyExt},
	{VkLaunchApp2, vkLaunchApp2, anyExt},

	{VkKana, vkKana, anyExt},
	{VkImeOn, vkImeOn, anyExt},
	{VkJunja, vkJunja, anyExt},
	{VkFinal, vkFinal, anyExt},
	{VkHanja, vkHanja, anyExt},
	{VkImeOff, vkImeOff, anyExt},
	{VkConvert, vkConvert, anyExt},
	{VkNonConvert, vkNonConvert, anyExt},
	{VkAccept, vkAccept, anyExt},
	{VkModeChange, vkModeChange, anyExt},
	{VkProcessKey, vkProcessKey, anyExt},

	{VkLButton, vkLButton, anyExt},
	{VkRButton, vkRButton, anyExt},
	{VkCancel, vkCancel, anyExt},
	{VkMButton, vkMButton, anyExt},
	{VkXButton1, vkXButton1, anyExt},
	{VkXButton2, vkXButton2, anyExt},
	{VkPacket, vkPacket, anyExt},
	{VkAttn, vkAttn, anyExt},
	{VkCrSel, vkCrSel, anyExt},
	{VkExSel, vkExSel, anyExt},
	{VkErEof, vkErEof, anyExt},
	{VkPlay, vkPlay, anyExt},
	{VkZoom, vkZoom, anyExt},
	{VkPa1, vkPa1, anyExt},
}

// generatedMappings covers the contiguous ranges: top-row digits, letters,
// function keys and the Num Lock keypad digits.
func generatedMappings() []mapping {
	out := make([]mapping, 0, 10+26+24+10)
	for i := range 10 {
		out = append(out, mapping{Vk0 + Keys(i), vk0 + uint32(i), anyExt})
	}
	for i := range 26 {
		out = append(out, mapping{VkA + Keys(i), vkA + uint32(i), anyExt})
	}
	for i := range 24 {
		out = append(out, mapping{VkF1 + Keys(i), vkF1 + uint32(i), anyExt})
	}
	for i := range 10 {
		out = append(out, mapping{VkNumPad0 + Keys(i), vkNumPad0 + uint32(i), anyExt})
	}
	return out
}

func generatedNames() map[Keys]string {
	out := make(map[Keys]string, 10+26+24+10)
	for i := range 10 {
		out[Vk0+Keys(i)] = fmt.Sprintf("%d", i)
		out[VkNumPad0+Keys(i)] = fmt.Sprintf("NumPad%d", i)
	}
	for i := range 26 {
		out[VkA+Keys(i)] = string(rune('A' + i))
	}
	for i := range 24 {
		out[VkF1+Keys(i)] = fmt.Sprintf("F%d", i+1)
	}
	return out
}

func init() {
	names := generatedNames()
	for k, n := range staticNames {
		names[k] = n
	}
	for k := VkNone; k < keysCount; k++ {
		name, ok := names[k]
		if !ok {
			panic(fmt.Sprintf("keys: missing name for key %d", k))
		}
		keyInfos[k].name = name
		nameTable[strings.ToUpper(name)] = k
	}
	for alias, k := range aliases {
		nameTable[alias] = k
	}

	seenPrimary := make(map[Keys]bool, keysCount)
	for _, m := range append(generatedMappings(), mappings...) {
		switch m.ext {
		case anyExt:
			decodeTable[scan{m.code, false}] = m.key
			decodeTable[scan{m.code, true}] = m.key
		case plainOnly:
			decodeTable[scan{m.code, false}] = m.key
		case extOnly:
			decodeTable[scan{m.code, true}] = m.key
		}
		if !seenPrimary[m.key] {
			seenPrimary[m.key] = true
			keyInfos[m.key].primary = scan{code: m.code, extended: m.ext == extOnly}
		}
	}
}
