package keys

import (
	"slices"
	"testing"
)

func TestModifiersCanonicalOrder(t *testing.T) {
	m := Modifiers(VkWin, VkA, VkShift, VkRigelA)
	if got, want := m.Keys(), []Keys{VkRigelA, VkShift, VkWin}; !slices.Equal(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	if got := m.String(); got != "RigelA+Shift+Win" {
		t.Fatalf("String() = %q", got)
	}
	if m.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", m.Count())
	}
}

func TestModifierSetOperations(t *testing.T) {
	m := ModRigelA.With(ModCtrl)
	if !m.Has(ModCtrl) || !m.Has(ModRigelA|ModCtrl) || m.Has(ModAlt) {
		t.Fatalf("Has() mismatch for %v", m)
	}
	if !ModNone.Empty() || m.Empty() {
		t.Fatal("Empty() mismatch")
	}
	if ModNone.String() != "" {
		t.Fatalf("ModNone.String() = %q, want empty", ModNone.String())
	}
	if ModifierOf(VkA) != ModNone || ModifierOf(VkAlt) != ModAlt {
		t.Fatal("ModifierOf mismatch")
	}
}
