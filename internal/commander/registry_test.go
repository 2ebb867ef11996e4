package commander

import (
	"context"
	"errors"
	"slices"
	"testing"

	"rigela/internal/combokey"
)

func noop(context.Context) error { return nil }

func TestRegistryRegisterOrderAndDuplicates(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"b", "a", "c"} {
		if err := r.Register(NewTalent(id, "doc "+id, noop)); err != nil {
			t.Fatalf("Register(%q) error = %v", id, err)
		}
	}
	err := r.Register(NewTalent("a", "again", noop))
	if !errors.Is(err, ErrDuplicateTalent) {
		t.Fatalf("duplicate Register() error = %v, want ErrDuplicateTalent", err)
	}
	if err := r.Register(NewTalent("", "anon", noop)); err == nil {
		t.Fatal("Register() with empty id error = nil")
	}

	var ids []string
	for _, tl := range r.Talents() {
		ids = append(ids, tl.ID())
	}
	if want := []string{"b", "a", "c"}; !slices.Equal(ids, want) {
		t.Fatalf("Talents() order = %v, want %v", ids, want)
	}
	if tl, ok := r.Lookup("c"); !ok || tl.Doc() != "doc c" {
		t.Fatalf("Lookup(c) = %v, %v", tl, ok)
	}
	if _, ok := r.Lookup("zz"); ok {
		t.Fatal("Lookup(zz) ok = true")
	}
}

func TestRegistryEffectiveChords(t *testing.T) {
	r := NewRegistry()
	def := combokey.MustParse("RigelA+M")
	alt := combokey.MustParse("RigelA+Shift+M")
	tl := NewTalent("mouse.read.toggle", "", noop, KeyCommand(def), KeyCommand(alt), VoiceCommand("mouse"))
	_ = r.Register(tl)

	if got := r.EffectiveChords(tl); !slices.Equal(got, []combokey.ComboKey{def, alt}) {
		t.Fatalf("EffectiveChords() defaults = %v", got)
	}

	override := combokey.MustParse("Ctrl+F9")
	r.SetOverrides(map[string][]combokey.ComboKey{
		"mouse.read.toggle": {override},
		"unknown":           {override},
		"empty":             nil,
	})
	if got := r.EffectiveChords(tl); !slices.Equal(got, []combokey.ComboKey{override}) {
		t.Fatalf("EffectiveChords() with override = %v", got)
	}
	if _, ok := r.Overrides()["empty"]; ok {
		t.Fatal("empty override list kept")
	}

	r.SetOverrides(nil)
	if got := r.EffectiveChords(tl); len(got) != 2 {
		t.Fatalf("EffectiveChords() after clearing overrides = %v", got)
	}
}

func TestCommandKinds(t *testing.T) {
	tl := NewTalent("x", "", nil, TouchCommand("swipe-left"), KeyCommand(combokey.MustParse("A")))
	if got := DefaultChords(tl); len(got) != 1 || got[0].Main.String() != "A" {
		t.Fatalf("DefaultChords() = %v", got)
	}
	if err := tl.Perform(context.Background()); err != nil {
		t.Fatalf("Perform() with nil func error = %v", err)
	}
	if CommandVoice.String() != "voice" || CommandKind(9).String() != "CommandKind(9)" {
		t.Fatal("CommandKind.String mismatch")
	}
}
