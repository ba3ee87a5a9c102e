package atomic_test

import (
	"testing"

	libatomic "github.com/ctrlplane/devicetransport/atomic"
)

func TestMapStoreLoad(t *testing.T) {
	m := libatomic.NewMapAny[string]()
	m.Store("key", "value")
	got, ok := m.Load("key")
	if !ok || got != "value" {
		t.Fatalf("got %v ok=%v", got, ok)
	}
}

func TestMapLoadMissingKeyIsNotOK(t *testing.T) {
	m := libatomic.NewMapAny[string]()
	_, ok := m.Load("missing")
	if ok {
		t.Fatalf("expected ok=false for a missing key")
	}
}

func TestMapLoadOrStore(t *testing.T) {
	m := libatomic.NewMapAny[string]()
	actual, loaded := m.LoadOrStore("key", "first")
	if loaded || actual != "first" {
		t.Fatalf("expected first store to report loaded=false, got actual=%v loaded=%v", actual, loaded)
	}
	actual, loaded = m.LoadOrStore("key", "second")
	if !loaded || actual != "first" {
		t.Fatalf("expected second call to return the existing value, got actual=%v loaded=%v", actual, loaded)
	}
}

func TestMapDeleteAndLoadAndDelete(t *testing.T) {
	m := libatomic.NewMapAny[string]()
	m.Store("key", "value")

	val, loaded := m.LoadAndDelete("key")
	if !loaded || val != "value" {
		t.Fatalf("got %v loaded=%v", val, loaded)
	}
	if _, ok := m.Load("key"); ok {
		t.Fatalf("expected key to be gone after LoadAndDelete")
	}
}

func TestMapCompareAndSwapAndDelete(t *testing.T) {
	m := libatomic.NewMapAny[string]()
	m.Store("key", "old")

	if !m.CompareAndSwap("key", "old", "new") {
		t.Fatalf("expected CompareAndSwap to succeed")
	}
	if m.CompareAndSwap("key", "old", "newer") {
		t.Fatalf("expected CompareAndSwap to fail once value changed")
	}
	if !m.CompareAndDelete("key", "new") {
		t.Fatalf("expected CompareAndDelete to succeed")
	}
	if _, ok := m.Load("key"); ok {
		t.Fatalf("expected key to be gone after CompareAndDelete")
	}
}

func TestMapRangeVisitsEveryEntry(t *testing.T) {
	m := libatomic.NewMapAny[string]()
	m.Store("a", 1)
	m.Store("b", 2)

	seen := map[string]any{}
	m.Range(func(k string, v any) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 2 || seen["a"] != 1 || seen["b"] != 2 {
		t.Fatalf("got %v", seen)
	}
}

func TestMapTypedStoreLoad(t *testing.T) {
	m := libatomic.NewMapTyped[string, int]()
	m.Store("key", 42)
	got, ok := m.Load("key")
	if !ok || got != 42 {
		t.Fatalf("got %v ok=%v", got, ok)
	}
}
