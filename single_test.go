package main

import (
	"testing"
	"time"
)

func newRegistrySession(t *testing.T, id string, kind sessionKind) (*session, *heartbeats) {
	t.Helper()
	hb := newHeartbeats(time.Hour)
	t.Cleanup(hb.stop)
	s := newSession(id, kind, &mockWsInteractor{reads: make(chan frame)}, hb, 16, "conn-"+id)
	return s, hb
}

func TestSingleInsert(t *testing.T) {
	r := newSingleRegistry()

	a, _ := newRegistrySession(t, "monkey", kindSingle)
	if prior := r.insert("monkey", a); prior != nil {
		t.Fatal("Expectation: no prior session, Received:", prior)
	}

	got, ok := r.get("monkey")
	if !ok || got != a {
		t.Fatal("Expectation: inserted session returned, Received:", got, ok)
	}

	// a second insert under the same id displaces the first
	b, _ := newRegistrySession(t, "monkey", kindSingle)
	prior := r.insert("monkey", b)
	if prior != a {
		t.Fatal("Expectation: prior session a, Received:", prior)
	}

	got, _ = r.get("monkey")
	if got != b {
		t.Fatal("Expectation: replacement session b, Received:", got)
	}
	if r.count("monkey") != 1 {
		t.Fatal("Expectation: 1, Received:", r.count("monkey"))
	}
}

func TestSingleRemoveIf(t *testing.T) {
	r := newSingleRegistry()
	a, _ := newRegistrySession(t, "monkey", kindSingle)
	b, _ := newRegistrySession(t, "monkey", kindSingle)

	r.insert("monkey", a)
	r.insert("monkey", b)

	// the displaced session's cleanup must not evict its replacement
	if r.removeIf("monkey", a) {
		t.Fatal("Expectation: removeIf(a) false after replacement, Received: true")
	}
	if r.count("monkey") != 1 {
		t.Fatal("Expectation: 1, Received:", r.count("monkey"))
	}

	if !r.removeIf("monkey", b) {
		t.Fatal("Expectation: removeIf(b) true, Received: false")
	}
	if r.count("monkey") != 0 {
		t.Fatal("Expectation: 0, Received:", r.count("monkey"))
	}
	if _, ok := r.get("monkey"); ok {
		t.Fatal("Expectation: no session after removal, Received: session")
	}
}

func TestSingleCountUnknown(t *testing.T) {
	r := newSingleRegistry()
	if r.count("banana") != 0 {
		t.Fatal("Expectation: 0, Received:", r.count("banana"))
	}
}

func TestSingleDrain(t *testing.T) {
	r := newSingleRegistry()
	a, _ := newRegistrySession(t, "monkey", kindSingle)
	b, _ := newRegistrySession(t, "banana", kindSingle)
	r.insert("monkey", a)
	r.insert("banana", b)

	all := r.drain()
	if len(all) != 2 {
		t.Fatal("Expectation: 2, Received:", len(all))
	}
	if r.count("monkey") != 0 || r.count("banana") != 0 {
		t.Fatal("Expectation: empty registry after drain")
	}
}
