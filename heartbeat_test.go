package main

import (
	"testing"
	"time"
)

func TestHeartbeatSubscribe(t *testing.T) {
	hb := newHeartbeats(time.Hour)
	defer hb.stop()

	if len(hb.subs) != 0 {
		t.Fatal("Expectation: 0, Received:", len(hb.subs))
	}

	hb.subscribe()
	if len(hb.subs) != 1 {
		t.Fatal("Expectation: 1, Received:", len(hb.subs))
	}
}

func TestHeartbeatUnsubscribe(t *testing.T) {
	hb := newHeartbeats(time.Hour)
	defer hb.stop()
	sub := hb.subscribe()

	if len(hb.subs) != 1 {
		t.Fatal("Expectation: 1, Received:", len(hb.subs))
	}

	hb.unsubscribe(sub)
	if len(hb.subs) != 0 {
		t.Fatal("Expectation: 0, Received:", len(hb.subs))
	}

	// assert chan closed
	_, ok := <-sub.c
	if ok {
		t.Fatal("Expectation: tick channel should be closed, Received: open channel")
	}

	// unsubscribing twice must not panic
	hb.unsubscribe(sub)
}

func TestHeartbeatTick(t *testing.T) {
	hb := newHeartbeats(50 * time.Millisecond)
	defer hb.stop()
	sub1 := hb.subscribe()
	sub2 := hb.subscribe()
	sub3 := hb.subscribe()

	// assert time stamps are passed to subscribing channels
	t1, ok1 := <-sub1.c
	t2, ok2 := <-sub2.c
	t3, ok3 := <-sub3.c

	if !ok1 || !ok2 || !ok3 || !(t1 == t2 && t1 == t3) {
		t.Fatal("Expectation: all subscribed channels receive identical time stamps, Received:", t1, t2, t3)
	}
}

func TestHeartbeatStop(t *testing.T) {
	hb := newHeartbeats(time.Hour)
	sub1 := hb.subscribe()
	sub2 := hb.subscribe()

	hb.stop()

	// assert all subscribing channels closed
	_, ok1 := <-sub1.c
	_, ok2 := <-sub2.c

	if ok1 || ok2 {
		t.Fatal("Expectation: all tick channels should be closed, Received: open channel")
	}

	// unsubscribe after stop must not close twice
	hb.unsubscribe(sub1)
}
