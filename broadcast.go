package main

import "sync"

type members map[*session]struct{}

// broadcastRegistry maps a channel id to its set of subscriber
// sessions. Channels exist only while occupied; the last leave drops
// the key.
type broadcastRegistry struct {
	mu       sync.Mutex
	channels map[string]members
}

func newBroadcastRegistry() *broadcastRegistry {
	return &broadcastRegistry{
		channels: make(map[string]members),
	}
}

func (r *broadcastRegistry) join(id string, s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[id]; !ok {
		r.channels[id] = make(members)
		incr("broad.channels", 1)
	}
	r.channels[id][s] = struct{}{}
}

func (r *broadcastRegistry) leave(id string, s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[id]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.channels, id)
		decr("broad.channels", 1)
	}
}

// snapshot copies the member set so dispatch runs without the lock and
// unaffected by concurrent joins and leaves.
func (r *broadcastRegistry) snapshot(id string) []*session {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[id]
	if !ok {
		return nil
	}
	out := make([]*session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func (r *broadcastRegistry) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.channels[id])
}

func (r *broadcastRegistry) drain() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*session
	for id, set := range r.channels {
		for s := range set {
			all = append(all, s)
		}
		delete(r.channels, id)
		decr("broad.channels", 1)
	}
	return all
}
