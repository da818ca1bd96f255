package main

// relay holds the two registries and the shared heartbeat ticker. One
// relay serves the whole process; sessions come and go underneath it.
type relay struct {
	cfg    config
	single *singleRegistry
	broad  *broadcastRegistry
	hb     *heartbeats
}

func newRelay(cfg config) *relay {
	return &relay{
		cfg:    cfg,
		single: newSingleRegistry(),
		broad:  newBroadcastRegistry(),
		hb:     newHeartbeats(cfg.PingInterval),
	}
}

// shutdown closes every live session and halts the heartbeat ticker.
func (rl *relay) shutdown() {
	for _, s := range rl.single.drain() {
		s.teardown()
	}
	for _, s := range rl.broad.drain() {
		s.teardown()
	}
	rl.hb.stop()
}
