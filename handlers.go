package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type publishMode int

const (
	modeShot publishMode = iota
	modePingPong
)

// parseMode treats anything other than ping_pong as the shot default.
func parseMode(s string) publishMode {
	if s == "ping_pong" {
		return modePingPong
	}
	return modeShot
}

func requireID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		sendBadRequestError(w, "Missing or empty 'id' query parameter.")
		return "", false
	}
	return id, true
}

func sendBadRequestError(w http.ResponseWriter, str string) {
	http.Error(w,
		fmt.Sprintf("Error: bad request. %s", str),
		http.StatusBadRequest)
}

func readPayload(w http.ResponseWriter, r *http.Request) (frame, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return frame{}, false
	}
	f, err := decodePayload(r.Header.Get("Content-Type"), body)
	if err != nil {
		sendBadRequestError(w, "Invalid UTF-8 in body.")
		return frame{}, false
	}
	return f, true
}

type singleSubHandler struct {
	rl *relay
}

func (h singleSubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s := newSession(id, kindSingle, websocketInteractor{ws}, h.rl.hb, h.rl.cfg.SendQueue, uuid.NewString())
	s.onClose = func() { h.rl.single.removeIf(id, s) }
	if prior := h.rl.single.insert(id, s); prior != nil {
		prior.teardown()
	}
	logger.Info().Str("id", id).Str("conn", s.connID).Msg("new single subscriber")
	s.run()
}

type singlePubHandler struct {
	rl *relay
}

func (h singlePubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	f, ok := readPayload(w, r)
	if !ok {
		return
	}
	s, ok := h.rl.single.get(id)
	if !ok {
		http.Error(w, "subscriber id not found", http.StatusNotFound)
		return
	}

	switch parseMode(r.URL.Query().Get("mode")) {
	case modeShot:
		h.shot(w, s, f)
	case modePingPong:
		h.pingPong(r.Context(), w, s, f)
	}
}

func (h singlePubHandler) shot(w http.ResponseWriter, s *session, f frame) {
	switch err := s.trySend(f); err {
	case nil:
	case errSendFull:
		// Best-effort: the payload is dropped and the stuck
		// subscriber goes with it. The publisher still gets 200.
		incr("drops", 1)
		s.teardown()
	case errSessionClosed:
		s.teardown()
		http.Error(w, "subscriber disconnected during send", http.StatusNotFound)
	}
}

func (h singlePubHandler) pingPong(ctx context.Context, w http.ResponseWriter, s *session, f frame) {
	reply, err := s.requestReply(ctx, f, h.rl.cfg.ReplyTimeout)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", replyContentType(reply.messageType))
		w.Write(reply.data)
	case errors.Is(err, errReplyBusy):
		incr("pingpong.busy", 1)
		http.Error(w, "a reply is already outstanding for this subscriber", http.StatusConflict)
	case errors.Is(err, errReplyTimeout):
		incr("pingpong.timeout", 1)
		http.Error(w, fmt.Sprintf("Request timeout after %s", h.rl.cfg.ReplyTimeout), http.StatusRequestTimeout)
	case errors.Is(err, errSendFull):
		incr("drops", 1)
		s.teardown()
		http.Error(w, "subscriber not draining", http.StatusNotFound)
	case errors.Is(err, errSessionClosed):
		http.Error(w, "subscriber disconnected during send", http.StatusNotFound)
	default:
		// HTTP client went away mid-wait; nothing left to answer.
	}
}

type broadSubHandler struct {
	rl *relay
}

func (h broadSubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s := newSession(id, kindBroadcast, websocketInteractor{ws}, h.rl.hb, h.rl.cfg.SendQueue, uuid.NewString())
	s.onClose = func() { h.rl.broad.leave(id, s) }
	h.rl.broad.join(id, s)
	logger.Info().Str("id", id).Str("conn", s.connID).Msg("new broadcast subscriber")
	s.run()
}

type broadPubHandler struct {
	rl *relay
}

func (h broadPubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	f, ok := readPayload(w, r)
	if !ok {
		return
	}
	// Fire-and-forget fan-out over a snapshot: members that are gone
	// or not draining are dropped, never reported.
	for _, s := range h.rl.broad.snapshot(id) {
		if err := s.trySend(f); err != nil {
			incr("drops", 1)
			s.teardown()
		}
	}
	w.WriteHeader(http.StatusOK)
}

type connectionCount struct {
	Count int `json:"count"`
}

type connectionsHandler struct {
	rl *relay
}

func (h connectionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	n := h.rl.single.count(id) + h.rl.broad.count(id)
	buf, err := json.Marshal(connectionCount{Count: n})
	if err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}

type healthHandler struct{}

func (healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type versionHandler struct{}

func (versionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(version))
}
