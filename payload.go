package main

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

var errInvalidUTF8 = errors.New("invalid UTF-8 in body")

// decodePayload maps the publish Content-Type onto the wire frame
// variant. JSON and text/* bodies travel as text frames and must be
// valid UTF-8; everything else travels as an opaque binary frame.
// The body is never parsed, only validated.
func decodePayload(contentType string, body []byte) (frame, error) {
	if strings.HasPrefix(contentType, "application/json") || strings.HasPrefix(contentType, "text/") {
		if !utf8.Valid(body) {
			return frame{}, errInvalidUTF8
		}
		return frame{websocket.TextMessage, body}, nil
	}
	return frame{websocket.BinaryMessage, body}, nil
}

// replyContentType mirrors a reply frame's variant back onto HTTP.
func replyContentType(messageType int) string {
	if messageType == websocket.TextMessage {
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
