// Package hub fans dashboard messages out to websocket clients.
//
// A single goroutine owns the client set; registration, removal and
// broadcast all go through channels. Clients that cannot keep up are
// dropped rather than slowing the publisher.
package hub

// Message is one encoded payload sent to every client as a text frame.
type Message struct {
	Data []byte
}
