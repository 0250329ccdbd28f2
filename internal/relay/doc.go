// Package relay implements the client side of a hub connection.
//
// A Client owns one socket to a hub. Start runs the challenge handshake and
// returns only once the hub has replied "validated"; from then on Send
// encrypts, signs and forwards envelopes, and a single reader goroutine
// verifies inbound messages and hands them to Options.OnMessage in arrival
// order.
//
// # States
//
//	Connecting -> ChallengeReceived -> Validated -> Closed
//	                               \-> Rejected
//
// Messages that fail verification are logged and dropped; they never reach
// the consumer. OnClose fires exactly once, whatever state the socket dies
// in. The client never reconnects on its own.
package relay
