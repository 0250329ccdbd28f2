// Package wire carries JSON frames between clients and hubs.
//
// A frame is one JSON object {"type", "payload"} sent as a single websocket
// text message. Conn implementations here satisfy domain.Conn: the websocket
// transport used in production and an in-memory pipe used by tests and by
// hubs embedded in the same process.
package wire
