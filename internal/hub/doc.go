// Package hub implements the relay server.
//
// Every socket is handled by a Session. A new socket receives a challenge
// and must answer with either "id" (a client) or "hub-id" (a peer hub).
// Authenticated clients are recorded in the Registry under their identity
// hash. Peer hubs that dial in may send relays but are never used to reach
// them, since the address a peer claims is not verified. Relays to a peer
// go over a socket this hub dialed, kept in the PeerPool under the address
// it dialed.
//
// A "message" from a client is stamped with the client's identity, delivered
// to every local socket of the recipient, and relayed to every peer hub the
// presence directory lists for the recipient. A "relay" from a peer hub is
// delivered locally only, so relays never loop.
//
// The Registry and the PeerPool are the only shared state; both are guarded
// by their own mutex.
package hub
