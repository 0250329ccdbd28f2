// Package handshake implements the challenge/response used to authenticate
// sockets to a hub.
//
// A hub sends a random challenge on every new socket. The peer answers with
// its public key and a certificate: an Ed25519 signature over a
// domain-separated copy of the challenge. Clients and hubs use different
// separation labels so a client certificate can never authenticate a hub.
package handshake
