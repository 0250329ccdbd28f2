// Package policy holds the send policies and usage recorders a hub consults
// before forwarding a message.
package policy
