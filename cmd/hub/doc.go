// Package main runs a blindrelay hub.
//
// A hub accepts websocket connections from clients and from peer hubs,
// authenticates each socket once with a signed challenge, and then routes
// sealed envelopes by identity hash. It never sees plaintext or private
// keys of its clients.
//
// Usage
//
//	hub -c hub.toml
//
// The hub's own key is kept sealed in Server.DataDir, under the passphrase
// in BLINDRELAY_HUB_PASSPHRASE. It is generated on the first start. Its
// public key and identity hash are logged at startup so peer hubs can add
// it to Federation.TrustedHubs.
//
// Behaviour
//
//   - SIGINT or SIGTERM closes every socket and stops the listeners.
//   - With the bolt presence backend the hub removes its stale presence
//     entries on startup.
//   - Both presence backends are private to this process. A hub started by
//     this binary never learns about identities on other hubs, so it relays
//     nothing to peers. It still accepts relays from peer hubs that dial it.
//   - Per-sender rate limiting is enabled by Limits.SendRatePerSecond.
//   - Prometheus metrics are served on Metrics.Listen when set.
package main
