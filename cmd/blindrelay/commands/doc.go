// Package commands defines the blindrelay CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity
//   - fingerprint    Print the identity hash and public key
//   - contact add    Save a peer's public key under an alias
//   - contact list   Print saved contacts
//   - send           Encrypt and send a message, waiting for its ack
//   - listen         Print incoming messages until interrupted
//
// # Implementation
//
// The root command builds the app (stores, identity service, hub settings)
// before any subcommand runs. Commands that talk to a hub open one
// acknowledged connection and close it when they return.
package commands
