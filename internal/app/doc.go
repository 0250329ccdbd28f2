// Package app wires application dependencies for the CLI.
//
// It builds the concrete stores and services from Config, exposing them via
// the App struct, and opens acknowledged hub connections for commands that
// talk to a hub.
package app
