// Package presence provides presence directories: the record of which hubs
// currently host a socket for an identity.
//
// Memory is a process-local directory, shared by hubs that run in the same
// process. Bolt persists the same sets in a bbolt file so a restarted hub can
// purge the entries it left behind. bbolt holds an exclusive lock on the
// file, so neither backend is visible to a hub in another process: hubs
// federate only when they share a directory, such as several hubs served
// from one process over one Memory.
package presence
