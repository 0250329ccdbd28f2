// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (wire frames, keys, envelopes) and contracts
// (transports, stores, hub collaborators) only.
package domain
