package app

import (
	"time"

	"github.com/charmbracelet/log"

	"blindrelay/internal/domain"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home   string // config directory, e.g. $HOME/.blindrelay
	HubURL string // hub websocket URL, e.g. ws://127.0.0.1:8080

	// AckTimeout bounds each send attempt; zero waits for the context.
	AckTimeout time.Duration
	Retries    int

	// Dialer is optional; defaults to websocket.
	Dialer domain.Dialer

	Logger *log.Logger
}
