package presence

import "time"

func init() {
	lockTimeout = 50 * time.Millisecond
}
