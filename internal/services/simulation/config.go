package simulation

import (
	"time"

	"github.com/mcoot/pongmatch-go/internal/physics"
)

// Config holds simulation engine configuration
type Config struct {
	// TickInterval is the time between frames
	TickInterval time.Duration

	// WarmupFrames is how many frames a room spends in the ready state
	// before the first serve, unless both players signal ready earlier
	WarmupFrames int64

	Geometry physics.Geometry
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		TickInterval: 17 * time.Millisecond,
		WarmupFrames: 500,
		Geometry:     physics.DefaultGeometry(),
	}
}
