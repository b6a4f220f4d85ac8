package tile

import (
	"image"
	"time"

	"github.com/paulmach/orb/maptile"
)

// EventKind identifies a step of a pyramid build.
type EventKind string

const (
	EventBuildStarted   EventKind = "build_started"
	EventLevelSkipped   EventKind = "level_skipped"
	EventLevelStarted   EventKind = "level_started"
	EventTileWritten    EventKind = "tile_written"
	EventLevelCompleted EventKind = "level_completed"
	EventBuildCompleted EventKind = "build_completed"
)

// Event is emitted by the builder as it works through a pyramid. Fields that
// do not apply to a kind are left zero.
type Event struct {
	Kind       EventKind
	Zoom       int
	Source     image.Point
	CanvasSize int
	Ratio      float64
	Tile       maptile.Tile
	Tiles      int
	Elapsed    time.Duration
}

// Observer receives build events. It may be called from several goroutines
// for EventTileWritten.
type Observer func(Event)

// Notify calls o if it is set.
func (o Observer) Notify(e Event) {
	if o != nil {
		o(e)
	}
}

// Observers fans an event out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	return func(e Event) {
		for _, o := range obs {
			o.Notify(e)
		}
	}
}
