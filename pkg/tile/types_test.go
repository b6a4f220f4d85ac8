package tile

import (
	"errors"
	"strings"
	"testing"
)

func TestAddressing(t *testing.T) {
	addr := At(3, 5, 7)
	if addr.Z != 3 || addr.X != 5 || addr.Y != 7 {
		t.Errorf("Expected 3/5/7, got %d/%d/%d", addr.Z, addr.X, addr.Y)
	}
	if !Valid(addr) {
		t.Error("Expected 3/5/7 to be valid")
	}
	if Valid(At(3, 8, 0)) {
		t.Error("Expected column 8 at zoom 3 to be invalid")
	}
	if Valid(At(0, 0, 1)) {
		t.Error("Expected row 1 at zoom 0 to be invalid")
	}
	if GridSize(4) != 16 {
		t.Errorf("Expected 16 columns at zoom 4, got %d", GridSize(4))
	}
	if CanvasSize(256, 2) != 1024 {
		t.Errorf("Expected canvas 1024 at zoom 2, got %d", CanvasSize(256, 2))
	}
}

func TestErrors(t *testing.T) {
	var err error = &DimensionMismatchError{Zoom: 2, TileSize: 256, Width: 1000, Height: 1024}
	if !strings.Contains(err.Error(), "want 1024x1024") {
		t.Errorf("Unexpected message: %s", err)
	}

	err = &InvalidDestinationError{Path: "/tmp/x", Reason: "path is a file, not a directory"}
	var target *InvalidDestinationError
	if !errors.As(err, &target) || target.Path != "/tmp/x" {
		t.Errorf("Expected InvalidDestinationError, got %v", err)
	}
}

func TestObservers(t *testing.T) {
	var a, b int
	o := Observers(func(Event) { a++ }, nil, func(Event) { b++ })
	o.Notify(Event{Kind: EventTileWritten})

	var none Observer
	none.Notify(Event{})

	if a != 1 || b != 1 {
		t.Errorf("Expected each observer called once, got %d and %d", a, b)
	}
}
