package counting

import (
	"image"
	"testing"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/region"
)

func box(cx, cy int) image.Rectangle {
	return image.Rect(cx-5, cy-5, cx+5, cy+5)
}

func TestAssign_Containment(t *testing.T) {
	reg := region.NewRegistry(model.RegionMap{
		2: {ClassID: 2, X: 10, Y: 20, Width: 100, Height: 50},
	})

	tests := []struct {
		name   string
		cx, cy int
		want   bool
	}{
		{"inside", 50, 40, true},
		{"top left corner", 10, 20, true},
		{"bottom right corner", 110, 70, true},
		{"left of region", 9, 40, false},
		{"right of region", 111, 40, false},
		{"above region", 50, 19, false},
		{"below region", 50, 71, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assign(model.Detection{ClassID: 2, Box: box(tt.cx, tt.cy)}, reg)
			if !a.HasRegion {
				t.Fatal("Expected class 2 to have a region")
			}
			if a.InRegion != tt.want {
				t.Errorf("Center (%d,%d): expected in region %v, got %v", tt.cx, tt.cy, tt.want, a.InRegion)
			}
			if a.Center != image.Pt(tt.cx, tt.cy) {
				t.Errorf("Expected center (%d,%d), got %v", tt.cx, tt.cy, a.Center)
			}
		})
	}
}

func TestAssign_CenterUsesFloorMidpoint(t *testing.T) {
	reg := region.NewRegistry(model.RegionMap{
		1: {ClassID: 1, X: 0, Y: 0, Width: 10, Height: 10},
	})

	// midpoint of [0,21] is 10.5 -> 10, which is on the inclusive edge
	a := Assign(model.Detection{ClassID: 1, Box: image.Rect(0, 0, 21, 21)}, reg)
	if a.Center != image.Pt(10, 10) {
		t.Fatalf("Expected center (10,10), got %v", a.Center)
	}
	if !a.InRegion {
		t.Error("Center on the region edge must count as inside")
	}
}

func TestAssign_NoRegionForClass(t *testing.T) {
	reg := region.NewRegistry(model.RegionMap{
		2: {ClassID: 2, X: 0, Y: 0, Width: 1000, Height: 1000},
	})

	a := Assign(model.Detection{ClassID: 5, Box: box(50, 50)}, reg)
	if a.HasRegion {
		t.Error("Class 5 has no region")
	}
	if a.InRegion {
		t.Error("A detection without a region must never be in region")
	}
}
