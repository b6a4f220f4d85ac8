package pyramid

import "math"

// MinSourceRatio is the smallest ratio of the source's longer side to a level's
// canvas size that still gets rendered. Below it the source would have to be
// magnified more than 2x.
const MinSourceRatio = 0.5

// Ratio returns max(sourceW, sourceH) / (tileSize * 2^zoom).
func Ratio(sourceW, sourceH, tileSize, zoom int) float64 {
	maxLength := float64(tileSize) * math.Ldexp(1, zoom)
	return float64(max(sourceW, sourceH)) / maxLength
}

// Supported reports whether the source has enough resolution for zoom.
func Supported(sourceW, sourceH, tileSize, zoom int) bool {
	if zoom < 0 || tileSize <= 0 {
		return false
	}
	return Ratio(sourceW, sourceH, tileSize, zoom) >= MinSourceRatio
}

// PlanLevels returns the zoom levels to render, highest first. It walks down
// from maxZoom and drops every level the source cannot reasonably fill; all
// levels below the first supported one are kept.
func PlanLevels(sourceW, sourceH, tileSize, maxZoom int) []int {
	var levels []int
	for z := maxZoom; z >= 0; z-- {
		if !Supported(sourceW, sourceH, tileSize, z) {
			continue
		}
		levels = append(levels, z)
	}
	return levels
}
