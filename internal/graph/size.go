package graph

import "math"

const (
	// DirMagnitude is the fixed visual size of directory nodes
	DirMagnitude = 6.0
	// BaseFileMagnitude is the visual size of an empty file
	BaseFileMagnitude = 2.0

	fileScale = 0.8
)

// Magnitude returns the visual size of an entry. File sizes grow with
// log10 of the byte count so a few large files do not dominate the layout.
func Magnitude(size int64, kind NodeType) float64 {
	if kind == TypeDir {
		return DirMagnitude
	}
	if size <= 0 {
		return BaseFileMagnitude
	}
	return BaseFileMagnitude + math.Log10(float64(size))*fileScale
}
