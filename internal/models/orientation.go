package models

// Orientation describes whether output is taller than wide or wider than tall.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

// String returns the label used in artifact filenames.
func (o Orientation) String() string {
	if o == Portrait {
		return "portrait"
	}
	return "landscape"
}

// OrientationFromDimensions classifies intrinsic media dimensions.
// A square frame is treated as portrait so the taller overlay applies.
func OrientationFromDimensions(width, height int) Orientation {
	if width > height {
		return Landscape
	}
	return Portrait
}
