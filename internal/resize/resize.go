// Package resize decides the output dimensions of a converted image.
package resize

// DefaultMaxWidth is the widest image the converter emits.
const DefaultMaxWidth = 1200

// ComputeTargetSize returns the dimensions an image of width x height should
// be scaled to so it is no wider than maxWidth. Images are never upscaled and
// the aspect ratio is kept, flooring the new height. A non-positive maxWidth
// disables resizing.
func ComputeTargetSize(width, height, maxWidth int) (int, int) {
	if maxWidth <= 0 || width <= maxWidth {
		return width, height
	}
	// Integer arithmetic keeps the result exact and reproducible.
	newHeight := int(int64(height) * int64(maxWidth) / int64(width))
	return maxWidth, newHeight
}

// NeedsResize reports whether ComputeTargetSize would change the dimensions.
func NeedsResize(width, maxWidth int) bool {
	return maxWidth > 0 && width > maxWidth
}
