package ai

import "image"

// NonMaxSuppression drops boxes that overlap a better-scoring box of the same
// class by more than iouThreshold. Input order does not matter.
func NonMaxSuppression(detections []Detection, iouThreshold float32) []Detection {
	sorted := FilterByConfidence(detections, 0)
	suppressed := make([]bool, len(sorted))
	kept := make([]Detection, 0, len(sorted))

	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].ClassID != sorted[i].ClassID {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// IoU is the intersection-over-union of two rectangles.
func IoU(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := area(inter)
	union := area(a) + area(b) - interArea
	if union <= 0 {
		return 0
	}
	return float32(interArea) / float32(union)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
