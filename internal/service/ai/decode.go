package ai

import "image"

// ssdRowSize is the width of one SSD output row:
// [batch_id, class_id, confidence, x1, y1, x2, y2], coordinates in 0..1.
const ssdRowSize = 7

// DecodeSSD turns a flat SSD output into detections on a frame of the given size.
func DecodeSSD(data []float32, size image.Point, labels []string, threshold float32) []Detection {
	bounds := image.Rectangle{Max: size}
	w, h := float32(size.X), float32(size.Y)

	var results []Detection
	for off := 0; off+ssdRowSize <= len(data); off += ssdRowSize {
		row := data[off : off+ssdRowSize]
		confidence := row[2]
		if confidence < threshold {
			continue
		}
		classID := SSDClassIndex(int(row[1]))
		box := image.Rect(int(row[3]*w), int(row[4]*h), int(row[5]*w), int(row[6]*h))
		results = append(results, Detection{
			ClassID:    classID,
			Label:      LabelFor(labels, classID),
			Confidence: confidence,
			Box:        ClampBox(box, bounds),
		})
	}
	return results
}

// YOLOv8Output describes the channel-major [4+classes, anchors] head of an
// exported YOLOv8 model. Rows 0..3 hold cx, cy, w, h in input pixels.
type YOLOv8Output struct {
	Data      []float32
	Channels  int
	Anchors   int
	InputSize int
}

func (o YOLOv8Output) at(channel, anchor int) float32 {
	return o.Data[channel*o.Anchors+anchor]
}

// DecodeYOLOv8 picks the best class per anchor, scales boxes back to a frame
// of the given size and applies non-max suppression.
func DecodeYOLOv8(out YOLOv8Output, size image.Point, labels []string, threshold, nmsThreshold float32) []Detection {
	if out.Channels <= 4 || out.Anchors <= 0 || out.InputSize <= 0 || len(out.Data) < out.Channels*out.Anchors {
		return nil
	}

	bounds := image.Rectangle{Max: size}
	scaleX := float32(size.X) / float32(out.InputSize)
	scaleY := float32(size.Y) / float32(out.InputSize)

	var candidates []Detection
	for a := 0; a < out.Anchors; a++ {
		bestClass, bestScore := -1, float32(0)
		for c := 4; c < out.Channels; c++ {
			if score := out.at(c, a); score > bestScore {
				bestClass, bestScore = c-4, score
			}
		}
		if bestClass < 0 || bestScore < threshold {
			continue
		}

		cx, cy := out.at(0, a)*scaleX, out.at(1, a)*scaleY
		bw, bh := out.at(2, a)*scaleX, out.at(3, a)*scaleY
		box := image.Rect(int(cx-bw/2), int(cy-bh/2), int(cx+bw/2), int(cy+bh/2))

		candidates = append(candidates, Detection{
			ClassID:    bestClass,
			Label:      LabelFor(labels, bestClass),
			Confidence: bestScore,
			Box:        ClampBox(box, bounds),
		})
	}

	if nmsThreshold <= 0 {
		nmsThreshold = DefaultNMSThreshold
	}
	return NonMaxSuppression(candidates, nmsThreshold)
}
