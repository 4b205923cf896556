package detector

import "sort"

// candidate is a decoded box that has not been assigned an ID yet
type candidate struct {
	box   BoundingBox
	score float32
}

// nms performs greedy Non-Maximum Suppression, dropping any box whose IoU
// with a kept higher-scoring box exceeds iouThreshold
func nms(cands []candidate, iouThreshold float64) []candidate {
	if len(cands) == 0 {
		return cands
	}

	// Sort by score (descending); stable so equal scores keep decode order
	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].score > sorted[j].score
	})

	keep := make([]bool, len(sorted))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(sorted); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if !keep[j] {
				continue
			}
			if iou(sorted[i].box, sorted[j].box) > iouThreshold {
				keep[j] = false
			}
		}
	}

	result := make([]candidate, 0, len(sorted))
	for i, c := range sorted {
		if keep[i] {
			result = append(result, c)
		}
	}

	return result
}

// iou calculates Intersection over Union of two bounding boxes
func iou(a, b BoundingBox) float64 {
	// Intersection
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	var intersection float64
	if x2 > x1 && y2 > y1 {
		intersection = float64(x2-x1) * float64(y2-y1)
	}

	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

// assignIDs orders faces by descending area and numbers them from 1
func assignIDs(cands []candidate) []Face {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].box.Area() > cands[j].box.Area()
	})

	faces := make([]Face, len(cands))
	for i, c := range cands {
		faces[i] = Face{
			ID:          i + 1,
			BoundingBox: c.box,
			Confidence:  c.score,
		}
	}
	return faces
}
