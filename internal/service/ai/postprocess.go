package ai

import (
	"fmt"
	"image"
	"math"
)

// outputLayout describes a YOLO-style detection tensor: per anchor four box
// values (cx, cy, w, h in input pixels) followed by one score per class.
type outputLayout struct {
	attributes int  // 4 + number of classes
	anchors    int  // number of candidate boxes
	transposed bool // true for [1, anchors, attributes]
}

func newOutputLayout(dims []int) (outputLayout, error) {
	if len(dims) != 3 || dims[0] != 1 {
		return outputLayout{}, fmt.Errorf("unexpected network output shape %v", dims)
	}

	// Exported YOLOv8 models emit [1, 4+classes, anchors]; anchors always dominate.
	layout := outputLayout{attributes: dims[1], anchors: dims[2]}
	if dims[1] > dims[2] {
		layout = outputLayout{attributes: dims[2], anchors: dims[1], transposed: true}
	}
	if layout.attributes < 5 {
		return outputLayout{}, fmt.Errorf("network output has no class scores: %v", dims)
	}
	return layout, nil
}

func (l outputLayout) at(data []float32, anchor, attribute int) float32 {
	if l.transposed {
		return data[anchor*l.attributes+attribute]
	}
	return data[attribute*l.anchors+anchor]
}

type candidates struct {
	boxes    []image.Rectangle
	scores   []float32
	classIDs []int
}

// decodeOutput keeps, for every anchor, its best class if the score clears the
// threshold, and maps the box from network input space to frame pixels.
func decodeOutput(data []float32, layout outputLayout, scaleX, scaleY float64, threshold float32) candidates {
	var c candidates
	if len(data) < layout.attributes*layout.anchors {
		return c
	}

	for i := 0; i < layout.anchors; i++ {
		bestClass, bestScore := -1, float32(0)
		for attr := 4; attr < layout.attributes; attr++ {
			if score := layout.at(data, i, attr); score > bestScore {
				bestClass, bestScore = attr-4, score
			}
		}
		if bestClass < 0 || bestScore < threshold {
			continue
		}

		cx := float64(layout.at(data, i, 0))
		cy := float64(layout.at(data, i, 1))
		w := float64(layout.at(data, i, 2))
		h := float64(layout.at(data, i, 3))

		left := int(math.Round((cx - w/2) * scaleX))
		top := int(math.Round((cy - h/2) * scaleY))
		right := int(math.Round((cx + w/2) * scaleX))
		bottom := int(math.Round((cy + h/2) * scaleY))

		c.boxes = append(c.boxes, image.Rect(left, top, right, bottom))
		c.scores = append(c.scores, bestScore)
		c.classIDs = append(c.classIDs, bestClass)
	}

	return c
}
