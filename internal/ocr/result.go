package ocr

// Box is an axis-aligned rectangle in source-image pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// OCRResult is the structured output of one recognition pass. Words,
// WordConfidences and BoundingBoxes are parallel sequences of equal length,
// in the recognizer's reading order. Confidence is the 0-100 mean word
// confidence and is zero when nothing was recognized.
type OCRResult struct {
	Text            string    `json:"text"`
	Confidence      float64   `json:"confidence"`
	Words           []string  `json:"words"`
	WordConfidences []float64 `json:"word_confidences"`
	BoundingBoxes   []Box     `json:"bounding_boxes"`
}

// emptyResult is the zero-valued OCRResult every failure path degrades to.
// Sequences are allocated empty so JSON responses carry [] rather than null.
func emptyResult() OCRResult {
	return OCRResult{
		Words:           []string{},
		WordConfidences: []float64{},
		BoundingBoxes:   []Box{},
	}
}

// AverageConfidence is the arithmetic mean of per-result confidences,
// defined as 0 for an empty batch.
func AverageConfidence(results []OCRResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}
