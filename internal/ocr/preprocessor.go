package ocr

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

const (
	// Adaptive binarization neighborhood and offset.
	adaptiveWindow   = 11
	adaptiveConstant = 2

	// Corrected skew angles at or below this magnitude (degrees) are treated
	// as already level.
	skewTolerance = 0.5
)

// Preprocessor normalizes a raw image into a form more favorable for
// recognition: contrast enhancement, noise removal, skew correction.
type Preprocessor struct{}

// NewPreprocessor creates a new image preprocessor.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Process runs the full pipeline (enhance, denoise, deskew, in that order)
// and returns a new image the caller owns. The input is never modified. A
// stage that cannot produce output hands its input through unchanged.
func (p *Preprocessor) Process(src gocv.Mat) gocv.Mat {
	var work gocv.Mat
	if src.Channels() > 1 {
		work = gocv.NewMat()
		gocv.CvtColor(src, &work, gocv.ColorBGRToGray)
	} else {
		work = src.Clone()
	}

	work = p.enhance(work)
	work = p.denoise(work)
	work = p.deskew(work)

	return work
}

// enhance equalizes the intensity histogram and binarizes with a local
// Gaussian threshold.
func (p *Preprocessor) enhance(img gocv.Mat) gocv.Mat {
	gocv.EqualizeHist(img, &img)
	gocv.AdaptiveThreshold(img, &img, 255,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary,
		adaptiveWindow, adaptiveConstant)
	return img
}

// denoise blurs away speckle and closes small gaps in glyph strokes.
func (p *Preprocessor) denoise(img gocv.Mat) gocv.Mat {
	gocv.GaussianBlur(img, &img, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(2, 2))
	defer kernel.Close()
	gocv.MorphologyEx(img, &img, gocv.MorphClose, kernel)

	return img
}

// deskew estimates the page skew from the dominant external contour and
// rotates the image level. Images with no contours or a skew within
// tolerance pass through unchanged.
func (p *Preprocessor) deskew(img gocv.Mat) gocv.Mat {
	contours := gocv.FindContours(img, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return img
	}

	// Largest enclosed area wins; ties keep the first encountered.
	largest := 0
	maxArea := gocv.ContourArea(contours.At(0))
	for i := 1; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > maxArea {
			largest = i
			maxArea = area
		}
	}

	rect := gocv.MinAreaRect(contours.At(largest))
	angle := normalizeSkewAngle(float64(rect.Angle))
	if math.Abs(angle) <= skewTolerance {
		return img
	}

	center := image.Pt(img.Cols()/2, img.Rows()/2)
	rotation := gocv.GetRotationMatrix2D(center, angle, 1.0)
	defer rotation.Close()

	rotated := gocv.NewMat()
	gocv.WarpAffine(img, &rotated, rotation, image.Pt(img.Cols(), img.Rows()))
	img.Close()
	return rotated
}

// normalizeSkewAngle maps the orientation ambiguity of a minimum-area
// rotated rectangle into [-45, 45).
func normalizeSkewAngle(angle float64) float64 {
	if angle < -45 {
		return angle + 90
	}
	return angle
}
