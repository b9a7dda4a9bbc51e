package ocr

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/docuscan/document-ocr-service/internal/classify"
	"github.com/docuscan/document-ocr-service/internal/models"
)

// Engine owns one native recognition context and drives the full pipeline:
// load, preprocess, recognize, classify. Recognition is stateful and not
// reentrant, so the engine serializes its recognition and reconfiguration
// calls behind a single mutex. Callers needing overlap run one engine per
// worker, each independently initialized.
type Engine struct {
	mu sync.Mutex

	language            string
	confidenceThreshold float64
	preprocessing       bool
	initialized         bool

	rec           Recognizer
	newRecognizer func() Recognizer
	pre           *Preprocessor
	classifier    *classify.Classifier
}

// NewEngine creates an engine from configuration. The engine is not usable
// for recognition until Initialize succeeds.
func NewEngine(cfg models.OCRConfig) *Engine {
	language := cfg.Language
	if language == "" {
		language = "eng"
	}
	threshold := cfg.ConfidenceThreshold
	if threshold == 0 {
		threshold = 60.0
	}
	return &Engine{
		language:            language,
		confidenceThreshold: threshold,
		preprocessing:       cfg.PreprocessingEnabled,
		newRecognizer:       newTesseractRecognizer,
		pre:                 NewPreprocessor(),
		classifier:          classify.NewClassifier(),
	}
}

// Initialize builds the native recognition context for the configured
// language. On failure the engine stays unready but retryable.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initLocked()
}

func (e *Engine) initLocked() error {
	e.cleanupLocked()

	rec := e.newRecognizer()
	if err := rec.Init(e.language); err != nil {
		rec.Close()
		return fmt.Errorf("initialize recognizer: %w", err)
	}
	e.rec = rec
	e.initialized = true
	log.Info().Str("language", e.language).Msg("OCR engine initialized")
	return nil
}

// Cleanup tears down the native recognition context. The engine can be
// re-initialized afterwards.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanupLocked()
}

func (e *Engine) cleanupLocked() {
	if e.rec != nil {
		if err := e.rec.Close(); err != nil {
			log.Warn().Err(err).Msg("recognizer close failed")
		}
		e.rec = nil
	}
	e.initialized = false
}

// SetLanguage switches the recognition language. An initialized engine is
// torn down and rebuilt; a failed rebuild leaves it unready and every
// recognition call short-circuits until Initialize succeeds again.
func (e *Engine) SetLanguage(language string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.language = language
	if !e.initialized {
		return nil
	}
	if err := e.initLocked(); err != nil {
		log.Error().Err(err).Str("language", language).Msg("reinitialization after language change failed")
		return err
	}
	return nil
}

// Language returns the configured recognition language.
func (e *Engine) Language() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.language
}

// SetConfidenceThreshold stores the advisory confidence threshold. It is
// not applied as a filter anywhere in the pipeline.
func (e *Engine) SetConfidenceThreshold(threshold float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confidenceThreshold = threshold
}

// ConfidenceThreshold returns the stored advisory threshold.
func (e *Engine) ConfidenceThreshold() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confidenceThreshold
}

// EnablePreprocessing toggles the preprocessing pipeline for subsequent
// recognition calls.
func (e *Engine) EnablePreprocessing(enable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preprocessing = enable
}

// Initialized reports whether the engine is ready for recognition.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// ExtractText decodes the image at imagePath and recognizes it. An
// unreadable path degrades to the zero-valued result.
func (e *Engine) ExtractText(imagePath string) OCRResult {
	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		log.Warn().Str("path", imagePath).Msg("failed to load image")
		return emptyResult()
	}
	defer img.Close()

	return e.ExtractTextFromImage(img)
}

// ExtractTextFromImage recognizes an in-memory image. Every failure path
// degrades to the zero-valued or best-effort partial result; errors are
// logged, never returned.
func (e *Engine) ExtractTextFromImage(img gocv.Mat) OCRResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := emptyResult()
	if !e.initialized {
		log.Warn().Msg("recognition attempted before initialization")
		return result
	}

	var owned []gocv.Mat
	defer func() {
		for i := range owned {
			owned[i].Close()
		}
	}()

	processed := img
	if e.preprocessing {
		pre := e.pre.Process(img)
		owned = append(owned, pre)
		processed = pre
	}

	gray := processed
	if processed.Channels() > 1 {
		g := gocv.NewMat()
		gocv.CvtColor(processed, &g, gocv.ColorBGRToGray)
		owned = append(owned, g)
		gray = g
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, gray)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode image for recognition")
		return result
	}
	defer buf.Close()

	if err := e.rec.SetImageFromBytes(buf.GetBytes()); err != nil {
		log.Error().Err(err).Msg("failed to set recognition image")
		return result
	}

	text, err := e.rec.Text()
	if err != nil {
		log.Error().Err(err).Msg("text recognition failed")
		return result
	}
	result.Text = text

	// Single forward pass over the word segments; the sequence is released
	// once consumed and is never replayed.
	words, err := e.rec.Words()
	if err != nil {
		log.Error().Err(err).Msg("word enumeration failed")
		return result
	}
	var sum float64
	for _, w := range words {
		result.Words = append(result.Words, w.Text)
		result.WordConfidences = append(result.WordConfidences, w.Confidence)
		result.BoundingBoxes = append(result.BoundingBoxes, Box{
			X:      w.Box.Min.X,
			Y:      w.Box.Min.Y,
			Width:  w.Box.Dx(),
			Height: w.Box.Dy(),
		})
		sum += w.Confidence
	}
	if len(words) > 0 {
		result.Confidence = sum / float64(len(words))
	}

	return result
}

// AnalyzeDocument recognizes the image at imagePath and classifies the
// resulting text into a DocumentInfo.
func (e *Engine) AnalyzeDocument(imagePath string) classify.DocumentInfo {
	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		log.Warn().Str("path", imagePath).Msg("failed to load image")
		return classify.Empty()
	}
	defer img.Close()

	return e.AnalyzeDocumentFromImage(img)
}

// AnalyzeDocumentFromImage recognizes an in-memory image and classifies the
// resulting text.
func (e *Engine) AnalyzeDocumentFromImage(img gocv.Mat) classify.DocumentInfo {
	result := e.ExtractTextFromImage(img)
	return e.classifier.Classify(result.Text, result.Confidence)
}

// ProcessBatch recognizes each path in order, one result per input. Failed
// items occupy their slot with the zero-valued result, so the output length
// always equals the input length. Processing is strictly sequential; the
// single native context cannot overlap calls.
func (e *Engine) ProcessBatch(imagePaths []string) []OCRResult {
	results := make([]OCRResult, 0, len(imagePaths))
	for _, path := range imagePaths {
		results = append(results, e.ExtractText(path))
	}
	return results
}
