package ocr

import (
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
)

// Word is one segment from the recognizer's word-level pass.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// Recognizer is the text-recognition primitive behind the engine. It holds a
// native context: Init and Close bracket its lifetime, SetImageFromBytes
// binds the image the subsequent Text and Words calls operate on. Words is a
// single forward pass in the recognizer's reading order and is only valid
// for the most recently set image. Implementations are not safe for
// concurrent use; the engine serializes access.
type Recognizer interface {
	Init(language string) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	Words() ([]Word, error)
	Close() error
}

// tesseractRecognizer backs Recognizer with a gosseract client.
type tesseractRecognizer struct {
	client *gosseract.Client
}

func newTesseractRecognizer() Recognizer {
	return &tesseractRecognizer{}
}

func (t *tesseractRecognizer) Init(language string) error {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return fmt.Errorf("set language %q: %w", language, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return fmt.Errorf("set page segmentation mode: %w", err)
	}
	t.client = client
	return nil
}

func (t *tesseractRecognizer) SetImageFromBytes(data []byte) error {
	return t.client.SetImageFromBytes(data)
}

func (t *tesseractRecognizer) Text() (string, error) {
	return t.client.Text()
}

func (t *tesseractRecognizer) Words() ([]Word, error) {
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("word bounding boxes: %w", err)
	}
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{
			Text:       b.Word,
			Confidence: b.Confidence,
			Box:        b.Box,
		})
	}
	return words, nil
}

func (t *tesseractRecognizer) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
