package scanning

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements TextExtractor using a local Tesseract install via
// gosseract. A client is created per call since gosseract clients are not
// safe for concurrent use.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract text extractor. With no languages
// given, German and English are used, matching typical receipts.
func NewTesseract(languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"deu", "eng"}
	}
	return &Tesseract{languages: languages}
}

// ExtractText runs OCR on a receipt document. The document is normalized
// to PNG first so PDFs and HEIC photos work too.
func (t *Tesseract) ExtractText(imageData []byte, contentType string) (string, error) {
	pngData, err := NormalizeImage(imageData, contentType)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting OCR languages: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("loading image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running OCR: %w", err)
	}
	return text, nil
}

// NoOCR is a TextExtractor that always yields an empty hint. Used when
// Tesseract is not installed; extraction then relies on the image alone.
type NoOCR struct{}

func (NoOCR) ExtractText([]byte, string) (string, error) {
	return "", nil
}
