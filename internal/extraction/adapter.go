// Package extraction turns claim documents into structured flight data.
package extraction

import (
	"context"
	"mime"
	"strings"
	"time"

	"go.uber.org/zap"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
)

var supportedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

// IsSupportedContentType reports whether ct names a PDF, JPEG or PNG document.
func IsSupportedContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return supportedContentTypes[strings.ToLower(mt)]
}

// OCRFailure means the provider answered but found no text. It is not retried.
type OCRFailure struct {
	Message string
}

func (e *OCRFailure) Error() string { return "ocr failure: " + e.Message }

// Adapter wraps an OCR provider and parses its output.
type Adapter struct {
	provider OCRProvider
	logger   *zap.Logger
	now      func() time.Time
}

func NewAdapter(provider OCRProvider, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{provider: provider, logger: logger, now: time.Now}
}

// Extract runs OCR over content and parses the text into flight data.
func (a *Adapter) Extract(ctx context.Context, content []byte, contentType string) (*model.FlightData, error) {
	if !IsSupportedContentType(contentType) {
		return nil, apperr.InvalidInput("unsupported content type " + contentType)
	}
	if len(content) == 0 {
		return nil, apperr.InvalidInput("document is empty")
	}

	res, err := a.provider.ExtractText(ctx, content, contentType)
	if err != nil {
		return nil, apperr.Provider(err, "ocr provider")
	}
	if strings.TrimSpace(res.Text) == "" {
		return nil, apperr.Wrap(apperr.KindProvider, &OCRFailure{Message: "no text detected in document"}, "ocr")
	}

	fd := ParseFlightData(res.Text, a.now())
	fd.OCRConfidence = res.Confidence
	fd.RawText = res.Text

	a.logger.Debug("flight data extracted",
		zap.String("flight_number", fd.FlightNumber),
		zap.Float64("confidence", fd.Confidence),
		zap.Int("text_length", len(res.Text)),
	)
	return fd, nil
}
