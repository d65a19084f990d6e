package extraction

import (
	"context"
	"errors"
	"testing"

	"claimflow/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOCR struct {
	mock.Mock
}

func (m *mockOCR) ExtractText(ctx context.Context, content []byte, contentType string) (OCRResult, error) {
	args := m.Called(ctx, content, contentType)
	return args.Get(0).(OCRResult), args.Error(1)
}

func TestAdapterExtract(t *testing.T) {
	ctx := context.Background()
	pdf := []byte("%PDF-1.7")

	t.Run("parses provider text", func(t *testing.T) {
		ocr := new(mockOCR)
		ocr.On("ExtractText", ctx, pdf, "application/pdf").
			Return(OCRResult{Text: boardingPass, Confidence: 0.93}, nil)

		fd, err := NewAdapter(ocr, nil).Extract(ctx, pdf, "application/pdf")

		require.NoError(t, err)
		assert.Equal(t, "LA3456", fd.FlightNumber)
		assert.Equal(t, 100.0, fd.Confidence)
		assert.Equal(t, 0.93, fd.OCRConfidence)
		assert.Equal(t, boardingPass, fd.RawText)
		ocr.AssertExpectations(t)
	})

	t.Run("accepts content type parameters", func(t *testing.T) {
		ocr := new(mockOCR)
		ocr.On("ExtractText", ctx, pdf, "image/png; charset=binary").
			Return(OCRResult{Text: "AA1234"}, nil)

		fd, err := NewAdapter(ocr, nil).Extract(ctx, pdf, "image/png; charset=binary")
		require.NoError(t, err)
		assert.Equal(t, 25.0, fd.Confidence)
	})

	t.Run("rejects unsupported content type", func(t *testing.T) {
		ocr := new(mockOCR)

		_, err := NewAdapter(ocr, nil).Extract(ctx, pdf, "text/plain")

		assert.True(t, apperr.Is(err, apperr.KindValidationInput))
		ocr.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no text is an ocr failure", func(t *testing.T) {
		ocr := new(mockOCR)
		ocr.On("ExtractText", ctx, pdf, "image/jpeg").Return(OCRResult{Text: "  \n "}, nil)

		_, err := NewAdapter(ocr, nil).Extract(ctx, pdf, "image/jpeg")

		assert.True(t, apperr.Is(err, apperr.KindProvider))
		var failure *OCRFailure
		require.ErrorAs(t, err, &failure)
		assert.Contains(t, failure.Message, "no text")
	})

	t.Run("provider error", func(t *testing.T) {
		ocr := new(mockOCR)
		ocr.On("ExtractText", ctx, pdf, "image/jpeg").Return(OCRResult{}, errors.New("quota exceeded"))

		_, err := NewAdapter(ocr, nil).Extract(ctx, pdf, "image/jpeg")

		assert.True(t, apperr.Is(err, apperr.KindProvider))
		assert.Contains(t, err.Error(), "quota exceeded")
	})
}

func TestIsSupportedContentType(t *testing.T) {
	for _, ct := range []string{"application/pdf", "image/jpeg", "image/png", "IMAGE/PNG"} {
		assert.True(t, IsSupportedContentType(ct), ct)
	}
	for _, ct := range []string{"", "image/gif", "application/zip", "not a type"} {
		assert.False(t, IsSupportedContentType(ct), ct)
	}
}
