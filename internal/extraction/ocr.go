package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"claimflow/internal/resilience"
)

// OCRResult is the provider's text and its mean word confidence (0-1).
type OCRResult struct {
	Text       string
	Confidence float64
}

// OCRProvider turns document bytes into text.
type OCRProvider interface {
	ExtractText(ctx context.Context, content []byte, contentType string) (OCRResult, error)
}

// visionResponse mirrors the read-analysis payload: blocks of lines of words.
type visionResponse struct {
	Blocks []struct {
		Lines []struct {
			Content string `json:"content"`
			Words   []struct {
				Text       string   `json:"text"`
				Confidence *float64 `json:"confidence"`
			} `json:"words"`
		} `json:"lines"`
	} `json:"blocks"`
}

// VisionClient calls an HTTP text-analysis endpoint.
type VisionClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewVisionClient(endpoint, apiKey string, timeout time.Duration) *VisionClient {
	return &VisionClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

var _ OCRProvider = (*VisionClient)(nil)

func (c *VisionClient) ExtractText(ctx context.Context, content []byte, contentType string) (OCRResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(content))
	if err != nil {
		return OCRResult{}, eris.Wrap(err, "build ocr request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return OCRResult{}, eris.Wrap(err, "ocr request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("ocr provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return OCRResult{}, resilience.NewTransientError(err, resp.StatusCode)
		}
		return OCRResult{}, err
	}

	var vr visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return OCRResult{}, eris.Wrap(err, "decode ocr response")
	}

	blocks := make([]string, 0, len(vr.Blocks))
	var sum float64
	var n int
	for _, b := range vr.Blocks {
		lines := make([]string, 0, len(b.Lines))
		for _, l := range b.Lines {
			lines = append(lines, l.Content)
			for _, w := range l.Words {
				if w.Confidence != nil {
					sum += *w.Confidence
					n++
				}
			}
		}
		blocks = append(blocks, strings.Join(lines, " "))
	}

	res := OCRResult{Text: strings.Join(blocks, "\n")}
	if n > 0 {
		res.Confidence = sum / float64(n)
	}
	return res, nil
}
