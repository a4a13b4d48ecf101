package portal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tenderscope/tenderscope/internal/model"
)

// OCR extracts text from specific pages of a document. Page numbers are
// zero-based. The returned map holds one entry per successfully extracted
// page; pages beyond the end of the document are simply absent.
type OCR interface {
	ExtractPages(ctx context.Context, content []byte, pages []int) (map[int]string, error)
}

// MistralOCR calls the Mistral OCR endpoint with the document inlined as a
// base64 data URL.
type MistralOCR struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewMistralOCR builds the OCR client from config, reading the API key from
// the configured environment variable.
func NewMistralOCR(cfg model.OCRConfig) *MistralOCR {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &MistralOCR{
		baseURL: baseURL,
		apiKey:  os.Getenv(cfg.APIKeyEnv),
		http:    &http.Client{Timeout: timeout},
	}
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
	Pages    []int       `json:"pages,omitempty"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

func (o *MistralOCR) ExtractPages(ctx context.Context, content []byte, pages []int) (map[int]string, error) {
	dataURL := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(content)
	payload, err := json.Marshal(ocrRequest{
		Model:    "mistral-ocr-latest",
		Document: ocrDocument{Type: "document_url", DocumentURL: dataURL},
		Pages:    pages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/ocr", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ocr status %s", resp.Status)
	}

	var decoded ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}
	out := make(map[int]string, len(decoded.Pages))
	for _, p := range decoded.Pages {
		out[p.Index] = p.Markdown
	}
	return out, nil
}
