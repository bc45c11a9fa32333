package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const apiVersion = "2023-07-31"

// AzureClient calls the Azure Document Intelligence REST API: it submits
// document bytes to the prebuilt-layout model and polls the returned
// operation until analysis completes.
type AzureClient struct {
	endpoint     string
	key          string
	httpClient   *http.Client
	pollInterval time.Duration
}

func NewAzureClient(endpoint, key string, pollInterval time.Duration) *AzureClient {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &AzureClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      key,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		pollInterval: pollInterval,
	}
}

// ProviderError is a definitive provider-side failure (bad request,
// auth, analysis failed). It is reported per document and never aborts
// sibling documents.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ocr provider status %d: %s", e.Status, truncate(e.Message, 200))
	}
	return fmt.Sprintf("ocr provider: %s", truncate(e.Message, 200))
}

// RetryableError indicates a transient provider failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Analyze submits the document and blocks until the analysis operation
// completes, honoring ctx for cancellation.
func (c *AzureClient) Analyze(ctx context.Context, data []byte, filename string) (*Document, error) {
	opURL, err := c.beginAnalyze(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		result, done, err := c.pollResult(ctx, opURL)
		if err != nil {
			return nil, err
		}
		if !done {
			continue
		}

		doc := convertResult(result)
		if doc.Empty() {
			return nil, ErrNoTextExtracted
		}
		return doc, nil
	}
}

func (c *AzureClient) beginAnalyze(ctx context.Context, data []byte, filename string) (string, error) {
	u := fmt.Sprintf("%s/formrecognizer/documentModels/prebuilt-layout:analyze?api-version=%s", c.endpoint, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeFor(filename))
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("begin analyze: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", &ProviderError{Status: resp.StatusCode, Message: string(body)}
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", &ProviderError{Message: "missing Operation-Location header"}
	}
	return opURL, nil
}

func (c *AzureClient) pollResult(ctx context.Context, opURL string) (*analyzeResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("poll result: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, false, fmt.Errorf("read result: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, false, &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, &ProviderError{Status: resp.StatusCode, Message: string(body)}
	}

	var op operationResponse
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, false, fmt.Errorf("decode result: %w", err)
	}

	switch op.Status {
	case "succeeded":
		if op.AnalyzeResult == nil {
			return nil, false, &ProviderError{Message: "succeeded without analyzeResult"}
		}
		return op.AnalyzeResult, true, nil
	case "failed":
		msg := "analysis failed"
		if op.Error != nil {
			msg = fmt.Sprintf("%s: %s", op.Error.Code, op.Error.Message)
		}
		return nil, false, &ProviderError{Message: msg}
	default: // notStarted, running
		return nil, false, nil
	}
}

type operationResponse struct {
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
}

type analyzeResult struct {
	Pages []struct {
		PageNumber int `json:"pageNumber"`
		Lines      []struct {
			Content string    `json:"content"`
			Polygon []float64 `json:"polygon"`
		} `json:"lines"`
	} `json:"pages"`
	Tables []struct {
		BoundingRegions []struct {
			PageNumber int `json:"pageNumber"`
		} `json:"boundingRegions"`
		Cells []struct {
			Kind        string `json:"kind"`
			RowIndex    int    `json:"rowIndex"`
			ColumnIndex int    `json:"columnIndex"`
			Content     string `json:"content"`
		} `json:"cells"`
	} `json:"tables"`
}

func convertResult(r *analyzeResult) *Document {
	doc := &Document{}
	pageIndex := make(map[int]int)

	for _, p := range r.Pages {
		page := Page{Number: p.PageNumber}
		for _, l := range p.Lines {
			line := Line{Text: l.Content}
			if len(l.Polygon) >= 2 {
				line.X = l.Polygon[0]
				line.Y = l.Polygon[1]
			}
			page.Lines = append(page.Lines, line)
		}
		pageIndex[p.PageNumber] = len(doc.Pages)
		doc.Pages = append(doc.Pages, page)
	}

	for _, t := range r.Tables {
		pageNum := 1
		if len(t.BoundingRegions) > 0 {
			pageNum = t.BoundingRegions[0].PageNumber
		}
		idx, ok := pageIndex[pageNum]
		if !ok {
			idx = len(doc.Pages)
			pageIndex[pageNum] = idx
			doc.Pages = append(doc.Pages, Page{Number: pageNum})
		}
		for _, cell := range t.Cells {
			kind := CellData
			if cell.Kind == "columnHeader" || cell.Kind == "rowHeader" {
				kind = CellHeader
			}
			doc.Pages[idx].Cells = append(doc.Pages[idx].Cells, TableCell{
				Text:   cell.Content,
				Row:    cell.RowIndex,
				Column: cell.ColumnIndex,
				Kind:   kind,
			})
		}
	}
	return doc
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (c *AzureClient) Close() {
	c.httpClient.CloseIdleConnections()
}
