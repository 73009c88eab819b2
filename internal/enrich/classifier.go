package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"whatsthedamage/internal/core"
)

// Classifier delegates categorization to an external classification service
// over HTTP. The service returns a label plus a confidence score; confidence
// is informational only and never gates the label.
type Classifier struct {
	endpoint   string
	httpClient *http.Client
}

var (
	_ Categorizer      = (*Classifier)(nil)
	_ BatchCategorizer = (*Classifier)(nil)
)

func NewClassifier(endpoint string) *Classifier {
	return &Classifier{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type classifyRequest struct {
	Type     string `json:"type"`
	Partner  string `json:"partner"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type classifyResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Categorize classifies a single row.
func (c *Classifier) Categorize(ctx context.Context, row core.Row) (string, error) {
	resp, err := c.post(ctx, "/classify", classifyRequest{
		Type:     row.Type,
		Partner:  row.Partner,
		Amount:   row.Amount,
		Currency: row.Currency,
	})
	if err != nil {
		return "", err
	}

	var out classifyResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", fmt.Errorf("decode classifier response: %w", err)
	}
	return out.Category, nil
}

// CategorizeAll classifies a whole row list in one call and returns the rows
// with Category overwritten by the service's labels.
func (c *Classifier) CategorizeAll(ctx context.Context, rows []core.Row) ([]core.Row, error) {
	reqs := make([]classifyRequest, len(rows))
	for i, row := range rows {
		reqs[i] = classifyRequest{
			Type:     row.Type,
			Partner:  row.Partner,
			Amount:   row.Amount,
			Currency: row.Currency,
		}
	}

	resp, err := c.post(ctx, "/classify/batch", reqs)
	if err != nil {
		return nil, err
	}

	var out []classifyResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("decode classifier batch response: %w", err)
	}
	if len(out) != len(rows) {
		return nil, fmt.Errorf("classifier returned %d labels for %d rows", len(out), len(rows))
	}

	labeled := make([]core.Row, len(rows))
	for i, row := range rows {
		row.Category = out[i].Category
		if row.Category == "" {
			row.Category = FallbackCategory(row)
		}
		labeled[i] = row
	}
	return labeled, nil
}

func (c *Classifier) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read classifier response: %w", err)
	}
	return data, nil
}
