package study

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studynotes/internal/notes/model"
)

var ErrSaveRejected = errors.New("notes server rejected the save")

// Remote is where the topic store loads from and saves to.
type Remote interface {
	Fetch(ctx context.Context) (model.Document, error)
	Push(ctx context.Context, doc model.Document) error
}

// HTTPRemote talks to a notes server over GET/POST /notes.
type HTTPRemote struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPRemote(baseURL string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRemote) Fetch(ctx context.Context) (model.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/notes", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch notes: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read notes: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch notes: unexpected status %d", resp.StatusCode)
	}
	return model.Decode(raw)
}

// Push sends the whole document. Both the status code and the success flag
// in the body are checked.
func (r *HTTPRemote) Push(ctx context.Context, doc model.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/notes", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	defer resp.Body.Close()

	var result model.SaveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("save notes: status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		return fmt.Errorf("%w: status %d: %s", ErrSaveRejected, resp.StatusCode, result.Error)
	}
	return nil
}
