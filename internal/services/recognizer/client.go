package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"longbox/internal/config"
	"longbox/internal/logging"
)

// ErrSubmitFailed indicates the recognition service rejected a batch.
var ErrSubmitFailed = errors.New("recognition submission failed")

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FilePayload is one image handed to the recognition service. Data is
// base64-encoded on the wire.
type FilePayload struct {
	RelativePath string `json:"relative_path"`
	ContentType  string `json:"content_type,omitempty"`
	Data         []byte `json:"data"`
}

type submitRequest struct {
	SessionID   string        `json:"session_id"`
	Files       []FilePayload `json:"files"`
	ProgressURL string        `json:"progress_url"`
	CompleteURL string        `json:"complete_url"`
	ErrorURL    string        `json:"error_url"`
}

// Client submits recognition batches to the external service. Results arrive
// later through the callback endpoints, not on this request.
type Client struct {
	baseURL         string
	apiKey          string
	callbackBaseURL string
	http            HTTPDoer
	logger          *slog.Logger
}

// New builds a client from the configured recognizer connection settings.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	return NewWithHTTPClient(cfg, &http.Client{Timeout: cfg.RecognizerTimeout()}, logger)
}

// NewWithHTTPClient builds a client with an explicit HTTP transport.
func NewWithHTTPClient(cfg *config.Config, doer HTTPDoer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.Recognizer.URL, "/"),
		apiKey:          cfg.Recognizer.APIKey,
		callbackBaseURL: strings.TrimRight(cfg.Recognizer.CallbackBaseURL, "/"),
		http:            doer,
		logger:          logging.WithComponent(logger, "recognizer"),
	}
}

// Submit sends one batch of images for asynchronous recognition. A nil error
// means the service accepted the batch; it says nothing about the outcome.
func (c *Client) Submit(ctx context.Context, sessionID string, files []FilePayload) error {
	if sessionID == "" {
		return errors.New("session id required")
	}
	if len(files) == 0 {
		return errors.New("empty batch")
	}

	payload := submitRequest{
		SessionID:   sessionID,
		Files:       files,
		ProgressURL: c.callbackBaseURL + "/api/callbacks/progress",
		CompleteURL: c.callbackBaseURL + "/api/callbacks/complete",
		ErrorURL:    c.callbackBaseURL + "/api/callbacks/error",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Info("submitting recognition batch",
		logging.String(logging.FieldSessionID, sessionID),
		logging.Int("files", len(files)))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readErrorBody(resp.Body)
		if detail != "" {
			return fmt.Errorf("%w: status %d: %s", ErrSubmitFailed, resp.StatusCode, detail)
		}
		return fmt.Errorf("%w: status %d", ErrSubmitFailed, resp.StatusCode)
	}
	return nil
}

func readErrorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 2048))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
