package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TokenSource supplies the bearer credential attached to scan and confirm
// calls. Acquisition and refresh are somebody else's problem; the client
// only observes 401-style rejections.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a fixed credential.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// Remote calls the scan and confirm endpoints of a kanjo server. Transport
// failures surface as NetworkError, credential rejections as AuthError;
// an answered request is returned as-is, success flag included, so the
// caller decides how to recover.
type Remote struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// NewRemote creates a Remote client for the given server base URL.
func NewRemote(baseURL string, tokens TokenSource) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client: &http.Client{
			Timeout: 60 * time.Second, // vision models are slow on large photos
		},
	}
}

// Scan submits one captured image for OCR. The image is sent as a data URL
// so the server can recover the content type.
func (r *Remote) Scan(ctx context.Context, imageData []byte, contentType string, ledgerID string) (*ScanResponse, error) {
	req := ScanRequest{
		ImageData: fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(imageData)),
		LedgerID:  ledgerID,
	}

	var resp ScanResponse
	if err := r.post(ctx, http.MethodPost, "/api/receipts/scan", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Confirm submits the human-finalized data for a previous scan.
func (r *Remote) Confirm(ctx context.Context, scanID string, req ConfirmRequest) (*ConfirmResponse, error) {
	var resp ConfirmResponse
	path := fmt.Sprintf("/api/receipts/scan/%s/confirm", scanID)
	if err := r.post(ctx, http.MethodPut, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *Remote) post(ctx context.Context, method, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := r.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if r.tokens != nil {
		token, err := r.tokens.Token(ctx)
		if err != nil {
			return &AuthError{Endpoint: path}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Endpoint: path}
	case resp.StatusCode >= 500:
		return &NetworkError{Endpoint: path, Err: fmt.Errorf("server error (status %d)", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Endpoint: path, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
