package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenProvider resolves the OAuth token and address for one connected
// account. The account controller owns the token lifecycle; clients just ask.
type TokenProvider interface {
	Token(ctx context.Context, accountID uint) (*oauth2.Token, error)
	Email(accountID uint) string
}

// apiError is a non-2xx reply from a provider endpoint.
type apiError struct {
	Status int
	URL    string
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.URL, e.Status, e.Body)
}

// doJSON performs one authenticated request and decodes the JSON reply into
// out. A nil out discards the body.
func doJSON(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, method, url string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := cfg.Client(ctx, token)
	client.Timeout = 30 * time.Second

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apiError{Status: resp.StatusCode, URL: url, Body: string(snippet)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
