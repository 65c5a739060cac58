// Program and input retrieval for the prover pipeline.
package prover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// Fetch errors.
var (
	ErrUnsupportedScheme = errors.New("prover: unsupported fetch scheme")
	ErrTransportFailure  = errors.New("prover: fetch transport failure")
)

// maxFetchBytes bounds a single fetched artifact. A program or input
// larger than this is a configuration mistake, not a workload.
const maxFetchBytes = 1 << 28

// FetchURL retrieves the bytes behind an http, https or file URL. Any
// other scheme is refused with ErrUnsupportedScheme. There are no
// retries; deadlines come from the caller's context. A nil client uses
// http.DefaultClient.
func FetchURL(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("prover: parse url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return fetchHTTP(ctx, client, rawURL)
	case "file":
		return fetchFile(u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func fetchHTTP(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for %s", ErrTransportFailure, resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	if len(body) > maxFetchBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrTransportFailure, maxFetchBytes)
	}
	return body, nil
}

func fetchFile(u *url.URL) ([]byte, error) {
	if u.Host != "" && u.Host != "localhost" {
		return nil, fmt.Errorf("%w: file url with host %q", ErrUnsupportedScheme, u.Host)
	}
	b, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	return b, nil
}
