package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/emersion/go-webdav"
)

// Environment variables holding WebDAV credentials
const (
	EnvWebDAVUser     = "COLLOQ_WEBDAV_USER"
	EnvWebDAVPassword = "COLLOQ_WEBDAV_PASSWORD"
)

// WebDAV uploads output to a path on a WebDAV server with a PUT
type WebDAV struct {
	endpoint string
	path     string
	client   *webdav.Client
}

// NewWebDAV creates a WebDAV sink. Basic auth is used when username is set.
func NewWebDAV(endpoint, path, username, password string, httpClient *http.Client) (*WebDAV, error) {
	if endpoint == "" || path == "" {
		return nil, errors.New("webdav upload needs an endpoint and a path")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var hc webdav.HTTPClient = httpClient
	if username != "" {
		hc = webdav.HTTPClientWithBasicAuth(hc, username, password)
	}
	c, err := webdav.NewClient(hc, endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating webdav client: %w", err)
	}
	return &WebDAV{endpoint: endpoint, path: path, client: c}, nil
}

// NewWebDAVFromEnv creates a WebDAV sink with credentials from the environment
func NewWebDAVFromEnv(endpoint, path string) (*WebDAV, error) {
	return NewWebDAV(endpoint, path, os.Getenv(EnvWebDAVUser), os.Getenv(EnvWebDAVPassword), nil)
}

func (w *WebDAV) Name() string { return "webdav:" + w.endpoint + " " + w.path }

func (w *WebDAV) Write(ctx context.Context, data []byte) error {
	wc, err := w.client.Create(ctx, w.path)
	if err != nil {
		return fmt.Errorf("starting upload of %s: %w", w.path, err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("uploading %s: %w", w.path, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("uploading %s: %w", w.path, err)
	}
	return nil
}
