package opencast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ocingest/internal/config"
	"ocingest/internal/logging"
	"ocingest/internal/services"
)

// HTTPDoer describes the HTTP client used by the Opencast client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues authenticated Opencast requests.
type Client struct {
	baseURL        string
	user           string
	password       string
	httpClient     HTTPDoer
	requestTimeout time.Duration
	ingestTimeout  time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeouts sets the per-request and ingest timeouts. Non-positive values
// keep the defaults.
func WithTimeouts(request, ingest time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.requestTimeout = request
		}
		if ingest > 0 {
			c.ingestTimeout = ingest
		}
	}
}

// WithRateLimit caps requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "opencast")
	}
}

// New creates an Opencast client.
func New(baseURL, user, password string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("opencast base url required")
	}
	client := &Client{
		baseURL:        baseURL,
		user:           strings.TrimSpace(user),
		password:       password,
		httpClient:     http.DefaultClient,
		requestTimeout: 10 * time.Second,
		ingestTimeout:  100 * time.Minute,
		logger:         logging.NewComponentLogger(nil, "opencast"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the [opencast] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("opencast client requires configuration")
	}
	base := []Option{
		WithTimeouts(cfg.RequestTimeout(), cfg.IngestTimeout()),
		WithRateLimit(cfg.Opencast.RequestsPerSecond),
		WithLogger(logger),
	}
	return New(cfg.Opencast.URL, cfg.Opencast.User, cfg.Opencast.Password, append(base, opts...)...)
}

type request struct {
	method string
	path   string
	// form is sent url-encoded when files is empty.
	form  url.Values
	files []filePart
	long  bool
	// allow lists non-2xx statuses returned to the caller instead of failing.
	allow []int
}

type filePart struct {
	field string
	path  string
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, req request) (response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return response{}, err
		}
	}
	timeout := c.requestTimeout
	if req.long {
		timeout = c.ingestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, contentType, err := c.encodeBody(req)
	if err != nil {
		return response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return response{}, fmt.Errorf("build opencast request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.SetBasicAuth(c.user, c.password)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return response{}, services.Wrap(marker, "opencast", req.method+" "+req.path, "request failed", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, services.Wrap(services.ErrExternalTool, "opencast", req.method+" "+req.path, "read response", err)
	}
	c.logger.Debug("opencast request",
		logging.String("method", req.method),
		logging.String("path", req.path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return response{status: resp.StatusCode, body: data}, nil
	}
	for _, allowed := range req.allow {
		if resp.StatusCode == allowed {
			return response{status: resp.StatusCode, body: data}, nil
		}
	}
	reqErr := &RequestError{Method: req.method, Path: req.path, Status: resp.StatusCode, Body: excerpt(data)}
	return response{}, services.Wrap(services.ErrExternalTool, "opencast", req.method+" "+req.path, "", reqErr)
}

func (c *Client) encodeBody(req request) (io.Reader, string, error) {
	if len(req.files) == 0 {
		if len(req.form) == 0 {
			return nil, "", nil
		}
		return strings.NewReader(req.form.Encode()), "application/x-www-form-urlencoded", nil
	}
	for _, part := range req.files {
		info, err := os.Stat(part.path)
		if err != nil {
			return nil, "", fmt.Errorf("upload %s: %w", part.path, err)
		}
		if !info.Mode().IsRegular() {
			return nil, "", fmt.Errorf("upload %s: not a regular file", part.path)
		}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(writer, req))
	}()
	return pr, writer.FormDataContentType(), nil
}

// writeMultipart streams form fields first and files last; Opencast reads
// the media package field before it consumes the file body.
func writeMultipart(writer *multipart.Writer, req request) error {
	keys := make([]string, 0, len(req.form))
	for key := range req.form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range req.form[key] {
			if err := writer.WriteField(key, value); err != nil {
				return err
			}
		}
	}
	for _, part := range req.files {
		if err := copyFilePart(writer, part); err != nil {
			return err
		}
	}
	return writer.Close()
}

func copyFilePart(writer *multipart.Writer, part filePart) error {
	in, err := os.Open(part.path)
	if err != nil {
		return err
	}
	defer in.Close()
	dst, err := writer.CreateFormFile(part.field, filepath.Base(part.path))
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, in)
	return err
}
