package isapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	requestTimeout        = 30 * time.Second
	defaultReconnectDelay = 5 * time.Second
	chunkSize             = 4096
)

// Credentials identify one NVR endpoint. Immutable for the client's lifetime.
type Credentials struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
}

// StatusError is returned for unexpected (non-200, non-401) HTTP statuses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// Client is an ISAPI HTTP client with digest authentication.
//
// One-shot requests get a 30 second timeout; streams stay open until their
// context is cancelled.
type Client struct {
	creds          Credentials
	auth           *digestAuth
	oneShot        *http.Client
	streaming      *http.Client
	reconnectDelay time.Duration
	logger         *slog.Logger
}

// NewClient creates a client for one NVR.
func NewClient(creds Credentials, logger *slog.Logger) *Client {
	return &Client{
		creds:          creds,
		auth:           newDigestAuth(creds.Username, creds.Password),
		oneShot:        &http.Client{Timeout: requestTimeout},
		streaming:      &http.Client{},
		reconnectDelay: defaultReconnectDelay,
		logger:         logger,
	}
}

// BaseURL returns the scheme://host:port prefix for this NVR.
func (c *Client) BaseURL() string {
	scheme := "http"
	if c.creds.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.creds.Host, c.creds.Port)
}

// Host returns the configured NVR host.
func (c *Client) Host() string { return c.creds.Host }

// Username returns the configured NVR username.
func (c *Client) Username() string { return c.creds.Username }

// Password returns the configured NVR password.
func (c *Client) Password() string { return c.creds.Password }

// Get performs an authenticated GET and parses the XML body into a Document.
func (c *Client) Get(ctx context.Context, path string) (Document, error) {
	body, err := c.GetRaw(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := ParseXML(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	return doc, nil
}

// GetRaw performs an authenticated GET and returns the raw body bytes.
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// do issues the two-phase digest request: try with whatever auth state we
// have, and on 401 parse the fresh challenge and retry exactly once. Any
// other non-200 status is a StatusError.
func (c *Client) do(ctx context.Context, method, path string, stream bool) (*http.Response, error) {
	resp, err := c.request(ctx, method, path, stream)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		header := resp.Header.Get("WWW-Authenticate")
		// Drain and close so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if header == "" {
			return nil, fmt.Errorf("401 response without WWW-Authenticate header")
		}
		c.auth.setChallenge(header)

		resp, err = c.request(ctx, method, path, stream)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode != http.StatusOK {
		code := resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Code: code}
	}

	return resp, nil
}

// request issues a single HTTP request, attaching an Authorization header
// when a digest challenge is available.
func (c *Client) request(ctx context.Context, method, path string, stream bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	if c.auth.hasChallenge() {
		header, authErr := c.auth.authorize(method, path)
		if authErr != nil {
			return nil, authErr
		}
		req.Header.Set("Authorization", header)
	}

	httpc := c.oneShot
	if stream {
		httpc = c.streaming
	}
	return httpc.Do(req)
}

// StreamHandlers carries optional callbacks for stream lifecycle changes.
type StreamHandlers struct {
	// OnConnect is called each time the stream (re)connects.
	OnConnect func()
	// OnDisconnect is called when the connection drops; a reconnect attempt
	// follows after a fixed delay unless the stream has been closed.
	OnDisconnect func(err error)
}

// Stream is a persistent response-body feed. Chunks arrive on Chunks() as
// they are read; the channel is closed when the stream is closed.
type Stream struct {
	chunks chan []byte
	cancel context.CancelFunc
	done   chan struct{}
}

// Chunks returns the channel carrying body chunks.
func (s *Stream) Chunks() <-chan []byte { return s.chunks }

// Close cancels the stream, including any pending reconnection attempt,
// and waits for the read loop to finish.
func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

// OpenStream opens a persistent feed for the given path. The read loop runs
// in its own goroutine and reconnects after a fixed 5 second delay on any
// error or stream end, indefinitely, until Close is called.
func (c *Client) OpenStream(ctx context.Context, path string, handlers StreamHandlers) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		chunks: make(chan []byte),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.chunks)
		c.runStream(ctx, path, s, handlers)
	}()

	return s
}

// runStream is the connect/read/reconnect loop.
func (c *Client) runStream(ctx context.Context, path string, s *Stream, handlers StreamHandlers) {
	for {
		err := c.readStreamOnce(ctx, path, s, handlers)
		if ctx.Err() != nil {
			return
		}

		if handlers.OnDisconnect != nil {
			handlers.OnDisconnect(err)
		}
		c.logger.Debug("Stream disconnected, reconnecting", "path", path, "delay", c.reconnectDelay, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

// readStreamOnce opens one connection and forwards body chunks until the
// connection ends. A nil return means the server closed the stream cleanly.
func (c *Client) readStreamOnce(ctx context.Context, path string, s *Stream, handlers StreamHandlers) error {
	resp, err := c.do(ctx, http.MethodGet, path, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if handlers.OnConnect != nil {
		handlers.OnConnect()
	}

	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return readErr
		}
	}
}
