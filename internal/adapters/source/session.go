// Package source retrieves team and valuation pages over HTTP, caches them as
// snapshots and extracts their tables.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/squadlink/pkg/logger"
	"github.com/okian/squadlink/pkg/metrics"
)

// Defaults for a Session.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) squadlink/1.0"

	errorExcerptBytes = 4096
	snapshotExt       = ".html"
)

// Fetch outcomes reported to metrics.
const (
	originSnapshot = "snapshot"
	originNetwork  = "network"
	outcomeOK      = "ok"
	outcomeError   = "error"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		if c != nil {
			s.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(s *Session) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDelay sets the pause taken before every network request.
func WithDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithSnapshotDir enables the snapshot cache in dir.
func WithSnapshotDir(dir string) Option {
	return func(s *Session) { s.snapshotDir = dir }
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Session owns the resources used to retrieve pages. It is safe for
// concurrent use and must be closed when done.
type Session struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	delay       time.Duration
	snapshotDir string
	log         logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewSession creates a Session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		client:    &http.Client{},
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("source")
	}
	return s
}

// WithSession opens a Session, runs fn with it and closes it on every exit
// path. A close error is reported only when fn succeeded.
func WithSession(ctx context.Context, fn func(context.Context, *Session) error, opts ...Option) (err error) {
	s := NewSession(opts...)
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, s)
}

// Close releases idle connections. Further fetches fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}

// Fetch returns the body of url. A snapshot of the page is used when one
// exists; otherwise the page is requested after the politeness delay and
// saved as a snapshot on success.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return "", ErrSessionClosed
	}

	if body, ok := s.readSnapshot(url); ok {
		metrics.RecordPageFetched(originSnapshot, outcomeOK)
		s.log.Debug(ctx, "snapshot hit", logger.String("url", url))
		return body, nil
	}

	if err := s.wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	body, err := s.get(ctx, url)
	metrics.RecordFetchLatency(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordPageFetched(originNetwork, outcomeError)
		return "", err
	}
	metrics.RecordPageFetched(originNetwork, outcomeOK)

	if err := s.writeSnapshot(url, body); err != nil {
		s.log.Warn(ctx, "failed to save snapshot", logger.String("url", url), logger.Error(err))
	}
	return body, nil
}

func (s *Session) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Session) get(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorExcerptBytes))
		return "", fmt.Errorf("%w: %s: %d: %s", ErrHTTPStatus, url, resp.StatusCode, string(excerpt))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(b), nil
}

// SnapshotPath returns the file used to cache url, or "" when the cache is
// disabled.
func (s *Session) SnapshotPath(url string) string {
	if s.snapshotDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(s.snapshotDir, hex.EncodeToString(sum[:12])+snapshotExt)
}

func (s *Session) readSnapshot(url string) (string, bool) {
	path := s.SnapshotPath(url)
	if path == "" {
		return "", false
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (s *Session) writeSnapshot(url, body string) error {
	path := s.SnapshotPath(url)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.CreateTemp(s.snapshotDir, "snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := f.WriteString(body); err != nil {
		return errors.Join(fmt.Errorf("write snapshot: %w", err), f.Close(), os.Remove(f.Name()))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("close snapshot: %w", err), os.Remove(f.Name()))
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return errors.Join(fmt.Errorf("rename snapshot: %w", err), os.Remove(f.Name()))
	}
	return nil
}
