// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
)

// MockFetcher is a test double for [services.Fetcher] keyed by locator.
type MockFetcher struct {
	mu            sync.Mutex
	Metadata      map[string]models.PlaylistMetadata
	Results       map[string]services.FetchResult
	Auth          bool
	MetadataCalls int
	FetchCalls    int
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Metadata: make(map[string]models.PlaylistMetadata),
		Results:  make(map[string]services.FetchResult),
	}
}

// SetItems makes FetchItems for locator succeed with items.
func (m *MockFetcher) SetItems(locator string, items ...models.RemoteVideo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[locator] = services.FetchResult{Items: items, OK: true}
}

// SetResult sets the raw FetchItems result for locator.
func (m *MockFetcher) SetResult(locator string, res services.FetchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[locator] = res
}

func (m *MockFetcher) SetMetadata(locator string, meta models.PlaylistMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Metadata[locator] = meta
}

func (m *MockFetcher) ExtractID(locator string) string {
	return services.ExtractPlaylistID(locator)
}

func (m *MockFetcher) FetchMetadata(ctx context.Context, locator string) models.PlaylistMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MetadataCalls++
	if meta, ok := m.Metadata[locator]; ok {
		return meta
	}
	return models.UnknownMetadata(m.ExtractID(locator))
}

func (m *MockFetcher) FetchItems(ctx context.Context, locator string) services.FetchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if res, ok := m.Results[locator]; ok {
		return res
	}
	return services.FetchResult{OK: true}
}

func (m *MockFetcher) AuthConfigured() bool { return m.Auth }

// DownloadCall records one call to [MockDownloader.Download].
type DownloadCall struct {
	VideoID string
	Dir     string
}

// MockDownloader is a test double for [services.Downloader] and [services.Prober].
type MockDownloader struct {
	mu         sync.Mutex
	Fail       map[string]bool
	Calls      []DownloadCall
	Delay      time.Duration
	Ver        string
	VersionErr error
}

func NewMockDownloader() *MockDownloader {
	return &MockDownloader{Fail: make(map[string]bool), Ver: "2025.01.01"}
}

func (m *MockDownloader) Download(ctx context.Context, video models.Video, dir string) bool {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, DownloadCall{VideoID: video.ID(), Dir: dir})
	return !m.Fail[video.ID()]
}

// CallCount returns the number of Download calls so far.
func (m *MockDownloader) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockDownloader) Available(ctx context.Context) bool {
	return m.VersionErr == nil
}

func (m *MockDownloader) Version(ctx context.Context) (string, error) {
	return m.Ver, m.VersionErr
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
