package workflow

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/shouni/portrait-flow-kit/pkg/domain"
)

// --- Mocks ---

type mockGenerator struct {
	generateFunc func(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedImage, error)
	calls        int32
}

func (m *mockGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedImage, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &domain.GeneratedImage{Base64: "ZmFrZQ==", Data: []byte("fake"), MimeType: "image/png"}, nil
}

func (m *mockGenerator) callCount() int {
	return int(atomic.LoadInt32(&m.calls))
}

type mockHandle struct {
	uri      string
	releases int
}

func (m *mockHandle) URI() string {
	if m.releases > 0 {
		return ""
	}
	return m.uri
}

func (m *mockHandle) Release() error {
	m.releases++
	return nil
}

// mockPreviews は作成した全ハンドルを記録し、解放回数の検証に使うのだ。
type mockPreviews struct {
	handles []*mockHandle
	err     error
}

func (m *mockPreviews) New(file *domain.SelectedFile) (PreviewHandle, error) {
	if m.err != nil {
		return nil, m.err
	}
	h := &mockHandle{uri: "mem://" + file.Name}
	m.handles = append(m.handles, h)
	return h, nil
}

type mockReader struct {
	openFunc func(ctx context.Context, uri string) (io.ReadCloser, error)
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if m.openFunc != nil {
		return m.openFunc(ctx, uri)
	}
	return nil, nil
}

func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	return nil
}

// mockHTTPClient は httpkit.ClientInterface を実装します。
type mockHTTPClient struct {
	fetchFunc func(ctx context.Context, url string) ([]byte, error)
	fetches   int
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.fetches++
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, url)
	}
	return nil, nil
}

// インターフェースを満たすための空実装群なのだ
func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return nil, nil
}

func (m *mockHTTPClient) DoRequest(req *http.Request) ([]byte, error) {
	return nil, nil
}

func (m *mockHTTPClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	return nil
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	return nil, nil
}

func (m *mockHTTPClient) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return nil, nil
}

func (m *mockHTTPClient) IsSafeURL(urlStr string) (bool, error) {
	return true, nil
}

func (m *mockHTTPClient) IsSecureServiceURL(serviceURL string) bool {
	return true
}
