// Package client は生成エンドポイント（POST {base}/generate）との通信を担当します。
// multipart の組み立て、60秒のタイムアウト、レスポンスのエラー分類までが責務で、
// UI状態への反映は pkg/workflow 側が行います。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/shouni/portrait-flow-kit/pkg/domain"
	"github.com/shouni/portrait-flow-kit/pkg/imgutil"
)

// DefaultTimeout は生成リクエスト1回あたりの往復予算です。
const DefaultTimeout = 60 * time.Second

// 診断ログに残すレスポンスボディの上限バイト数
const maxLoggedBody = 512

// Client は生成エンドポイントへのHTTPクライアントです。
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option は Client の生成オプションです。
type Option func(*Client)

// WithTimeout は往復予算を差し替えます（主にテスト用）。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient は下位の http.Client を差し替えます。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New は Client を初期化します。
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate はファイル群を multipart で送信し、生成結果を返します。
// 期限超過は ErrTimeout、非成功ステータスは *APIError として分類されます。
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedImage, error) {
	if len(req.Parts) == 0 {
		return nil, fmt.Errorf("at least one file part is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := buildMultipart(req)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	slog.Info("生成リクエストを送信します", "url", url, "parts", len(req.Parts), "mode", req.Mode)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, parseAPIError(resp.StatusCode, raw)
	}

	var success struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(raw, &success); err != nil {
		return nil, fmt.Errorf("レスポンスの解析に失敗しました: %w", err)
	}
	if success.Result == "" {
		return nil, fmt.Errorf("レスポンスに result フィールドがありません")
	}

	data, err := imgutil.FromBase64(success.Result)
	if err != nil {
		return nil, fmt.Errorf("生成画像のデコードに失敗しました: %w", err)
	}

	return &domain.GeneratedImage{
		Base64:   success.Result,
		Data:     data,
		MimeType: "image/png",
	}, nil
}

// classifyTransportError は通信エラーのうち期限超過だけを ErrTimeout に分類します。
func (c *Client) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("生成リクエストが %s でタイムアウトしました: %w", c.timeout, ErrTimeout)
	}
	return fmt.Errorf("生成リクエストの送信に失敗しました: %w", err)
}

// parseAPIError は失敗ボディから {"detail": ...} を抜き出します。
// ボディが壊れている場合はユーザー向けには汎用メッセージに倒し、
// 生のボディは診断用に警告ログへ残します（切り詰めあり）。
func parseAPIError(statusCode int, raw []byte) error {
	var failure struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &failure); err != nil || failure.Detail == "" {
		logged := raw
		if len(logged) > maxLoggedBody {
			logged = logged[:maxLoggedBody]
		}
		slog.Warn("エラーレスポンスの解析に失敗しました", "status", statusCode, "body", string(logged))
		return &APIError{StatusCode: statusCode}
	}
	return &APIError{StatusCode: statusCode, Detail: failure.Detail}
}

func buildMultipart(req domain.GenerationRequest) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	for _, part := range req.Parts {
		if part.File == nil {
			return nil, "", fmt.Errorf("file part %q has no file", part.Field)
		}

		// 申告された MIME タイプをパートヘッダに載せるため CreateFormFile は使わない
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, part.Field, part.File.Name))
		h.Set("Content-Type", part.File.MimeType)

		fw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("multipart の組み立てに失敗しました: %w", err)
		}
		if _, err := fw.Write(part.File.Data); err != nil {
			return nil, "", fmt.Errorf("multipart の書き込みに失敗しました: %w", err)
		}
	}

	if req.Mode != "" {
		if err := w.WriteField("mode", req.Mode); err != nil {
			return nil, "", fmt.Errorf("mode フィールドの書き込みに失敗しました: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("multipart のクローズに失敗しました: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
