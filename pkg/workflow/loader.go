package workflow

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/portrait-flow-kit/pkg/domain"
)

// FileLoader は枠に入れるファイルをソースURIから読み込みます。
// http(s) は httpkit、ローカルパスと gs:// は remoteio が担当します。
// MIME タイプは拡張子由来の申告値で、中身のスニッフィングは行いません。
type FileLoader struct {
	reader     remoteio.InputReader
	httpClient httpkit.ClientInterface
}

// NewFileLoader は依存関係を注入して FileLoader を初期化します。
func NewFileLoader(reader remoteio.InputReader, httpClient httpkit.ClientInterface) (*FileLoader, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	return &FileLoader{reader: reader, httpClient: httpClient}, nil
}

// Load は URI の中身を読み、検証前の SelectedFile に組み立てます。
func (l *FileLoader) Load(ctx context.Context, rawURI string) (*domain.SelectedFile, error) {
	var (
		data []byte
		name string
		err  error
	)

	if strings.HasPrefix(rawURI, "http://") || strings.HasPrefix(rawURI, "https://") {
		if safe, safeErr := isSafeURL(rawURI); safeErr != nil || !safe {
			return nil, fmt.Errorf("安全ではないURLが指定されました: %w", safeErr)
		}
		data, err = l.httpClient.FetchBytes(ctx, rawURI)
		if err != nil {
			return nil, fmt.Errorf("画像の取得に失敗しました: %w", err)
		}
		parsed, parseErr := url.Parse(rawURI)
		if parseErr != nil {
			return nil, fmt.Errorf("URLパース失敗: %w", parseErr)
		}
		name = path.Base(parsed.Path)
	} else {
		rc, openErr := l.reader.Open(ctx, rawURI)
		if openErr != nil {
			return nil, fmt.Errorf("ファイルを開けませんでした: %w", openErr)
		}
		defer rc.Close()

		data, err = io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("ファイルの読み込みに失敗しました: %w", err)
		}
		name = filepath.Base(rawURI)
	}

	return &domain.SelectedFile{
		Name:     name,
		MimeType: mime.TypeByExtension(strings.ToLower(filepath.Ext(name))),
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

// isSafeURL は、SSRF (Server-Side Request Forgery) 対策として URL を検証します。
// 許可されたスキーム (http, https) かつ、プライベートIPやループバックアドレスを
// ターゲットにしていないことを確認します。
func isSafeURL(rawURL string) (bool, error) {
	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, fmt.Errorf("URLパース失敗: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false, fmt.Errorf("不許可スキーム: %s", parsedURL.Scheme)
	}

	host := parsedURL.Hostname()
	var ips []net.IP

	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolvedIPs, err := net.LookupIP(host)
		if err != nil {
			return false, fmt.Errorf("ホスト '%s' の名前解決に失敗しました: %w", host, err)
		}
		ips = resolvedIPs
	}

	for _, ip := range ips {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return false, fmt.Errorf("制限されたネットワークへのアクセスを検知: %s", ip.String())
		}
	}

	return true, nil
}
