// Package preview は、選択済みファイルのサムネイルをローカルに実体化する
// ephemeral なハンドルを提供します。ブラウザの object URL に相当するもので、
// 差し替え・削除・リセット時に必ず Release してリソースを回収します。
package preview

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shouni/portrait-flow-kit/pkg/domain"
	"github.com/shouni/portrait-flow-kit/pkg/imgutil"
)

const (
	// ThumbnailSize はサムネイルの一辺のピクセル数です。
	ThumbnailSize = 256
	// PreviewQuality はサムネイルをJPEG化する際の品質です。
	PreviewQuality = 75
)

// Handle は1ファイル分のプレビュー実体への参照です。
// 所有権はワークフローコントローラにあり、Release は高々1回だけ実行されます。
type Handle struct {
	path     string
	mimeType string
	released bool
}

// URI はプレビュー画像のローカルパスを返します。解放後は空文字列を返します。
func (h *Handle) URI() string {
	if h.released {
		return ""
	}
	return h.path
}

// DataURI はプレビューをインライン表示用の data URI として読み出します。
func (h *Handle) DataURI() (string, error) {
	if h.released {
		return "", fmt.Errorf("handle is already released")
	}
	data, err := os.ReadFile(h.path)
	if err != nil {
		return "", fmt.Errorf("プレビューの読み出しに失敗しました: %w", err)
	}
	return imgutil.ToDataURI(h.mimeType, data), nil
}

// Release はプレビュー実体を破棄します。2回目以降の呼び出しは何もしません。
func (h *Handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true

	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("プレビューの削除に失敗しました: %w", err)
	}
	return nil
}

// Factory は Handle を生成します。Dir が空の場合は os.TempDir() を使います。
type Factory struct {
	Dir string
}

// New は選択済みファイルからプレビューを実体化します。
// サムネイル化と圧縮はベストエフォートで、デコードできないデータは原寸のまま
// 書き出します。申告タイプのみで受理されたファイルでもプレビューが欠けないように
// するためです。
func (f *Factory) New(file *domain.SelectedFile) (*Handle, error) {
	if file == nil {
		return nil, fmt.Errorf("file is required")
	}

	data := file.Data
	mimeType := file.MimeType
	ext := ".img"

	if thumb, err := imgutil.Thumbnail(file.Data, ThumbnailSize); err == nil {
		data = thumb
		mimeType = "image/png"
		ext = ".png"
		if compressed, cerr := imgutil.CompressToJPEG(thumb, PreviewQuality); cerr == nil {
			data = compressed
			mimeType = "image/jpeg"
			ext = ".jpg"
		}
	} else {
		slog.Warn("サムネイル生成に失敗したため原寸データでプレビューします", "file", file.Name, "error", err)
	}

	dir := f.Dir
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, "preview_"+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("プレビューの書き出しに失敗しました: %w", err)
	}

	return &Handle{path: path, mimeType: mimeType}, nil
}
