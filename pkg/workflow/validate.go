package workflow

import (
	"fmt"

	"github.com/shouni/portrait-flow-kit/pkg/domain"
)

// MaxFileSize は受理する画像の上限バイト数です（10 MiB、境界値は受理）。
const MaxFileSize = 10 * 1024 * 1024

// 申告された MIME タイプで判定する。中身のスニッフィングは行わない。
var allowedFormats = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
}

// ValidationError はネットワークに到達する前に弾かれた入力エラーです。
// Slot は該当フィールドのコンテキストでインラインに表示するための位置情報です。
type ValidationError struct {
	Slot    SlotID
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateFile は枠に入れる前のファイルを検査します。
// 違反しても既存の状態には一切触れません。
func validateFile(slot SlotID, label string, file *domain.SelectedFile) error {
	if file == nil || len(file.Data) == 0 {
		return &ValidationError{Slot: slot, Message: fmt.Sprintf("%s is required", label)}
	}

	if _, ok := allowedFormats[file.MimeType]; !ok {
		return &ValidationError{
			Slot:    slot,
			Message: fmt.Sprintf("%s format not supported. Allowed formats: jpg, png, webp", label),
		}
	}

	if file.Size > MaxFileSize {
		return &ValidationError{
			Slot:    slot,
			Message: fmt.Sprintf("%s size exceeds 10MB limit", label),
		}
	}

	return nil
}
