package imgutil

import (
	"encoding/base64"
	"fmt"
)

// ToDataURI はバイナリをブラウザがそのまま表示できる data URI に変換します。
func ToDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FromBase64 はエンドポイントが返す標準base64文字列をデコードします。
func FromBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64デコードに失敗しました: %w", err)
	}
	return data, nil
}
