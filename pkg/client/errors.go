package client

import (
	"errors"
	"fmt"
)

// ErrTimeout は60秒の往復予算内に応答が得られなかったことを示すセンチネルです。
// 一般的な通信エラーとは区別して、再試行を促すメッセージに変換されます。
var ErrTimeout = errors.New("generation request timed out")

// APIError はエンドポイントが非成功ステータスを返したことを表します。
// Detail はレスポンスボディの構造化エラー（{"detail": ...}）で、
// パースできなかった場合は空のままステータスコードだけを報告します。
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// UserMessage はエラー種別をユーザー向けの1本の文字列に畳み込みます。
// すべての失敗経路はここを通って可視化され、握り潰される経路はありません。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrTimeout) {
		return "request timed out, please try again"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
