package domain

// SelectedFile はユーザーが選択した画像ファイルです。
// MimeType は申告値（ブラウザの content-type や拡張子由来）であり、
// バイナリの中身をスニッフィングした結果ではありません。
type SelectedFile struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// FilePart は生成リクエストの multipart フィールド1つ分です。
type FilePart struct {
	Field string
	File  *SelectedFile
}

// GenerationRequest は生成エンドポイントへの1回分の要求です。
// Mode はシングルファイル版のみが使用し、デュアルファイル版では空のままです。
type GenerationRequest struct {
	Parts []FilePart
	Mode  string
}

// GeneratedImage は生成結果の画像データとそのメタデータです。
// Base64 はエンドポイントが返した文字列そのまま、Data はそのデコード結果を保持します。
type GeneratedImage struct {
	Base64   string
	Data     []byte
	MimeType string
}

// DataURI は表示用の data URI を返します。
func (g *GeneratedImage) DataURI() string {
	return "data:image/png;base64," + g.Base64
}

// Phase はワークフローの表示状態です。
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReady
	PhaseLoading
	PhaseResult
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReady:
		return "ready"
	case PhaseLoading:
		return "loading"
	case PhaseResult:
		return "result"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}
