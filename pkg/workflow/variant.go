package workflow

// SlotID はワークフロー内のファイル枠の識別子です。
type SlotID string

// SlotSpec はファイル枠1つの定義です。Field は multipart のフィールド名、
// Label はバリデーションエラー文に使う人間向けの呼び名です。
type SlotSpec struct {
	ID    SlotID
	Field string
	Label string
}

// Variant はワークフローの構成（必要な枠数・フィールド名・モード判別子の有無）です。
// 2つのページ変種は状態機械を複製せず、この値だけで分岐します。
type Variant struct {
	Name  string
	Slots []SlotSpec
	Modes []string
}

// Slot は ID に対応する枠定義を返します。
func (v Variant) Slot(id SlotID) (SlotSpec, bool) {
	for _, s := range v.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return SlotSpec{}, false
}

// HasMode は指定モードがこの変種で有効かを返します。
func (v Variant) HasMode(mode string) bool {
	for _, m := range v.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// StyleTransfer は本人写真とスタイル参照画像の2枚を送るデュアルファイル版です。
var StyleTransfer = Variant{
	Name: "portrait",
	Slots: []SlotSpec{
		{ID: "main", Field: "main_file", Label: "Person photo"},
		{ID: "style", Field: "style_file", Label: "Style reference image"},
	},
}

// QuickMode は1枚の写真とモード判別子（portrait / meme）を送るシングルファイル版です。
var QuickMode = Variant{
	Name: "quick",
	Slots: []SlotSpec{
		{ID: "photo", Field: "file", Label: "Photo"},
	},
	Modes: []string{"portrait", "meme"},
}
