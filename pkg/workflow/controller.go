// Package workflow は、画像のアップロードから生成・結果操作までの
// クライアント側ワークフロー状態を一元管理するコントローラを提供します。
// 検証・プレビューのライフサイクル・リクエストの排他・エラーのUI反映が責務です。
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shouni/portrait-flow-kit/pkg/client"
	"github.com/shouni/portrait-flow-kit/pkg/domain"
	"github.com/shouni/portrait-flow-kit/pkg/preview"
)

// ErrRequestInFlight は生成リクエストの多重発行を弾くためのセンチネルです。
// 2回目の呼び出しは状態を一切変更せず、ネットワークにも到達しません。
var ErrRequestInFlight = errors.New("a generation request is already in flight")

// Generator は生成エンドポイントとの通信を抽象化します。実装は pkg/client です。
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedImage, error)
}

// PreviewHandle は枠1つ分のプレビュー実体への参照です。
type PreviewHandle interface {
	URI() string
	Release() error
}

// PreviewFactory は受理されたファイルからプレビューを実体化します。
type PreviewFactory interface {
	New(file *domain.SelectedFile) (PreviewHandle, error)
}

// NewDiskPreviews は pkg/preview のディスク実装を PreviewFactory として返します。
// dir が空の場合は一時ディレクトリを使います。
func NewDiskPreviews(dir string) PreviewFactory {
	return diskPreviews{factory: &preview.Factory{Dir: dir}}
}

type diskPreviews struct {
	factory *preview.Factory
}

func (d diskPreviews) New(file *domain.SelectedFile) (PreviewHandle, error) {
	h, err := d.factory.New(file)
	if err != nil {
		return nil, err
	}
	return h, nil
}

type slotState struct {
	file   *domain.SelectedFile
	handle PreviewHandle
}

// Controller はワークフロー状態の唯一の所有者です。
// すべての遷移はユーザー操作イベントか、飛行中リクエストの決着で起こります。
type Controller struct {
	variant  Variant
	gen      Generator
	previews PreviewFactory

	mu       sync.Mutex
	slots    map[SlotID]*slotState
	loading  bool
	errMsg   string
	result   *domain.GeneratedImage
	lastMode string
}

// New はコントローラを初期化します。previews は nil を許容します（プレビューなし動作）。
func New(variant Variant, gen Generator, previews PreviewFactory) (*Controller, error) {
	if len(variant.Slots) == 0 {
		return nil, fmt.Errorf("variant must define at least one slot")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}

	return &Controller{
		variant:  variant,
		gen:      gen,
		previews: previews,
		slots:    make(map[SlotID]*slotState),
	}, nil
}

// SelectFile はファイルを検証して枠に受け入れます。
// 検証に失敗したファイルは状態に入らず、既存の選択はそのまま残ります。
// 受理時は新しいプレビューを作ってから、置き換えられる旧ハンドルを解放します。
func (c *Controller) SelectFile(slot SlotID, file *domain.SelectedFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	spec, ok := c.variant.Slot(slot)
	if !ok {
		return fmt.Errorf("unknown slot: %s", slot)
	}

	if err := validateFile(slot, spec.Label, file); err != nil {
		c.errMsg = err.Error()
		return err
	}

	var handle PreviewHandle
	if c.previews != nil {
		h, err := c.previews.New(file)
		if err != nil {
			return fmt.Errorf("プレビューの生成に失敗しました: %w", err)
		}
		handle = h
	}

	c.releaseSlot(slot)
	c.slots[slot] = &slotState{file: file, handle: handle}
	c.errMsg = ""
	return nil
}

// RemoveFile は枠を空にし、プレビューを解放します。
func (c *Controller) RemoveFile(slot SlotID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.variant.Slot(slot); !ok {
		return fmt.Errorf("unknown slot: %s", slot)
	}
	c.releaseSlot(slot)
	return nil
}

// releaseSlot は mu を保持した状態で呼ぶこと。ハンドルの解放はここに集約し、
// 同じハンドルが二度解放される経路を構造的に作らない。
func (c *Controller) releaseSlot(slot SlotID) {
	s, ok := c.slots[slot]
	if !ok {
		return
	}
	if s.handle != nil {
		if err := s.handle.Release(); err != nil {
			slog.Warn("プレビューの解放に失敗しました", "slot", string(slot), "error", err)
		}
	}
	delete(c.slots, slot)
}

// Generate は生成リクエストを1回発行します。
// 前提条件（全枠の充足、モードの妥当性）を満たさない場合はネットワークに出ません。
// loading はリクエストの決着時に成否を問わず必ず下ろされます。
func (c *Controller) Generate(ctx context.Context, mode string) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrRequestInFlight
	}

	req, err := c.buildRequest(mode)
	if err != nil {
		c.errMsg = err.Error()
		c.mu.Unlock()
		return err
	}

	c.errMsg = ""
	c.result = nil
	c.loading = true
	c.lastMode = mode
	c.mu.Unlock()

	slog.Info("生成を開始します", "variant", c.variant.Name, "mode", mode)
	img, genErr := c.gen.Generate(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if genErr != nil {
		c.errMsg = client.UserMessage(genErr)
		slog.Warn("生成に失敗しました", "variant", c.variant.Name, "error", genErr)
		return genErr
	}

	c.result = img
	slog.Info("生成が完了しました", "variant", c.variant.Name, "bytes", len(img.Data))
	return nil
}

// buildRequest は mu を保持した状態で呼ぶこと。
func (c *Controller) buildRequest(mode string) (domain.GenerationRequest, error) {
	if len(c.variant.Modes) > 0 && !c.variant.HasMode(mode) {
		return domain.GenerationRequest{}, &ValidationError{
			Message: fmt.Sprintf("invalid mode: %q", mode),
		}
	}
	if len(c.variant.Modes) == 0 {
		mode = ""
	}

	parts := make([]domain.FilePart, 0, len(c.variant.Slots))
	for _, spec := range c.variant.Slots {
		s, ok := c.slots[spec.ID]
		if !ok {
			return domain.GenerationRequest{}, &ValidationError{
				Slot:    spec.ID,
				Message: fmt.Sprintf("%s is required", spec.Label),
			}
		}
		parts = append(parts, domain.FilePart{Field: spec.Field, File: s.file})
	}

	return domain.GenerationRequest{Parts: parts, Mode: mode}, nil
}

// Regenerate は現在の選択ファイルのまま、直近のモードで生成をやり直します。
func (c *Controller) Regenerate(ctx context.Context) error {
	c.mu.Lock()
	mode := c.lastMode
	c.mu.Unlock()
	return c.Generate(ctx, mode)
}

// Reset はすべての枠とプレビュー、結果、エラーを初期状態に戻します。冪等です。
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, spec := range c.variant.Slots {
		c.releaseSlot(spec.ID)
	}
	c.errMsg = ""
	c.result = nil
	c.lastMode = ""
}

// Close はページ離脱（アンマウント）に相当し、保持リソースをすべて解放します。
func (c *Controller) Close() error {
	c.Reset()
	return nil
}

// SaveResult は生成結果をタイムスタンプ付きのファイル名で dir に書き出し、
// そのパスを返します。ネットワークには出ない純粋な保存操作です。
func (c *Controller) SaveResult(dir string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return "", fmt.Errorf("no result to save")
	}

	path := filepath.Join(dir, timestampName(c.variant.Name))
	if err := os.WriteFile(path, c.result.Data, 0o644); err != nil {
		return "", fmt.Errorf("結果の書き出しに失敗しました: %w", err)
	}
	return path, nil
}

func timestampName(prefix string) string {
	return fmt.Sprintf("%s_%d.png", prefix, time.Now().UnixMilli())
}

// SlotInfo は枠1つ分の表示用スナップショットです。
type SlotInfo struct {
	Filled     bool
	FileName   string
	PreviewURI string
}

// Snapshot はある時点のワークフロー状態の読み取り専用コピーです。
type Snapshot struct {
	Phase   domain.Phase
	Loading bool
	Error   string
	Result  *domain.GeneratedImage
	Slots   map[SlotID]SlotInfo
}

// State は現在状態のスナップショットを返します。
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots := make(map[SlotID]SlotInfo, len(c.variant.Slots))
	filled := 0
	for _, spec := range c.variant.Slots {
		info := SlotInfo{}
		if s, ok := c.slots[spec.ID]; ok {
			info.Filled = true
			info.FileName = s.file.Name
			if s.handle != nil {
				info.PreviewURI = s.handle.URI()
			}
			filled++
		}
		slots[spec.ID] = info
	}

	return Snapshot{
		Phase:   c.phase(filled),
		Loading: c.loading,
		Error:   c.errMsg,
		Result:  c.result,
		Slots:   slots,
	}
}

// phase は mu を保持した状態で呼ぶこと。
func (c *Controller) phase(filled int) domain.Phase {
	switch {
	case c.loading:
		return domain.PhaseLoading
	case c.errMsg != "":
		return domain.PhaseError
	case c.result != nil:
		return domain.PhaseResult
	case filled == len(c.variant.Slots):
		return domain.PhaseReady
	default:
		return domain.PhaseIdle
	}
}
