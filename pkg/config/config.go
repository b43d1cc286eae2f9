// Package config は生成エンドポイントの接続設定を環境変数から解決します。
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIBase はローカル開発用のデフォルト接続先です。
const DefaultAPIBase = "http://localhost:8000"

// Config は起動時に解決される接続設定です。
type Config struct {
	// APIBase は生成エンドポイントのベースURL（GENERATE_API_BASE）
	APIBase string
	// Timeout は生成リクエストの往復予算（GENERATE_TIMEOUT_SEC、既定60秒）
	Timeout time.Duration
}

// Load は .env（あれば）と環境変数から設定を組み立てます。
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env が見つからないため環境変数のみを使用します")
	}

	apiBase := os.Getenv("GENERATE_API_BASE")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	timeout := 60 * time.Second
	if s := os.Getenv("GENERATE_TIMEOUT_SEC"); s != "" {
		if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
			timeout = time.Duration(sec) * time.Second
		} else {
			slog.Warn("GENERATE_TIMEOUT_SEC の値が不正なため既定値を使用します", "value", s)
		}
	}

	return &Config{
		APIBase: apiBase,
		Timeout: timeout,
	}
}
