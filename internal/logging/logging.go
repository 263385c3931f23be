// Package logging 按配置构造 slog.Logger。
package logging

import (
	"io"
	"log/slog"
	"strings"

	"smartresume/internal/config"
)

// New 返回写入 w 的 logger，format 为 json 时使用 JSONHandler，否则 TextHandler。
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
