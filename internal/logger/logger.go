package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ログ出力形式。
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupWithFormat は指定形式のslog.Loggerを生成して返す。
// "text" の場合はローカル開発向けにtintで色付きのテキストを出力し、
// それ以外はJSONを出力する。
func SetupWithFormat(w io.Writer, format string) *slog.Logger {
	if strings.EqualFold(format, FormatText) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
			NoColor:    !isTerminal(w),
		}))
	}
	return Setup(w)
}

// SetupDefault は構造化ログ出力をグローバルロガーとして設定する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer, format string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := SetupWithFormat(w, format)
	slog.SetDefault(logger)
	return logger
}

// isTerminal は出力先が端末（キャラクタデバイス）かを返す。
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
