package main

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",
		"Exporting %s...":               "%s をエクスポート中...",
		"Output saved to %s":            "出力を %s に保存しました",
		"Failed to write output: %s":    "出力の書き込みに失敗しました: %s",
		"snapexport version %s":         "snapexport バージョン %s",
	})
}
