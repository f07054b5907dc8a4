package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Export driver
		"export plan: %dx%d @ %.2ffps, %d frames (%d outro)": "エクスポートプラン: %dx%d @ %.2ffps, %d フレーム (%d アウトロ)",
		"export finished: %d frames, %d bytes":               "エクスポート完了: %d フレーム, %d バイト",
		"export cancelled":                                   "エクスポートがキャンセルされました",
		"export failed: %v":                                  "エクスポートに失敗しました: %v",

		// Source backends
		"source backend: libaom (av1)":             "ソースバックエンド: libaom (av1)",
		"source backend: ffmpeg (%s)":              "ソースバックエンド: ffmpeg (%s)",
		"libaom source failed (%v), trying ffmpeg": "libaom ソースが失敗しました (%v)。ffmpeg を試します",

		// Encoder selection
		"%s encoder (%s) not available, trying next preference": "%s エンコーダ (%s) が利用できません。次の候補を試します",

		// Job manager
		"job %s started":                       "ジョブ %s を開始しました",
		"job %s finished: %d frames, %d bytes": "ジョブ %s 完了: %d フレーム, %d バイト",
		"job %s cancelled":                     "ジョブ %s がキャンセルされました",
		"job %s failed: %v":                    "ジョブ %s に失敗しました: %v",

		// API server
		"listening on %s": "%s で待ち受け中",
		"shutting down":   "シャットダウン中",
	})
}
