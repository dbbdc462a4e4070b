package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Starting export":                         "エクスポートを開始します",
		"Timeline: %d frames at %s fps, %d ms":    "タイムライン: %d フレーム, %s fps, %d ms",
		"Running statistics pass":                 "統計パスを実行中",
		"Statistics pass completed: %d records":   "統計パス完了: %d レコード",
		"Encoding %d frames":                      "%d フレームをエンコード中",
		"Container written: %d bytes, %d clusters": "コンテナ書き込み完了: %d バイト, %d クラスタ",
		"Export completed successfully":           "エクスポートが正常に完了しました",
		"Output saved to %s":                      "出力を %s に保存しました",
		"Interrupted, shutting down...":           "中断されました。シャットダウン中...",

		// Encoders
		"Encoder started: %s %dx%d, %s pass":               "エンコーダ開始: %s %dx%d, %s パス",
		"Encoder closed: %d frames, %d statistics records": "エンコーダ終了: %d フレーム, %d 統計レコード",
		"Audio encoder started: %s %d Hz, %d channels":     "音声エンコーダ開始: %s %d Hz, %d チャンネル",
		"Audio encoder finished: %d samples, %d packets":   "音声エンコーダ終了: %d サンプル, %d パケット",

		// Statistics pass
		"Statistics pass container not finalized: %v": "統計パスのコンテナは確定されませんでした: %v",
		"Statistics pass done: %d frames, %d bytes":   "統計パス終了: %d フレーム, %d バイト",

		// Container
		"Header written: %d tracks, cue track %d":          "ヘッダ書き込み: %d トラック, キュートラック %d",
		"Cluster %d written at %d: %d blocks":              "クラスタ %d を %d に書き込み: %d ブロック",
		"Finalized: %d clusters, %d cue points, duration %d": "確定: %d クラスタ, %d キューポイント, 長さ %d",

		// Import
		"Parsed %s: %d tracks, %d clusters, %d cue points": "%s を解析: %d トラック, %d クラスタ, %d キューポイント",
		"Decoded frame %d from keyframe at timecode %d":     "タイムコード %[2]d のキーフレームからフレーム %[1]d をデコード",
		"Audio index built: %d blocks, %d samples":          "音声インデックス作成: %d ブロック, %d サンプル",

		"%s decoder is key frame only in this build; inter frames cannot be read": "このビルドの %s デコーダはキーフレームのみ対応のため、インターフレームは読み込めません",

		// Warnings
		"%s encoder not available, falling back to %s": "%s エンコーダは利用できません。%s にフォールバックします",
		"Failed to save debug frame %d: %v":             "デバッグフレーム %d の保存に失敗しました: %v",
		"Failed to save debug output: %s":               "デバッグ出力の保存に失敗しました: %s",

		// Errors
		"Invalid time base: %s":        "無効なタイムベース: %s",
		"Statistics pass failed: %s":   "統計パスに失敗しました: %s",
		"Failed to create output: %s":  "出力の作成に失敗しました: %s",
		"Failed to encode: %s":         "エンコードに失敗しました: %s",
		"Failed to write output: %s":   "出力の書き込みに失敗しました: %s",
	})
}
