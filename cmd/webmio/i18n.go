// Package main provides localization for the webmio CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":   "出力先",
		"Timeline": "タイムライン",
		"Video":    "動画",
		"Audio":    "音声",
		"Source":   "ソース",
		"Debug":    "デバッグ",
		"Logging":  "ログ",

		// Root command
		"Export and import WebM video": "WebM動画のエクスポートとインポート",
		"webmio renders a synthetic timeline into a WebM file and reads frames and samples back out of WebM files.": "webmioは合成タイムラインをWebMファイルに書き出し、WebMファイルからフレームとサンプルを読み出します。",

		// Export command
		"Export a synthetic clip as WebM":                              "合成クリップをWebMとしてエクスポート",
		"Render a test card and tone and encode them into a WebM file.": "テストカードとトーンを生成し、WebMファイルにエンコードします。",
		"YAML configuration file":                         "YAML設定ファイル",
		"Output WebM file path":                           "出力WebMファイルパス",
		"Output export summary to file (Markdown format)": "エクスポートサマリーをファイルに出力（Markdown形式）",
		"Frame rate (e.g., 30, 29.97, 30000/1001)":        "フレームレート（例: 30, 29.97, 30000/1001）",
		"Number of frames to export":                      "エクスポートするフレーム数",
		"Do not export a video track":                     "動画トラックをエクスポートしない",
		"Video codec (vp9, vp8, raw)":                     "動画コーデック（vp9, vp8, raw）",
		"Output video width":                              "出力動画の幅",
		"Output video height":                             "出力動画の高さ",
		"Rate control (cq, cbr, vbr)":                     "レート制御（cq, cbr, vbr）",
		"Video quality (0-100, higher is better)":         "動画品質（0-100、高いほど高品質）",
		"Video bitrate in kbps for cbr and vbr":           "cbr と vbr の動画ビットレート（kbps）",
		"Encoding deadline (realtime, good, best)":        "エンコード期限（realtime, good, best）",
		"Encoder control as name=value, repeatable (e.g., cpu-used=8)": "name=value 形式のエンコーダ制御、複数指定可（例: cpu-used=8）",
		"Maximum distance between key frames (0 = encoder default)":              "キーフレーム間の最大距離（0 = エンコーダの既定値）",
		"Fall back to uncompressed codecs when a codec library is not built in": "コーデックライブラリが組み込まれていない場合は非圧縮コーデックにフォールバック",
		"Do not export an audio track":  "音声トラックをエクスポートしない",
		"Audio codec (vorbis, pcm)":     "音声コーデック（vorbis, pcm）",
		"Audio sample rate in Hz":       "音声サンプルレート（Hz）",
		"Number of audio channels":      "音声チャンネル数",
		"Title drawn on the test card":  "テストカードに描画するタイトル",
		"Still image shown instead of the test card":               "テストカードの代わりに表示する静止画",
		"Pixel format handed to the encoder (i420, bgra8, bgra16)": "エンコーダに渡すピクセル形式（i420, bgra8, bgra16）",
		"Test tone frequency in Hz":                                "テストトーンの周波数（Hz）",

		// Debug flags
		"Enable debug output":        "デバッグ出力を有効化",
		"Directory for debug output": "デバッグ出力のディレクトリ",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Import commands
		"Show information about a WebM file":            "WebMファイルの情報を表示",
		"Summary format (text, markdown)":               "サマリー形式（text, markdown）",
		"Write the summary to a file instead of stdout": "サマリーを標準出力ではなくファイルに書き込む",
		"Extract video frames as PNG":                   "動画フレームをPNGとして抽出",
		"Output PNG path; %d is replaced by the frame index":         "出力PNGパス（%d はフレーム番号に置換）",
		"Number of consecutive frames to extract":                    "抽出する連続フレーム数",
		"Decoded frame cache size in megabytes":                      "デコード済みフレームキャッシュのサイズ（MB）",
		"Extract audio samples as raw float32":                       "音声サンプルを float32 の生データとして抽出",
		"Output file for interleaved little-endian float32 samples": "インターリーブされたリトルエンディアン float32 サンプルの出力ファイル",
		"First sample to extract":                         "抽出する最初のサンプル",
		"Number of samples to extract (-1 = to the end)":  "抽出するサンプル数（-1 = 末尾まで）",

		// Runtime messages
		"Frame %d saved to %s":                         "フレーム %d を %s に保存しました",
		"%d samples of %d channels saved to %s":        "%d サンプル（%d チャンネル）を %s に保存しました",
		"Summary saved to %s":                          "サマリーを %s に保存しました",
		"Failed to write summary: %s":                  "サマリーの書き込みに失敗しました: %s",

		// Error messages
		"FILE argument is required":             "FILE引数が必要です",
		"FILE and INDEX arguments are required": "FILE引数とINDEX引数が必要です",

		// Summary content
		"WebM Summary":   "WebMサマリー",
		"Export Summary": "エクスポートサマリー",
		"Generated":      "生成日時",
		"Item":           "項目",
		"Value":          "値",
		"Generated by":   "生成:",

		// Container section
		"Container":   "コンテナ",
		"File":        "ファイル",
		"File Size":   "ファイルサイズ",
		"Duration":    "再生時間",
		"Clusters":    "クラスタ数",
		"Doc Type":    "ドキュメント種別",
		"Writing App": "作成アプリ",
		"Cue Points":  "キューポイント数",
		"Cue Track":   "キュートラック",
		"Passes":      "パス数",

		// Track sections
		"Codec":        "コーデック",
		"Frame Size":   "フレームサイズ",
		"Frame Rate":   "フレームレート",
		"Frame Count":  "フレーム数",
		"Rate Control": "レート制御",
		"Sample Rate":  "サンプルレート",
		"Channels":     "チャンネル数",
		"Samples":      "サンプル数",
		"Packets":      "パケット数",
	})
}
