package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	// バックグラウンドでスナップショットを更新しながらクエリAPIを提供する。
	CommandServe Command = "serve"
	// CommandFetch はフェッチパスを1回だけ実行し、集計結果を出力することを示す。
	CommandFetch Command = "fetch"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "fetch":
		return CommandFetch
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
