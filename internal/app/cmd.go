package app

// Command はchirperバイナリのサブコマンド。
type Command string

const (
	// CommandServe はチャープ画面を配信するWebサーバーを起動する。引数省略時の既定。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションを定期削除するワーカーを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate は埋め込みマイグレーションを最新版まで適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの/healthを確認し、結果を終了コードで返す。
	// シェルを持たないdistrolessイメージのHEALTHCHECKから呼び出される。
	CommandHealthcheck Command = "healthcheck"
)

var knownCommands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 引数なしや未知の値はserveとして扱う。2番目以降の引数は見ない。
func ParseCommand(args []string) Command {
	if len(args) > 0 {
		if cmd, ok := knownCommands[args[0]]; ok {
			return cmd
		}
	}
	return CommandServe
}

// RequiresConfig は実行前に設定の読み込みとロガー初期化が必要かを返す。
// healthcheckはDATABASE_URLなしで動く必要があるためfalse。
func (c Command) RequiresConfig() bool {
	return c != CommandHealthcheck
}
