package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/socialpulse/internal/app"
)

func main() {
	// ログはstderrに出力し、fetchコマンドの集計結果をstdoutに分離する
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
