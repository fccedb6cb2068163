// Command farmsconnect は農産物マーケットプレイスのAPIサーバー。
//
//	farmsconnect [serve|migrate|rollback|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/farmsconnect/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "farmsconnect: %v\n", err)
		os.Exit(1)
	}
}
