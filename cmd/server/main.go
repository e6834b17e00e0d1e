package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kota-pro/Scharade-HomePage/internal/app"
)

func main() {
	// ローカル開発用。.envが無くてもエラーにしない。
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
