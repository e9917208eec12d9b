package main

import (
	"os"

	"github.com/0xmilen/solsentry/internal/app"
)

func main() {
	if err := app.BuildRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
