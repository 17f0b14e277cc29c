package main

import (
	"os"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		os.Exit(1)
	}
}
