package main

import (
	"log/slog"
	"os"

	"mgit/cmd/mgit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		slog.Error("command failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
