package main

import (
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/entrypoint"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg := config.NewConfig()
	entrypoint.Run(cfg, Version)
}
