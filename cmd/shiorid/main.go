// Command shiorid runs the scrobble daemon in the foreground.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"shiori/internal/config"
	"shiori/internal/daemonrun"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	levelFlag := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, path, exists, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !exists {
		fmt.Fprintf(os.Stderr, "config file %s not found, using defaults\n", path)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *levelFlag}); err != nil {
		log.Fatalf("daemon: %v", err)
	}
}
