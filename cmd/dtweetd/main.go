package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/config"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/daemon"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/mcpserver"
)

var Version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "path to dtweet.yaml")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools on stdio instead of the HTTP page")
	flag.Parse()

	if !*mcpMode {
		blue := "\033[38;5;33m"
		reset := "\033[0m"
		dim := "\033[2m"
		fmt.Printf(blue+`
       _ _____                   _
    __| |_   _|_      _____  ___| |_
   / _`+"`"+` | | | \ \ /\ / / _ \/ _ \ __|
  | (_| | | |  \ V  V /  __/  __/ |_
   \__,_| |_|   \_/\_/ \___|\___|\__|
`+reset+`
  `+dim+`On-chain tweets client  v%s`+reset+`
`, Version)
	}

	if *cfgPath == "" {
		*cfgPath = config.DefaultPath()
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[main] Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] Invalid config: %v", err)
	}

	var opts []daemon.Option
	if *mcpMode {
		opts = append(opts, daemon.WithoutHTTP())
	}
	d, err := daemon.New(cfg, opts...)
	if err != nil {
		log.Fatalf("[main] Failed to create daemon: %v", err)
	}
	if err := d.Start(); err != nil {
		log.Fatalf("[main] Failed to start daemon: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *mcpMode {
		log.Println("[mcp] Serving tools on stdio")
		srv := mcpserver.New(Version, d, d.Controller())
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[mcp] Server error: %v", err)
		}
	} else {
		<-ctx.Done()
		log.Println("[main] Received signal, shutting down...")
	}

	d.Stop()
	log.Println("[main] Goodbye.")
}
