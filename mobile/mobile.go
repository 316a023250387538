// Package mobile provides gomobile-bindable functions for the dTweet daemon.
// All complex data is returned as JSON strings since gomobile cannot export
// maps, slices, or structs with unexported fields.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/config"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/daemon"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/view"

	// Required by gomobile bind at build time
	_ "golang.org/x/mobile/bind"
)

var (
	mu      sync.Mutex
	d       *daemon.Daemon
	running bool
	version = "0.1.0"

	// cancelled by Stop so pending ledger calls return
	runCtx  context.Context
	stopRun context.CancelFunc
)

// Start initialises and starts the dTweet daemon.
// configYAML must at least set contract.address (or CONTRACT_ADDRESS must be
// in the environment).
func Start(configYAML string) error {
	mu.Lock()
	defer mu.Unlock()

	if running {
		return fmt.Errorf("already running")
	}

	cfg, err := config.LoadFromBytes([]byte(configYAML))
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	// On mobile, bind to all interfaces so the page is reachable from the webview
	cfg.API.Bind = "0.0.0.0"

	d, err = daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		d = nil
		return fmt.Errorf("start daemon: %w", err)
	}

	runCtx, stopRun = context.WithCancel(context.Background())
	running = true
	return nil
}

// Stop gracefully shuts down the daemon.
func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if stopRun != nil {
		stopRun()
		stopRun = nil
	}
	if d != nil {
		d.Stop()
		d = nil
	}
	running = false
}

// current returns the running daemon and its workflow context. Workflows run
// without holding mu.
func current() (*daemon.Daemon, context.Context) {
	mu.Lock()
	defer mu.Unlock()
	return d, runCtx
}

// IsRunning returns true if the daemon is currently running.
func IsRunning() bool {
	mu.Lock()
	defer mu.Unlock()
	return running
}

// GetStatus returns full daemon status as a JSON string.
func GetStatus() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `{"running":false}`
	}
	status := d.Status()
	status["running"] = true
	return toJSON(status)
}

// GetAPIPort returns the port the page and API are served on.
func GetAPIPort() int {
	mu.Lock()
	defer mu.Unlock()
	if d == nil {
		return 0
	}
	return d.APIPort()
}

// GetVersion returns the dTweet version string.
func GetVersion() string {
	return version
}

// Connect connects the configured wallet.
// Returns JSON: {"account":"0x..."} or {"error":"..."}.
func Connect() string {
	dd, ctx := current()
	if dd == nil {
		return `{"error":"daemon not running"}`
	}
	if err := dd.Controller().Connect(ctx); err != nil {
		return errJSON(err)
	}
	account, _ := dd.Account()
	return toJSON(map[string]string{"account": account.Hex()})
}

// GetTweets refreshes and returns the connected account's tweets as a JSON
// array, newest first. Returns "[]" when not connected.
func GetTweets() string {
	dd, ctx := current()
	if dd == nil {
		return `[]`
	}
	blocks := dd.Controller().RefreshTweets(ctx)
	if blocks == nil {
		return `[]`
	}
	return toJSON(blocks)
}

// PostTweet posts text and waits for confirmation.
// Returns JSON: the refreshed tweet list or {"error":"..."}.
func PostTweet(text string) string {
	dd, ctx := current()
	if dd == nil {
		return `{"error":"daemon not running"}`
	}
	if err := dd.Controller().SubmitTweet(ctx, text); err != nil {
		return errJSON(err)
	}
	return toJSON(dd.Page().Snapshot().Tweets)
}

// LikeTweet likes the tweet (author, id) and waits for confirmation.
// Returns JSON: the refreshed tweet list or {"error":"..."}.
func LikeTweet(author string, id string) string {
	dd, ctx := current()
	if dd == nil {
		return `{"error":"daemon not running"}`
	}
	if !common.IsHexAddress(author) {
		return `{"error":"author must be a hex address"}`
	}
	tweetID, ok := view.ParseTweetID(id)
	if !ok {
		return `{"error":"id must be a non-negative integer"}`
	}
	if err := dd.Controller().LikeTweet(ctx, common.HexToAddress(author), tweetID); err != nil {
		return errJSON(err)
	}
	return toJSON(dd.Page().Snapshot().Tweets)
}

func toJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func errJSON(err error) string {
	return toJSON(map[string]string{"error": err.Error()})
}
