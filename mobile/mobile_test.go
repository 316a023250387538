package mobile

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// first anvil dev account
const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNotRunning(t *testing.T) {
	if IsRunning() {
		t.Fatal("daemon should not be running")
	}
	if got := GetStatus(); got != `{"running":false}` {
		t.Errorf("GetStatus = %s", got)
	}
	if got := GetTweets(); got != `[]` {
		t.Errorf("GetTweets = %s", got)
	}
	for name, got := range map[string]string{
		"Connect":   Connect(),
		"PostTweet": PostTweet("hi"),
		"LikeTweet": LikeTweet("0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "1"),
	} {
		if !strings.Contains(got, "daemon not running") {
			t.Errorf("%s = %s", name, got)
		}
	}
	if GetAPIPort() != 0 {
		t.Error("port should be 0 when stopped")
	}
}

func TestStart_InvalidConfig(t *testing.T) {
	t.Setenv("CONTRACT_ADDRESS", "")
	if err := Start("contract: ["); err == nil {
		t.Error("bad YAML should fail")
		Stop()
	}
	if err := Start("log:\n  level: debug\n"); err == nil {
		t.Error("missing contract address should fail")
		Stop()
	}
	if IsRunning() {
		t.Error("failed start must leave the daemon stopped")
	}
}

func TestStop_CancelsPendingCalls(t *testing.T) {
	t.Setenv("CONTRACT_ADDRESS", "")
	t.Setenv("DTWEET_WALLET_KEY", "")
	t.Setenv("DTWEET_SIGNER_URL", "")
	t.Setenv("DTWEET_API_PORT", "")
	t.Setenv("DTWEET_RPC_URL", "")

	// a node that never answers
	hits := make(chan struct{}, 16)
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case hits <- struct{}{}:
		default:
		}
		<-r.Context().Done()
	}))
	defer node.Close()

	cfg := fmt.Sprintf("contract:\n  address: \"0x5FbDB2315678afecb367f032d93F642f64180aa3\"\n"+
		"chain:\n  rpc_url: %q\n  chain_id: 31337\napi:\n  port: 0\nwallet:\n  key: %q\n", node.URL, devKey)
	if err := Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	result := make(chan string, 1)
	go func() { result <- Connect() }()
	select {
	case <-hits:
	case <-time.After(5 * time.Second):
		Stop()
		t.Fatal("connect never reached the node")
	}

	status := make(chan string, 1)
	go func() { status <- GetStatus() }()
	select {
	case got := <-status:
		if !strings.Contains(got, `"running":true`) {
			t.Errorf("GetStatus = %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("GetStatus blocked behind a pending ledger call")
	}
	if !IsRunning() {
		t.Error("daemon should be running")
	}

	stopped := make(chan struct{})
	go func() {
		Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop blocked behind a pending ledger call")
	}
	select {
	case <-result:
	case <-time.After(5 * time.Second):
		t.Fatal("pending call was not cancelled by Stop")
	}
}
