package daemon

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/config"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/controller"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/gateway"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/metrics"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/server"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/session"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/view"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/wallet"
)

// Option customises a daemon before Start.
type Option func(*Daemon)

// WithBackend uses backend instead of dialing chain.rpc_url.
func WithBackend(backend gateway.Backend) Option {
	return func(d *Daemon) { d.backend = backend }
}

// WithoutHTTP skips the HTTP API, e.g. when only MCP is served.
func WithoutHTTP() Option {
	return func(d *Daemon) { d.noHTTP = true }
}

// Daemon wires the dTweet subsystems together.
type Daemon struct {
	cfg       *config.Config
	startTime time.Time
	noHTTP    bool

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	client   *ethclient.Client
	backend  gateway.Backend
	provider wallet.Provider
	contract *gateway.Contract
	session  *session.Session
	page     *view.Page
	ctrl     *controller.Controller
	httpSrv  *server.Server
	apiPort  int
	stopCh   chan struct{}
}

// New creates a new daemon instance.
func New(cfg *config.Config, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Daemon{cfg: cfg, stopCh: make(chan struct{})}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start initializes and starts all subsystems in order.
func (d *Daemon) Start() error {
	d.startTime = time.Now()

	// 1. Metrics
	d.registry = prometheus.NewRegistry()
	d.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d.metrics = metrics.New(d.registry)

	// 2. Chain connection
	if d.backend == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := ethclient.DialContext(ctx, d.cfg.Chain.RPCURL)
		cancel()
		if err != nil {
			return fmt.Errorf("dial rpc %s: %w", d.cfg.Chain.RPCURL, err)
		}
		d.client = client
		d.backend = client
		log.Printf("[daemon] RPC: %s", d.cfg.Chain.RPCURL)
	}

	// 3. Wallet provider
	provider, err := wallet.FromConfig(d.cfg.Wallet.Key, d.cfg.Wallet.SignerURL)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	d.provider = provider
	var signer gateway.Signer
	if provider != nil {
		signer = provider
		log.Printf("[wallet] Provider: %s", provider.Name())
	} else {
		log.Println("[wallet] No provider configured (connect will report it)")
	}

	// 4. Contract binding
	gwCfg := gateway.Config{Address: d.cfg.ContractAddress()}
	if d.cfg.Chain.ChainID > 0 {
		gwCfg.ChainID = big.NewInt(d.cfg.Chain.ChainID)
	}
	d.contract, err = gateway.New(gwCfg, d.backend, signer, d.metrics)
	if err != nil {
		return err
	}
	log.Printf("[daemon] Contract: %s", d.contract.Address().Hex())

	// 5. Session, page and workflows
	d.session = session.New()
	d.page = view.NewPage()
	opts := controller.Options{
		Render: view.Options{
			AvatarBaseURL: d.cfg.View.AvatarBaseURL,
			ShortStart:    d.cfg.View.ShortStart,
			ShortEnd:      d.cfg.View.ShortEnd,
		},
		Debug: d.cfg.Debug(),
	}
	if owner, ok := d.cfg.OwnerAddress(); ok {
		opts.Owner = &owner
	}
	d.ctrl = controller.New(d.contract, provider, d.session, d.page, opts, d.metrics)
	log.Printf("[daemon] Session %s", d.session.ID())

	// 6. Periodic status logging
	go d.statusLoop()

	// 7. HTTP API
	if !d.noHTTP {
		d.httpSrv = server.New(server.Config{
			Bind:      d.cfg.API.Bind,
			Port:      d.cfg.API.Port,
			RateRPS:   d.cfg.RateLimit.RPS,
			RateBurst: d.cfg.RateLimit.Burst,
			Gatherer:  d.registry,
			Metrics:   d.metrics,
		}, d, d.ctrl, d.page)
		port, err := d.httpSrv.Start()
		if err != nil {
			return fmt.Errorf("http api: %w", err)
		}
		d.apiPort = port
		log.Printf("[daemon] Open http://%s:%d to tweet", d.cfg.API.Bind, port)
	}

	log.Println("[daemon] All systems online")
	return nil
}

func (d *Daemon) statusLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			account := "-"
			if a, ok := d.session.Account(); ok {
				account = a.Hex()
			}
			s := d.page.Snapshot()
			log.Printf("[daemon] Account: %s | Tweets: %d | Renders: %d | Uptime: %s",
				account, len(s.Tweets), s.Generation, d.Uptime().Round(time.Second))
		}
	}
}

// Stop shuts down all subsystems.
func (d *Daemon) Stop() {
	log.Println("[daemon] Shutting down...")
	close(d.stopCh)

	if d.httpSrv != nil {
		d.httpSrv.Stop()
	}
	if closer, ok := d.provider.(interface{ Close() }); ok {
		closer.Close()
	}
	if d.client != nil {
		d.client.Close()
	}

	log.Println("[daemon] Shutdown complete")
}

// --- Accessors (used by HTTP API, MCP and mobile) ---

func (d *Daemon) Uptime() time.Duration { return time.Since(d.startTime) }

// APIPort returns the bound HTTP port, 0 when HTTP is disabled.
func (d *Daemon) APIPort() int { return d.apiPort }

// Controller returns the workflow controller.
func (d *Daemon) Controller() *controller.Controller { return d.ctrl }

// Page returns the shared page model.
func (d *Daemon) Page() *view.Page { return d.page }

// Status summarises the daemon for /status, MCP and mobile.
func (d *Daemon) Status() map[string]interface{} {
	providerName := ""
	if d.provider != nil {
		providerName = d.provider.Name()
	}
	s := d.page.Snapshot()
	status := map[string]interface{}{
		"uptime_ms":  d.Uptime().Milliseconds(),
		"contract":   d.contract.Address().Hex(),
		"rpc_url":    d.cfg.Chain.RPCURL,
		"provider":   providerName,
		"session_id": d.session.ID(),
		"connected":  false,
		"tweets":     len(s.Tweets),
		"renders":    s.Generation,
		"api_port":   d.apiPort,
	}
	if owner, ok := d.cfg.OwnerAddress(); ok {
		status["owner"] = owner.Hex()
	}
	if account, ok := d.session.Account(); ok {
		status["connected"] = true
		status["account"] = account.Hex()
		status["connected_at"] = d.session.ConnectedAt().UTC().Format(time.RFC3339)
	}
	return status
}

// Account returns the connected account, if any.
func (d *Daemon) Account() (common.Address, bool) { return d.session.Account() }
