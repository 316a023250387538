// Package gateway binds the tweet contract: reads go through eth_call, writes
// are signed by the connected wallet and wait for their receipt.
package gateway

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/metrics"
)

//go:embed abi.json
var contractABI []byte

var (
	ErrNoSigner = errors.New("no signer configured")
	ErrReverted = errors.New("transaction reverted")
)

// Tweet is one record as returned by getAllTweets.
type Tweet struct {
	ID        *big.Int         `json:"id"`
	Author    common.Address   `json:"author"`
	Text      string           `json:"text"`
	CreatedAt time.Time        `json:"created_at"`
	IsDeleted bool             `json:"is_deleted"`
	LikedBy   []common.Address `json:"liked_by"`
}

// contractTweet mirrors the Solidity struct; field order matches the ABI tuple.
type contractTweet struct {
	Id        *big.Int
	Author    common.Address
	Text      string
	CreatedAt *big.Int
	IsDeleted bool
	LikedBy   []common.Address
}

// Gateway is the remote ledger as seen by the client. All calls are made
// from the given account.
type Gateway interface {
	IsPaused(ctx context.Context, from common.Address) (bool, error)
	GetAllTweets(ctx context.Context, from, owner common.Address) ([]Tweet, error)
	CreateTweet(ctx context.Context, from common.Address, text string) (*types.Receipt, error)
	LikeTweet(ctx context.Context, from, author common.Address, id *big.Int) (*types.Receipt, error)
}

// Backend is the subset of ethclient.Client the binding needs.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Signer signs a transaction on behalf of account. wallet.Provider satisfies it.
type Signer interface {
	SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Config configures a contract binding.
type Config struct {
	Address     common.Address
	ChainID     *big.Int      // nil = ask the backend once
	ReceiptPoll time.Duration // receipt polling interval, default 1s
}

// Contract is the go-ethereum backed Gateway.
type Contract struct {
	cfg     Config
	abi     abi.ABI
	backend Backend
	signer  Signer
	metrics *metrics.Metrics

	chainMu sync.Mutex
	chainID *big.Int
}

// New parses the embedded ABI and binds it to cfg.Address. signer may be nil,
// in which case writes fail with ErrNoSigner.
func New(cfg Config, backend Backend, signer Signer, m *metrics.Metrics) (*Contract, error) {
	parsed, err := abi.JSON(bytes.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	if cfg.ReceiptPoll <= 0 {
		cfg.ReceiptPoll = time.Second
	}
	return &Contract{
		cfg:     cfg,
		abi:     parsed,
		backend: backend,
		signer:  signer,
		metrics: m,
		chainID: cfg.ChainID,
	}, nil
}

// Address returns the bound contract address.
func (c *Contract) Address() common.Address { return c.cfg.Address }

// IsPaused reads the contract's pause flag.
func (c *Contract) IsPaused(ctx context.Context, from common.Address) (paused bool, err error) {
	defer c.observe("isPaused", time.Now(), &err)

	out, err := c.call(ctx, from, "isPaused")
	if err != nil {
		return false, err
	}
	paused = *abi.ConvertType(out[0], new(bool)).(*bool)
	return paused, nil
}

// GetAllTweets returns every tweet of owner in contract order, deleted ones included.
func (c *Contract) GetAllTweets(ctx context.Context, from, owner common.Address) (tweets []Tweet, err error) {
	defer c.observe("getAllTweets", time.Now(), &err)

	out, err := c.call(ctx, from, "getAllTweets", owner)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]contractTweet)).(*[]contractTweet)

	tweets = make([]Tweet, 0, len(raw))
	for _, r := range raw {
		t := Tweet{
			ID:        r.Id,
			Author:    r.Author,
			Text:      r.Text,
			IsDeleted: r.IsDeleted,
			LikedBy:   r.LikedBy,
		}
		if r.CreatedAt != nil && r.CreatedAt.IsInt64() {
			t.CreatedAt = time.Unix(r.CreatedAt.Int64(), 0).UTC()
		}
		tweets = append(tweets, t)
	}
	return tweets, nil
}

// CreateTweet sends createTweet(text) from the account and waits for confirmation.
func (c *Contract) CreateTweet(ctx context.Context, from common.Address, text string) (receipt *types.Receipt, err error) {
	defer c.observe("createTweet", time.Now(), &err)
	return c.transact(ctx, from, "createTweet", text)
}

// LikeTweet sends likeTweet(author, id) from the account and waits for confirmation.
func (c *Contract) LikeTweet(ctx context.Context, from, author common.Address, id *big.Int) (receipt *types.Receipt, err error) {
	defer c.observe("likeTweet", time.Now(), &err)
	return c.transact(ctx, from, "likeTweet", author, id)
}

func (c *Contract) call(ctx context.Context, from common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := c.cfg.Address
	data, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := c.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return out, nil
}

func (c *Contract) chain(ctx context.Context) (*big.Int, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()
	if c.chainID != nil {
		return c.chainID, nil
	}
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	c.chainID = id
	return id, nil
}

// transact builds, signs and sends one legacy transaction, then blocks until
// it is mined. No retries: a failure is reported once.
func (c *Contract) transact(ctx context.Context, from common.Address, method string, args ...interface{}) (*types.Receipt, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	chainID, err := c.chain(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	to := c.cfg.Address
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: input})
	if err != nil {
		return nil, fmt.Errorf("estimate %s: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     input,
	})
	signed, err := c.signer.SignTx(ctx, from, tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	log.Printf("[gateway] %s sent: %s", method, signed.Hash().Hex())

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", method, err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%s %s: %w", method, signed.Hash().Hex(), ErrReverted)
	}
	log.Printf("[gateway] %s confirmed in block %v", method, receipt.BlockNumber)
	return receipt, nil
}

func (c *Contract) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.cfg.ReceiptPoll)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Contract) observe(method string, started time.Time, errp *error) {
	c.metrics.ObserveCall(method, started, *errp)
}
