package gateway

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/metrics"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/wallet"
)

const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeBackend answers eth_call with canned outputs and mines every sent tx.
type fakeBackend struct {
	mu         sync.Mutex
	callOutput map[string][]byte // keyed by 4-byte selector
	callErr    error
	calls      []ethereum.CallMsg
	sent       []*types.Transaction
	status     uint64
	pending    int // receipts reported NotFound before being mined
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{callOutput: map[string][]byte{}, status: types.ReceiptStatusSuccessful}
}

func (b *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	if b.callErr != nil {
		return nil, b.callErr
	}
	return b.callOutput[string(call.Data[:4])], nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 90_000, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending > 0 {
		b.pending--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: b.status, TxHash: hash, BlockNumber: big.NewInt(7)}, nil
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(31337), nil
}

func mustABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(bytes.NewReader(contractABI))
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	return parsed
}

func newTestContract(t *testing.T, b *fakeBackend, signer Signer) *Contract {
	t.Helper()
	c, err := New(Config{Address: contractAddr, ReceiptPoll: time.Millisecond}, b, signer, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestIsPaused(t *testing.T) {
	parsed := mustABI(t)
	b := newFakeBackend()
	out, err := parsed.Methods["isPaused"].Outputs.Pack(true)
	if err != nil {
		t.Fatal(err)
	}
	b.callOutput[string(parsed.Methods["isPaused"].ID)] = out

	c := newTestContract(t, b, nil)
	from := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	paused, err := c.IsPaused(context.Background(), from)
	if err != nil {
		t.Fatalf("IsPaused: %v", err)
	}
	if !paused {
		t.Error("expected paused")
	}
	if b.calls[0].From != from {
		t.Errorf("call from = %s, want %s", b.calls[0].From.Hex(), from.Hex())
	}
	if *b.calls[0].To != contractAddr {
		t.Errorf("call to = %s", b.calls[0].To.Hex())
	}
}

func TestGetAllTweets(t *testing.T) {
	parsed := mustABI(t)
	b := newFakeBackend()
	alice := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bob := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	out, err := parsed.Methods["getAllTweets"].Outputs.Pack([]contractTweet{
		{Id: big.NewInt(0), Author: alice, Text: "gm", CreatedAt: big.NewInt(1700000000), LikedBy: []common.Address{bob}},
		{Id: big.NewInt(1), Author: alice, Text: "gone", CreatedAt: big.NewInt(1700000100), IsDeleted: true, LikedBy: []common.Address{}},
	})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	b.callOutput[string(parsed.Methods["getAllTweets"].ID)] = out

	c := newTestContract(t, b, nil)
	tweets, err := c.GetAllTweets(context.Background(), alice, alice)
	if err != nil {
		t.Fatalf("GetAllTweets: %v", err)
	}
	if len(tweets) != 2 {
		t.Fatalf("got %d tweets, want 2", len(tweets))
	}
	if tweets[0].Text != "gm" || tweets[0].Author != alice || tweets[0].ID.Int64() != 0 {
		t.Errorf("tweet[0] = %+v", tweets[0])
	}
	if !tweets[0].CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("created_at = %v", tweets[0].CreatedAt)
	}
	if len(tweets[0].LikedBy) != 1 || tweets[0].LikedBy[0] != bob {
		t.Errorf("liked_by = %v", tweets[0].LikedBy)
	}
	if !tweets[1].IsDeleted {
		t.Error("tweet[1] should be deleted")
	}
}

func TestGetAllTweets_CallError(t *testing.T) {
	b := newFakeBackend()
	b.callErr = errors.New("connection refused")
	c := newTestContract(t, b, nil)
	if _, err := c.GetAllTweets(context.Background(), common.Address{}, common.Address{}); err == nil {
		t.Error("expected error")
	}
}

func TestCreateTweet(t *testing.T) {
	parsed := mustABI(t)
	b := newFakeBackend()
	b.pending = 2
	signer, err := wallet.LoadKey(devKey)
	if err != nil {
		t.Fatal(err)
	}
	c := newTestContract(t, b, signer)

	receipt, err := c.CreateTweet(context.Background(), signer.Address(), "hello chain")
	if err != nil {
		t.Fatalf("CreateTweet: %v", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Errorf("status = %d", receipt.Status)
	}
	if len(b.sent) != 1 {
		t.Fatalf("sent %d txs, want 1", len(b.sent))
	}
	tx := b.sent[0]
	if *tx.To() != contractAddr {
		t.Errorf("tx to = %s", tx.To().Hex())
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(31337)), tx)
	if err != nil || from != signer.Address() {
		t.Errorf("sender = %s, %v", from.Hex(), err)
	}
	args, err := parsed.Methods["createTweet"].Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		t.Fatalf("unpack input: %v", err)
	}
	if args[0].(string) != "hello chain" {
		t.Errorf("text arg = %v", args[0])
	}
}

func TestLikeTweet_Args(t *testing.T) {
	parsed := mustABI(t)
	b := newFakeBackend()
	signer, _ := wallet.LoadKey(devKey)
	c := newTestContract(t, b, signer)
	author := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	if _, err := c.LikeTweet(context.Background(), signer.Address(), author, big.NewInt(42)); err != nil {
		t.Fatalf("LikeTweet: %v", err)
	}
	args, err := parsed.Methods["likeTweet"].Inputs.Unpack(b.sent[0].Data()[4:])
	if err != nil {
		t.Fatalf("unpack input: %v", err)
	}
	if args[0].(common.Address) != author {
		t.Errorf("author arg = %v", args[0])
	}
	if args[1].(*big.Int).Int64() != 42 {
		t.Errorf("id arg = %v", args[1])
	}
}

func TestTransact_Reverted(t *testing.T) {
	b := newFakeBackend()
	b.status = types.ReceiptStatusFailed
	signer, _ := wallet.LoadKey(devKey)
	c := newTestContract(t, b, signer)

	_, err := c.CreateTweet(context.Background(), signer.Address(), "paused?")
	if !errors.Is(err, ErrReverted) {
		t.Errorf("err = %v, want ErrReverted", err)
	}
}

func TestTransact_NoSigner(t *testing.T) {
	c := newTestContract(t, newFakeBackend(), nil)
	_, err := c.CreateTweet(context.Background(), common.Address{}, "x")
	if !errors.Is(err, ErrNoSigner) {
		t.Errorf("err = %v, want ErrNoSigner", err)
	}
}

func TestTransact_SignerRejects(t *testing.T) {
	b := newFakeBackend()
	c := newTestContract(t, b, rejectingSigner{})
	_, err := c.LikeTweet(context.Background(), common.Address{}, common.Address{}, big.NewInt(1))
	if !wallet.IsUserRejected(err) {
		t.Errorf("err = %v, want user rejection to survive wrapping", err)
	}
	if len(b.sent) != 0 {
		t.Error("rejected tx must not be sent")
	}
}

func TestWaitMined_ContextCancelled(t *testing.T) {
	b := newFakeBackend()
	b.pending = 1 << 30
	signer, _ := wallet.LoadKey(devKey)
	c := newTestContract(t, b, signer)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.CreateTweet(ctx, signer.Address(), "never mined")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

type rejectingSigner struct{}

func (rejectingSigner) SignTx(context.Context, common.Address, *types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
}
