package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// ExternalProvider talks to a clef-compatible signer over JSON-RPC. Every
// request may block on a user approval prompt on the signer side.
type ExternalProvider struct {
	endpoint string

	mu     sync.Mutex
	client *rpc.Client
	signer *external.ExternalSigner
}

// NewExternalProvider returns a provider for endpoint. Nothing is dialed
// until the first request.
func NewExternalProvider(endpoint string) *ExternalProvider {
	return &ExternalProvider{endpoint: endpoint}
}

func (p *ExternalProvider) Name() string { return "external:" + p.endpoint }

func (p *ExternalProvider) rpcClient(ctx context.Context) (*rpc.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := rpc.DialContext(ctx, p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrProviderUnavailable, p.endpoint, err)
	}
	p.client = client
	return client, nil
}

// Accounts asks the signer which accounts the user authorizes.
func (p *ExternalProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	client, err := p.rpcClient(ctx)
	if err != nil {
		return nil, err
	}
	var accts []common.Address
	if err := client.CallContext(ctx, &accts, "account_list"); err != nil {
		return nil, classify(err)
	}
	return accts, nil
}

// SignTx forwards tx to the signer for approval.
func (p *ExternalProvider) SignTx(_ context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	p.mu.Lock()
	if p.signer == nil {
		signer, err := external.NewExternalSigner(p.endpoint)
		if err != nil {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		p.signer = signer
	}
	signer := p.signer
	p.mu.Unlock()

	signed, err := signer.SignTx(accounts.Account{Address: account}, tx, chainID)
	if err != nil {
		return nil, classify(err)
	}
	return signed, nil
}

// Close releases the RPC connections.
func (p *ExternalProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	p.signer = nil
}
