package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyProvider holds a secp256k1 private key and its derived account.
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// LoadKey creates a provider from a hex-encoded private key (0x prefix optional).
func LoadKey(hexKey string) (*KeyProvider, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("no wallet key provided")
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}

	p := &KeyProvider{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
	log.Printf("[wallet] Loaded key, address: %s", p.address.Hex())
	return p, nil
}

func (p *KeyProvider) Name() string { return "local-key" }

// Address returns the account derived from the key.
func (p *KeyProvider) Address() common.Address { return p.address }

// Accounts returns the single account the key controls.
func (p *KeyProvider) Accounts(_ context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

// SignTx signs tx with the latest signer for chainID.
func (p *KeyProvider) SignTx(_ context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if account != p.address {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, account.Hex())
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return signed, nil
}
