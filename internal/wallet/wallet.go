// Package wallet provides the account providers the client connects to:
// a local secp256k1 key or an external JSON-RPC signer.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// CodeUserRejected is the provider error code for a request the user declined.
const CodeUserRejected = 4001

var (
	ErrProviderUnavailable = errors.New("wallet provider unavailable")
	ErrUnknownAccount      = errors.New("account not managed by this provider")
)

// Provider enumerates authorized accounts and signs transactions for them.
type Provider interface {
	Name() string
	Accounts(ctx context.Context) ([]common.Address, error)
	SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// ProviderError is an error reported by the provider itself, with its code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// IsUserRejected reports whether err is the provider's user-rejected code.
func IsUserRejected(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == CodeUserRejected
}

// FromConfig picks a provider from wallet settings. A nil provider with a nil
// error means none is configured. A local key takes precedence.
func FromConfig(key, signerURL string) (Provider, error) {
	switch {
	case strings.TrimSpace(key) != "":
		p, err := LoadKey(key)
		if err != nil {
			return nil, err
		}
		return p, nil
	case strings.TrimSpace(signerURL) != "":
		return NewExternalProvider(signerURL), nil
	default:
		return nil, nil
	}
}

// classify maps transport and JSON-RPC failures onto wallet errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		code := rpcErr.ErrorCode()
		// clef answers a declined prompt with a generic server error
		if strings.Contains(strings.ToLower(rpcErr.Error()), "request denied") {
			code = CodeUserRejected
		}
		return &ProviderError{Code: code, Message: rpcErr.Error()}
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
