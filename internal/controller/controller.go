// Package controller runs the user workflows: connect, refresh, post and like.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/gateway"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/metrics"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/session"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/view"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/wallet"
)

const (
	MsgNoProvider    = "No wallet provider detected. Configure a wallet key or an external signer."
	MsgConnectWallet = "Please connect your wallet."
	MsgPaused        = "The contract is paused. Contact the owner."
	ConnectedPrefix  = "Account Connected: "
)

var (
	ErrNotConnected        = errors.New("wallet not connected")
	ErrNoAccountAuthorized = errors.New("provider returned no authorized account")
	ErrEmptyTweet          = errors.New("tweet is empty")
	ErrTweetTooLong        = fmt.Errorf("tweet exceeds %d characters", view.MaxTweetLength)
	ErrLikePending         = view.ErrLikePending
	ErrSubmitPending       = view.ErrSubmitPending
	ErrUnknownTweet        = view.ErrUnknownTweet
)

// View is the page surface the workflows drive. *view.Page implements it.
type View interface {
	ShowConnectMessage(msg string)
	ShowConnected(label string)
	BeginSubmit() error
	EndSubmit()
	ReplaceTweets(blocks []view.TweetBlock)
	BeginLike(author common.Address, id *big.Int) error
	EndLike(author common.Address, id *big.Int)
}

type Options struct {
	Owner  *common.Address // pause diagnostic runs only when this account connects
	Render view.Options
	Debug  bool
}

type Controller struct {
	gw       gateway.Gateway
	provider wallet.Provider
	session  *session.Session
	view     View
	opts     Options
	metrics  *metrics.Metrics
}

// New wires a controller. provider may be nil when no wallet is configured.
func New(gw gateway.Gateway, provider wallet.Provider, sess *session.Session, v View, opts Options, m *metrics.Metrics) *Controller {
	if opts.Render.ShortStart == 0 && opts.Render.ShortEnd == 0 {
		def := view.DefaultOptions()
		opts.Render.ShortStart, opts.Render.ShortEnd = def.ShortStart, def.ShortEnd
	}
	return &Controller{
		gw:       gw,
		provider: provider,
		session:  sess,
		view:     v,
		opts:     opts,
		metrics:  m,
	}
}

// Account returns the connected account, if any.
func (c *Controller) Account() (common.Address, bool) {
	return c.session.Account()
}

// SessionID returns the id of the controller's session.
func (c *Controller) SessionID() string {
	return c.session.ID()
}

// Connect asks the provider for its accounts and binds the first one to the
// session. Without a provider the inline connect message is shown instead.
// Once connected, further calls only refresh the tweet list.
func (c *Controller) Connect(ctx context.Context) error {
	if _, ok := c.session.Account(); ok {
		c.RefreshTweets(ctx)
		c.metrics.Workflow("connect", "ok")
		return nil
	}
	if c.provider == nil {
		c.view.ShowConnectMessage(MsgNoProvider)
		c.metrics.Workflow("connect", "no_provider")
		return wallet.ErrProviderUnavailable
	}

	accounts, err := c.provider.Accounts(ctx)
	if err != nil {
		if errors.Is(err, wallet.ErrProviderUnavailable) {
			log.Printf("[controller] Provider %s unavailable: %v", c.provider.Name(), err)
			c.view.ShowConnectMessage(MsgNoProvider)
			c.metrics.Workflow("connect", "no_provider")
			return err
		}
		c.report("connect", err)
		return err
	}
	if len(accounts) == 0 {
		c.report("connect", ErrNoAccountAuthorized)
		return ErrNoAccountAuthorized
	}

	c.session.Connect(accounts[0])
	account, _ := c.session.Account()
	log.Printf("[controller] Connected %s via %s", account.Hex(), c.provider.Name())
	if c.opts.Debug {
		log.Printf("[controller] Session %s", c.session.ID())
	}
	c.view.ShowConnected(ConnectedPrefix + view.ShortAddress(account.Hex(), c.opts.Render.ShortStart, c.opts.Render.ShortEnd))

	if c.opts.Owner != nil && account == *c.opts.Owner {
		c.checkPaused(ctx, account)
	}
	c.RefreshTweets(ctx)
	c.metrics.Workflow("connect", "ok")
	return nil
}

func (c *Controller) checkPaused(ctx context.Context, account common.Address) {
	paused, err := c.gw.IsPaused(ctx, account)
	if err != nil {
		log.Printf("[controller] Pause check failed: %v", err)
		return
	}
	if paused {
		log.Printf("[controller] %s", MsgPaused)
	}
}

// RefreshTweets fetches the connected account's tweets, renders them and
// replaces the tweet list. A failed fetch renders an empty list. Without a
// session it does nothing and returns nil.
func (c *Controller) RefreshTweets(ctx context.Context) []view.TweetBlock {
	account, ok := c.session.Account()
	if !ok {
		return nil
	}
	tweets, err := c.gw.GetAllTweets(ctx, account, account)
	if err != nil {
		log.Printf("[controller] Fetch tweets failed: %v", err)
		tweets = nil
	}
	blocks := view.Render(tweets, c.opts.Render)
	c.view.ReplaceTweets(blocks)
	if c.opts.Debug {
		log.Printf("[controller] Rendered %d of %d tweets", len(blocks), len(tweets))
	}
	return blocks
}

// SubmitTweet posts text from the connected account and refreshes the list on
// confirmation. The submit button is busy for the duration of the call and
// is restored on every path; a submit while another is in flight is refused.
func (c *Controller) SubmitTweet(ctx context.Context, text string) error {
	run, err := c.PrepareTweet(text)
	if err != nil {
		return err
	}
	return run(ctx)
}

// PrepareTweet claims the submit button and validates text. On success the
// button stays busy until the returned function, which posts the tweet, has
// run; it must be called exactly once.
func (c *Controller) PrepareTweet(text string) (func(context.Context) error, error) {
	if err := c.view.BeginSubmit(); err != nil {
		c.metrics.Workflow("tweet", "refused")
		return nil, err
	}

	var err error
	account, ok := c.session.Account()
	switch {
	case !ok:
		err = ErrNotConnected
	case strings.TrimSpace(text) == "":
		err = ErrEmptyTweet
	case utf8.RuneCountInString(text) > view.MaxTweetLength:
		err = ErrTweetTooLong
	}
	if err != nil {
		c.view.EndSubmit()
		c.metrics.Workflow("tweet", "refused")
		return nil, err
	}

	return func(ctx context.Context) error {
		defer c.view.EndSubmit()
		if _, err := c.gw.CreateTweet(ctx, account, text); err != nil {
			c.report("tweet", err)
			return fmt.Errorf("create tweet: %w", err)
		}
		c.RefreshTweets(context.WithoutCancel(ctx))
		c.metrics.Workflow("tweet", "ok")
		return nil
	}, nil
}

// LikeTweet likes (author, id) from the connected account. The tweet's like
// control is pending until the call completes; a second like on a pending
// control is refused without reaching the ledger. The list is re-rendered
// afterwards whatever the outcome.
func (c *Controller) LikeTweet(ctx context.Context, author common.Address, id *big.Int) error {
	run, err := c.PrepareLike(author, id)
	if err != nil {
		return err
	}
	return run(ctx)
}

// PrepareLike moves the like control of (author, id) to pending. The
// returned function sends the like and releases the control; it must be
// called exactly once.
func (c *Controller) PrepareLike(author common.Address, id *big.Int) (func(context.Context) error, error) {
	account, ok := c.session.Account()
	if !ok {
		c.metrics.Workflow("like", "refused")
		return nil, ErrNotConnected
	}
	if err := c.view.BeginLike(author, id); err != nil {
		c.metrics.Workflow("like", "refused")
		return nil, err
	}

	return func(ctx context.Context) error {
		defer func() {
			c.view.EndLike(author, id)
			c.RefreshTweets(context.WithoutCancel(ctx))
		}()
		if _, err := c.gw.LikeTweet(ctx, account, author, id); err != nil {
			c.report("like", err)
			return fmt.Errorf("like tweet %s/%v: %w", author.Hex(), id, err)
		}
		c.metrics.Workflow("like", "ok")
		return nil
	}, nil
}

func (c *Controller) report(workflow string, err error) {
	if wallet.IsUserRejected(err) {
		log.Printf("[controller] %s: %s", workflow, MsgConnectWallet)
		c.metrics.Workflow(workflow, "rejected")
		return
	}
	log.Printf("[controller] Unexpected %s error: %v", workflow, err)
	c.metrics.Workflow(workflow, "error")
}
