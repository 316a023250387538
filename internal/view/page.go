package view

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Element ids of the page. Every rendered page carries all of them.
const (
	IDUserAddress    = "userAddress"
	IDConnectMessage = "connectMessage"
	IDConnectButton  = "connectWalletBtn"
	IDTweetForm      = "tweetForm"
	IDTweetsList     = "tweetsContainer"
	IDTweetContent   = "tweetContent"
	IDSubmitButton   = "tweetSubmitBtn"
)

// ElementIDs lists every fixed element id.
var ElementIDs = []string{
	IDUserAddress,
	IDConnectMessage,
	IDConnectButton,
	IDTweetForm,
	IDTweetsList,
	IDTweetContent,
	IDSubmitButton,
}

const SubmitLabel = "Tweet"

var (
	ErrLikePending   = errors.New("like already pending")
	ErrSubmitPending = errors.New("a tweet is already being submitted")
	ErrUnknownTweet  = errors.New("no such tweet in the current view")
)

// Button is the state of a clickable control.
type Button struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
	Busy     bool   `json:"busy"`
}

// State is a snapshot of the page.
type State struct {
	UserAddress      string       `json:"user_address"`
	ConnectMessage   string       `json:"connect_message"`
	ShowConnect      bool         `json:"show_connect"`
	ShowMessage      bool         `json:"show_message"`
	ShowTweetForm    bool         `json:"show_tweet_form"`
	Submit           Button       `json:"submit"`
	Tweets           []TweetBlock `json:"tweets"`
	Generation       uint64       `json:"generation"`
	PendingLikeCount int          `json:"pending_likes"`
}

// Busy reports whether any control is waiting on the ledger.
func (s State) Busy() bool {
	return s.Submit.Busy || s.PendingLikeCount > 0
}

// Page is the single page model shared by all handlers.
type Page struct {
	mu      sync.Mutex
	state   State
	index   map[string]int      // control key -> position in state.Tweets
	pending map[string]struct{} // like controls waiting on the ledger
}

// NewPage returns the page as first loaded: connect button and prompt
// visible, form hidden, no tweets.
func NewPage() *Page {
	return &Page{
		state: State{
			ConnectMessage: "Connect your wallet to read and post tweets.",
			ShowConnect:    true,
			ShowMessage:    true,
			Submit:         Button{Label: SubmitLabel},
		},
		index:   map[string]int{},
		pending: map[string]struct{}{},
	}
}

// ShowConnectMessage puts msg in the inline connect message and shows it.
func (p *Page) ShowConnectMessage(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.ConnectMessage = msg
	p.state.ShowMessage = true
}

// ShowConnected hides the connect controls, labels the user and reveals the
// tweet form.
func (p *Page) ShowConnected(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.ShowConnect = false
	p.state.ShowMessage = false
	p.state.UserAddress = label
	p.state.ShowTweetForm = true
}

// BeginSubmit disables the submit button and swaps its label for a spinner.
// It fails while a submission is already in flight.
func (p *Page) BeginSubmit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Submit.Busy {
		return ErrSubmitPending
	}
	p.state.Submit = Button{Disabled: true, Busy: true}
	return nil
}

// EndSubmit restores the "Tweet" button.
func (p *Page) EndSubmit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Submit = Button{Label: SubmitLabel}
}

// ReplaceTweets swaps in a new render. Controls whose like is still in
// flight stay pending in the new render; all others start idle.
func (p *Page) ReplaceTweets(blocks []TweetBlock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tweets := make([]TweetBlock, len(blocks))
	copy(tweets, blocks)
	p.index = make(map[string]int, len(tweets))
	for i := range tweets {
		key := tweets[i].Like.Author + "/" + tweets[i].Like.ID
		p.index[key] = i
		if _, ok := p.pending[key]; ok {
			tweets[i].Like.State = LikePending
		} else {
			tweets[i].Like.State = LikeIdle
		}
	}
	p.state.Tweets = tweets
	p.state.Generation++
	p.state.PendingLikeCount = len(p.pending)
}

// BeginLike moves the control of (author, id) to pending. It fails when the
// current render has no such control or its like is already in flight.
func (p *Page) BeginLike(author common.Address, id *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := ControlKey(author, id)
	i, ok := p.index[key]
	if !ok {
		return ErrUnknownTweet
	}
	if _, busy := p.pending[key]; busy {
		return ErrLikePending
	}
	p.pending[key] = struct{}{}
	p.state.Tweets[i].Like.State = LikePending
	p.state.PendingLikeCount = len(p.pending)
	return nil
}

// EndLike releases the control of (author, id).
func (p *Page) EndLike(author common.Address, id *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := ControlKey(author, id)
	delete(p.pending, key)
	if i, ok := p.index[key]; ok {
		p.state.Tweets[i].Like.State = LikeIdle
	}
	p.state.PendingLikeCount = len(p.pending)
}

// Snapshot returns a copy of the page state.
func (p *Page) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Tweets = make([]TweetBlock, len(p.state.Tweets))
	copy(s.Tweets, p.state.Tweets)
	return s
}
