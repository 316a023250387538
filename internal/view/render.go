// Package view turns tweet records into display blocks and keeps the page
// model the HTTP surface renders.
package view

import (
	"math/big"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/gateway"
)

// LikeState is the state of one like control.
type LikeState string

const (
	LikeIdle    LikeState = "idle"
	LikePending LikeState = "pending"
)

// LikeControl is the like button of one tweet in one render pass.
type LikeControl struct {
	Author string    `json:"author"`
	ID     string    `json:"id"`
	Count  int       `json:"count"`
	State  LikeState `json:"state"`
}

// Disabled reports whether the control accepts clicks.
func (l LikeControl) Disabled() bool { return l.State != LikeIdle }

// TweetBlock is everything needed to display one tweet.
type TweetBlock struct {
	ID          string      `json:"id"`
	Author      string      `json:"author"`
	AuthorShort string      `json:"author_short"`
	AvatarURL   string      `json:"avatar_url"`
	Text        string      `json:"text"`
	CreatedAt   time.Time   `json:"created_at"`
	Like        LikeControl `json:"like"`
}

// Options controls address shortening and avatars.
type Options struct {
	AvatarBaseURL string
	ShortStart    int
	ShortEnd      int
}

// DefaultOptions matches the stock page: 6+4 characters, dicebear avatars.
func DefaultOptions() Options {
	return Options{
		AvatarBaseURL: "https://api.dicebear.com/7.x/avataaars/svg",
		ShortStart:    6,
		ShortEnd:      4,
	}
}

// Render sorts tweets newest first (stable on ties), drops soft-deleted
// records and builds one block per remaining tweet with an idle like control.
// The input slice is not modified.
func Render(tweets []gateway.Tweet, opts Options) []TweetBlock {
	sorted := SortNewestFirst(tweets)
	blocks := make([]TweetBlock, 0, len(sorted))
	for _, t := range sorted {
		if t.IsDeleted {
			continue
		}
		author := t.Author.Hex()
		id := idString(t.ID)
		blocks = append(blocks, TweetBlock{
			ID:          id,
			Author:      author,
			AuthorShort: ShortAddress(author, opts.ShortStart, opts.ShortEnd),
			AvatarURL:   AvatarURL(opts.AvatarBaseURL, author),
			Text:        t.Text,
			CreatedAt:   t.CreatedAt,
			Like: LikeControl{
				Author: author,
				ID:     id,
				Count:  len(t.LikedBy),
				State:  LikeIdle,
			},
		})
	}
	return blocks
}

// SortNewestFirst returns a copy of tweets ordered by CreatedAt descending.
// Equal timestamps keep their fetch order.
func SortNewestFirst(tweets []gateway.Tweet) []gateway.Tweet {
	out := make([]gateway.Tweet, len(tweets))
	copy(out, tweets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ShortAddress keeps the first start and last end characters of addr joined
// by an ellipsis. Lengths are clamped to the address; a non-positive length
// contributes nothing, so end == 0 yields an empty tail rather than the
// whole address.
func ShortAddress(addr string, start, end int) string {
	head := addr
	if start < 0 {
		start = 0
	}
	if start < len(addr) {
		head = addr[:start]
	}
	tail := ""
	if end > 0 {
		from := len(addr) - end
		if from < 0 {
			from = 0
		}
		tail = addr[from:]
	}
	return head + "..." + tail
}

// AvatarURL returns the identicon for author. The same address always yields
// the same URL.
func AvatarURL(base, author string) string {
	if base == "" {
		base = DefaultOptions().AvatarBaseURL
	}
	return base + "?seed=" + url.QueryEscape(author)
}

func idString(id *big.Int) string {
	if id == nil {
		return "0"
	}
	return id.String()
}

// ControlKey identifies a like control by the tweet's (author, id) pair.
func ControlKey(author common.Address, id *big.Int) string {
	return author.Hex() + "/" + idString(id)
}

// ParseTweetID parses a decimal tweet id.
func ParseTweetID(s string) (*big.Int, bool) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 10)
}
