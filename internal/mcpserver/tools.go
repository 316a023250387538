package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/view"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/wallet"
)

// --- Input types ---

type emptyInput struct{}

type tweetsInput struct {
	Limit int `json:"limit" jsonschema:"max number of tweets to return, newest first (0 = all)"`
}

type postInput struct {
	Text string `json:"text" jsonschema:"tweet text, at most 280 characters"`
}

type likeInput struct {
	Author string `json:"author" jsonschema:"hex address of the tweet author"`
	ID     string `json:"id" jsonschema:"decimal tweet id"`
}

// registerTools adds all dTweet MCP tools to the server.
func (s *MCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dtweet_status",
		Description: "Client status: contract, provider, connected account, uptime",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dtweet_connect",
		Description: "Connect the configured wallet and load its tweets",
	}, s.handleConnect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dtweet_tweets",
		Description: "Tweets of the connected account, newest first",
	}, s.handleTweets)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dtweet_post",
		Description: "Post a tweet from the connected account and wait for confirmation",
	}, s.handlePost)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dtweet_like",
		Description: "Like a tweet by author and id from the connected account",
	}, s.handleLike)
}

// --- Handlers ---

func (s *MCPServer) handleStatus(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	status := s.daemon.Status()
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "# dTweet Status\n\n")
	fmt.Fprintf(&b, "**Uptime:** %s\n\n", s.daemon.Uptime().Round(1e9))
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, status[k])
	}
	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleConnect(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if err := s.actions.Connect(ctx); err != nil {
		if wallet.IsUserRejected(err) {
			return errResult("Connection rejected in the wallet. Please connect your wallet."), nil, nil
		}
		return errResult(fmt.Sprintf("connect failed: %v", err)), nil, nil
	}
	account, _ := s.actions.Account()
	return textResult(fmt.Sprintf("Connected.\n\n- **Account:** `%s`", account.Hex())), nil, nil
}

func (s *MCPServer) handleTweets(ctx context.Context, _ *mcp.CallToolRequest, input tweetsInput) (*mcp.CallToolResult, any, error) {
	if _, ok := s.actions.Account(); !ok {
		return errResult("wallet not connected; call dtweet_connect first"), nil, nil
	}
	blocks := s.actions.RefreshTweets(ctx)
	if input.Limit > 0 && len(blocks) > input.Limit {
		blocks = blocks[:input.Limit]
	}
	return textResult(formatTweets(blocks)), nil, nil
}

func (s *MCPServer) handlePost(ctx context.Context, _ *mcp.CallToolRequest, input postInput) (*mcp.CallToolResult, any, error) {
	if err := s.actions.SubmitTweet(ctx, input.Text); err != nil {
		return errResult(fmt.Sprintf("post failed: %v", err)), nil, nil
	}
	return textResult("Tweet confirmed."), nil, nil
}

func (s *MCPServer) handleLike(ctx context.Context, _ *mcp.CallToolRequest, input likeInput) (*mcp.CallToolResult, any, error) {
	if !common.IsHexAddress(input.Author) {
		return errResult("author must be a hex address"), nil, nil
	}
	id, ok := view.ParseTweetID(input.ID)
	if !ok {
		return errResult("id must be a non-negative integer"), nil, nil
	}
	if err := s.actions.LikeTweet(ctx, common.HexToAddress(input.Author), id); err != nil {
		return errResult(fmt.Sprintf("like failed: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Liked tweet %s by `%s`.", id, common.HexToAddress(input.Author).Hex())), nil, nil
}

// --- Helpers ---

func formatTweets(blocks []view.TweetBlock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tweets (%d)\n\n", len(blocks))
	if len(blocks) == 0 {
		fmt.Fprintf(&b, "No tweets yet.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "| ID | Author | Likes | Posted | Text |\n")
	fmt.Fprintf(&b, "|----|--------|-------|--------|------|\n")
	for _, t := range blocks {
		text := strings.ReplaceAll(t.Text, "|", "\\|")
		text = strings.ReplaceAll(text, "\n", " ")
		fmt.Fprintf(&b, "| %s | `%s` | %d | %s | %s |\n",
			t.ID, t.AuthorShort, t.Like.Count, t.CreatedAt.UTC().Format("2006-01-02 15:04"), text)
	}
	return b.String()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
