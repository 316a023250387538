package mcpserver

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/view"
)

// DaemonInfo provides read-only access to daemon state for MCP tools.
type DaemonInfo interface {
	Uptime() time.Duration
	Status() map[string]interface{}
}

// Actions are the workflows the write tools trigger.
type Actions interface {
	Connect(ctx context.Context) error
	RefreshTweets(ctx context.Context) []view.TweetBlock
	SubmitTweet(ctx context.Context, text string) error
	LikeTweet(ctx context.Context, author common.Address, id *big.Int) error
	Account() (common.Address, bool)
}

// MCPServer wraps the MCP protocol server with dTweet tools.
type MCPServer struct {
	server  *mcp.Server
	daemon  DaemonInfo
	actions Actions
}

// New creates an MCP server with all dTweet tools registered.
func New(version string, daemon DaemonInfo, actions Actions) *MCPServer {
	s := &MCPServer{
		daemon:  daemon,
		actions: actions,
		server: mcp.NewServer(
			&mcp.Implementation{
				Name:    "dtweet",
				Version: version,
			},
			&mcp.ServerOptions{
				Instructions: "dTweet client for an on-chain tweet contract. Connect the configured wallet, read the connected account's tweets, post new tweets and like them.",
			},
		),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects.
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
