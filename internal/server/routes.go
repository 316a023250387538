package server

import (
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/controller"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/view"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/wallet"
)

const version = "0.1.0"

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// page
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /connect", s.limitWrites(s.handleConnectForm))
	mux.HandleFunc("POST /tweets", s.limitWrites(s.handleTweetForm))
	mux.HandleFunc("POST /tweets/like", s.limitWrites(s.handleLikeForm))

	// api
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/tweets", s.handleTweets)
	mux.HandleFunc("POST /api/connect", s.limitWrites(s.handleConnect))
	mux.HandleFunc("POST /api/tweets", s.limitWrites(s.handlePostTweet))
	mux.HandleFunc("POST /api/tweets/{author}/{id}/like", s.limitWrites(s.handleLike))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps a workflow error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrEmptyTweet), errors.Is(err, controller.ErrTweetTooLong):
		return http.StatusBadRequest
	case wallet.IsUserRejected(err), errors.Is(err, controller.ErrNoAccountAuthorized):
		return http.StatusForbidden
	case errors.Is(err, controller.ErrUnknownTweet):
		return http.StatusNotFound
	case errors.Is(err, controller.ErrNotConnected), errors.Is(err, controller.ErrLikePending),
		errors.Is(err, controller.ErrSubmitPending):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// likeTarget parses a (author, id) pair; msg is non-empty when it is invalid.
func likeTarget(authorHex, idStr string) (author common.Address, id *big.Int, msg string) {
	if !common.IsHexAddress(authorHex) {
		return author, nil, "author must be a hex address"
	}
	id, ok := view.ParseTweetID(idStr)
	if !ok {
		return author, nil, "id must be a non-negative integer"
	}
	return common.HexToAddress(authorHex), id, ""
}

// Page

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.WriteHTML(w); err != nil {
		writeError(w, 500, err.Error())
	}
}

func (s *Server) handleConnectForm(w http.ResponseWriter, r *http.Request) {
	// failures are reflected on the page and in the log
	s.actions.Connect(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleTweetForm(w http.ResponseWriter, r *http.Request) {
	// busy state is set before the redirect so the next GET shows it
	run, err := s.actions.PrepareTweet(r.PostFormValue(view.IDTweetContent))
	if err != nil {
		log.Printf("[api] Tweet refused: %v", err)
	} else {
		s.background(r, "tweet", run)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLikeForm(w http.ResponseWriter, r *http.Request) {
	author, id, msg := likeTarget(r.PostFormValue("author"), r.PostFormValue("id"))
	if msg != "" {
		writeError(w, 400, msg)
		return
	}
	run, err := s.actions.PrepareLike(author, id)
	if err != nil {
		log.Printf("[api] Like refused: %v", err)
	} else {
		s.background(r, "like", run)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// API

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, connected := s.actions.Account()
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"version":   version,
		"uptime_ms": s.daemon.Uptime().Milliseconds(),
		"connected": connected,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.daemon.Status())
}

func (s *Server) sessionJSON() map[string]interface{} {
	account, connected := s.actions.Account()
	out := map[string]interface{}{
		"session_id": s.actions.SessionID(),
		"connected":  connected,
	}
	if connected {
		out["account"] = account.Hex()
	}
	return out
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.sessionJSON())
}

func (s *Server) handleTweets(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.actions.Account(); !ok {
		writeError(w, http.StatusConflict, controller.ErrNotConnected.Error())
		return
	}
	writeJSON(w, s.actions.RefreshTweets(r.Context()))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.actions.Connect(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, s.sessionJSON())
}

func (s *Server) handlePostTweet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid JSON body")
		return
	}
	if err := s.actions.SubmitTweet(r.Context(), req.Text); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(s.page.Snapshot().Tweets)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	author, id, msg := likeTarget(r.PathValue("author"), r.PathValue("id"))
	if msg != "" {
		writeError(w, 400, msg)
		return
	}
	if err := s.actions.LikeTweet(r.Context(), author, id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, s.page.Snapshot().Tweets)
}
