package session

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSession_UnsetAtStart(t *testing.T) {
	s := New()
	if _, ok := s.Account(); ok {
		t.Error("new session should have no account")
	}
	if !s.ConnectedAt().IsZero() {
		t.Error("connectedAt should be zero")
	}
	if len(s.ID()) != 36 {
		t.Errorf("id = %q, want a uuid", s.ID())
	}
}

func TestSession_ConnectOnce(t *testing.T) {
	s := New()
	first := common.HexToAddress("0x01")
	second := common.HexToAddress("0x02")

	if !s.Connect(first) {
		t.Fatal("first Connect should succeed")
	}
	if s.Connect(second) {
		t.Error("second Connect should be refused")
	}
	got, ok := s.Account()
	if !ok || got != first {
		t.Errorf("account = %s, %v; want %s", got.Hex(), ok, first.Hex())
	}
}

func TestSession_ConcurrentConnect(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	wins := make(chan common.Address, 16)
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(n byte) {
			defer wg.Done()
			a := common.BytesToAddress([]byte{n})
			if s.Connect(a) {
				wins <- a
			}
		}(byte(i))
	}
	wg.Wait()
	close(wins)

	if len(wins) != 1 {
		t.Fatalf("%d connects won, want exactly 1", len(wins))
	}
	winner := <-wins
	if got, _ := s.Account(); got != winner {
		t.Errorf("account = %s, want winner %s", got.Hex(), winner.Hex())
	}
}
