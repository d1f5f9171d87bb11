// Package soltest provides an in-process fake Solana JSON-RPC node and
// account fixtures for tests.
package soltest

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
)

// HandlerFunc answers one JSON-RPC call. Returning a non-nil *Error sends
// a JSON-RPC error object instead of a result.
type HandlerFunc func(params []json.RawMessage) (interface{}, *Error)

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Node is a fake JSON-RPC node backed by httptest.Server.
type Node struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    map[string]int
	status   int     // non-zero forces this HTTP status on every response
	rawBody  *string // non-nil is sent verbatim with status 200
}

type request struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// NewNode starts a fake node that is closed when the test ends.
// Unknown methods answer with JSON-RPC error -32601.
func NewNode(t testing.TB) *Node {
	n := &Node{
		handlers: make(map[string]HandlerFunc),
		calls:    make(map[string]int),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

// Handle registers the handler for a method, replacing any previous one.
func (n *Node) Handle(method string, h HandlerFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// Result registers a handler that always returns v.
func (n *Node) Result(method string, v interface{}) {
	n.Handle(method, func([]json.RawMessage) (interface{}, *Error) { return v, nil })
}

// FailHTTP makes every subsequent request answer with the given HTTP status
// and a non JSON-RPC body.
func (n *Node) FailHTTP(status int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = status
}

// RawBody makes every subsequent request answer 200 with body sent
// verbatim, bypassing the JSON-RPC envelope.
func (n *Node) RawBody(body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rawBody = &body
}

// Calls reports how many times method was requested.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	h, ok := n.handlers[req.Method]
	status := n.status
	rawBody := n.rawBody
	n.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if rawBody != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(*rawBody))
		return
	}

	resp := response{JSONRPC: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &Error{Code: -32601, Message: "Method not found"}
	} else {
		resp.Result, resp.Error = h(req.Params)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Account is the JSON shape of an account in base64 encoding.
type Account struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
	Space      uint64   `json:"space"`
}

// KeyedAccount is one entry of a getTokenAccountsByOwner result.
type KeyedAccount struct {
	Pubkey  string  `json:"pubkey"`
	Account Account `json:"account"`
}

// NewAccount builds an Account with base64 data.
func NewAccount(owner solana.PublicKey, lamports uint64, data []byte) Account {
	return Account{
		Lamports:  lamports,
		Owner:     owner.String(),
		Data:      []string{base64.StdEncoding.EncodeToString(data), "base64"},
		RentEpoch: 18446744073709551615,
		Space:     uint64(len(data)),
	}
}

// WithContext wraps a value in the {"context","value"} envelope.
func WithContext(slot uint64, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"context": map[string]interface{}{"slot": slot},
		"value":   value,
	}
}

// TokenAccountData builds an initialized 165-byte token account.
func TokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	buf := make([]byte, 165)
	copy(buf[0:32], mint[:])
	copy(buf[32:64], owner[:])
	binary.LittleEndian.PutUint64(buf[64:72], amount)
	buf[108] = 1
	return buf
}

// MintData builds an initialized 82-byte mint with no authorities.
func MintData(decimals uint8, supply uint64) []byte {
	buf := make([]byte, 82)
	binary.LittleEndian.PutUint64(buf[36:44], supply)
	buf[44] = decimals
	buf[45] = 1
	return buf
}

// ParamString decodes params[i] as a JSON string, or returns "".
func ParamString(params []json.RawMessage, i int) string {
	if i >= len(params) {
		return ""
	}
	var s string
	_ = json.Unmarshal(params[i], &s)
	return s
}
