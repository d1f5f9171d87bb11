package solana

import (
	"net"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// NewRPCClient builds the solana-go JSON-RPC client used by the transport.
// The HTTP client has no overall timeout of its own; each call carries a
// per-attempt context deadline instead. For providers that need an API
// key, include it in the URL, e.g. https://mainnet.helius-rpc.com/?api-key=KEY.
func NewRPCClient(rpcURL string) RPCClient {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
	return rpc.NewWithCustomRPCClient(jsonrpc.NewClientWithOpts(rpcURL, &jsonrpc.RPCClientOpts{
		HTTPClient: httpClient,
	}))
}
