// Package rpc provides a resilient JSON-RPC client for the source chain.
//
//   - provider/ - HTTPProvider (JSON-RPC 2.0 over HTTP) and throttle monitoring
//   - routing/  - error classification, exponential backoff and failover
//
// Typical use:
//
//	client := rpc.NewHTTPClient("Alphanet v0.1.0", []string{rpcURL}, 10*time.Second)
//	raw, err := client.Call(ctx, "eth_blockNumber", nil)
package rpc
