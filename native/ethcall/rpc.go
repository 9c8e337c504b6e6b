package ethcall

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const defaultRPCTimeout = 15 * time.Second

// RPCBackend dispatches calls to contracts through a JSON-RPC node. Static
// calls map to eth_call; mutating calls are submitted as eth_sendTransaction
// from the configured executor account, which the node must manage.
type RPCBackend struct {
	client  *rpc.Client
	from    common.Address
	timeout time.Duration
}

// DialRPC connects to the node at url. The from address is used as the
// transaction sender for mutating calls.
func DialRPC(url string, from common.Address) (*RPCBackend, error) {
	client, err := rpc.Dial(url)
	if err != nil {
		return nil, err
	}
	return &RPCBackend{client: client, from: from, timeout: defaultRPCTimeout}, nil
}

// SetTimeout overrides the per-call deadline.
func (b *RPCBackend) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		b.timeout = timeout
	}
}

// Close releases the underlying connection.
func (b *RPCBackend) Close() {
	b.client.Close()
}

func (b *RPCBackend) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

// Call submits a state-mutating transaction to the target.
func (b *RPCBackend) Call(target common.Address, calldata []byte) error {
	ctx, cancel := b.callContext()
	defer cancel()
	args := map[string]interface{}{
		"from": b.from,
		"to":   target,
		"data": hexutil.Bytes(calldata),
	}
	var txHash common.Hash
	return b.client.CallContext(ctx, &txHash, "eth_sendTransaction", args)
}

// StaticCall performs a read-only eth_call against the latest block.
func (b *RPCBackend) StaticCall(target common.Address, calldata []byte) ([]byte, error) {
	ctx, cancel := b.callContext()
	defer cancel()
	args := map[string]interface{}{
		"to":   target,
		"data": hexutil.Bytes(calldata),
	}
	var result hexutil.Bytes
	if err := b.client.CallContext(ctx, &result, "eth_call", args, "latest"); err != nil {
		return nil, err
	}
	return result, nil
}
