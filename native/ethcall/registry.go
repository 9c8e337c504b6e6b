package ethcall

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownTarget   = errors.New("ethcall: no handler registered for target")
	ErrUnknownSelector = errors.New("ethcall: no handler registered for selector")
	ErrShortCalldata   = errors.New("ethcall: calldata shorter than a selector")
)

// Backend dispatches raw calldata to a target. Call performs a state-mutating
// invocation, StaticCall a read-only one returning the encoded result.
type Backend interface {
	Call(target common.Address, calldata []byte) error
	StaticCall(target common.Address, calldata []byte) ([]byte, error)
}

// HandlerFunc receives the argument payload (calldata with the selector
// stripped) and returns the ABI-encoded result, if any.
type HandlerFunc func(args []byte) ([]byte, error)

// Registry routes calldata to in-process handlers keyed by target address and
// function selector. Targets not registered locally are forwarded to the
// fallback backend when one is configured, which lets a deployment mix
// in-process collaborators with remote ones behind a single Backend.
type Registry struct {
	mu       sync.RWMutex
	handlers map[common.Address]map[[SelectorSize]byte]HandlerFunc
	fallback Backend
}

// NewRegistry constructs an empty dispatch registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[common.Address]map[[SelectorSize]byte]HandlerFunc)}
}

// SetFallback configures the backend consulted for targets without local
// handlers. Passing nil removes the fallback.
func (r *Registry) SetFallback(backend Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = backend
}

// Register binds a handler for the signature on the target address,
// overwriting any previous binding.
func (r *Registry) Register(target common.Address, signature string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	selectors, ok := r.handlers[target]
	if !ok {
		selectors = make(map[[SelectorSize]byte]HandlerFunc)
		r.handlers[target] = selectors
	}
	selectors[Selector(signature)] = fn
}

func (r *Registry) resolve(target common.Address, calldata []byte) (HandlerFunc, []byte, Backend, error) {
	if len(calldata) < SelectorSize {
		return nil, nil, nil, ErrShortCalldata
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	selectors, ok := r.handlers[target]
	if !ok {
		if r.fallback != nil {
			return nil, nil, r.fallback, nil
		}
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target.Hex())
	}
	var sel [SelectorSize]byte
	copy(sel[:], calldata)
	fn, ok := selectors[sel]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s %x", ErrUnknownSelector, target.Hex(), sel)
	}
	return fn, calldata[SelectorSize:], nil, nil
}

// Call implements Backend by invoking the registered handler and discarding
// its result.
func (r *Registry) Call(target common.Address, calldata []byte) error {
	fn, args, fallback, err := r.resolve(target, calldata)
	if err != nil {
		return err
	}
	if fallback != nil {
		return fallback.Call(target, calldata)
	}
	_, err = fn(args)
	return err
}

// StaticCall implements Backend by invoking the registered handler and
// returning its encoded result.
func (r *Registry) StaticCall(target common.Address, calldata []byte) ([]byte, error) {
	fn, args, fallback, err := r.resolve(target, calldata)
	if err != nil {
		return nil, err
	}
	if fallback != nil {
		return fallback.StaticCall(target, calldata)
	}
	return fn(args)
}
