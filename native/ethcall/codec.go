package ethcall

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// WordSize is the width of a single ABI word in bytes.
const WordSize = 32

// SelectorSize is the width of a function selector in bytes.
const SelectorSize = 4

var (
	ErrValueOutOfRange = errors.New("ethcall: value does not fit in a uint256 word")
	ErrShortWord       = errors.New("ethcall: word shorter than 32 bytes")
)

// Selector derives the 4-byte function selector for a canonical signature
// string such as "setExpirationDate(uint40)".
func Selector(signature string) [SelectorSize]byte {
	var sel [SelectorSize]byte
	copy(sel[:], ethcrypto.Keccak256([]byte(signature)))
	return sel
}

// EncodeUint renders the value as a 32-byte big-endian ABI word. Negative
// values and values wider than 256 bits are rejected.
func EncodeUint(value *big.Int) ([]byte, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	word, overflow := uint256.FromBig(value)
	if overflow || value.Sign() < 0 {
		return nil, ErrValueOutOfRange
	}
	encoded := word.Bytes32()
	return encoded[:], nil
}

// EncodeAddress left-pads the address into a 32-byte ABI word.
func EncodeAddress(addr common.Address) []byte {
	word := make([]byte, WordSize)
	copy(word[WordSize-common.AddressLength:], addr.Bytes())
	return word
}

// EncodeBool renders a boolean as a 32-byte ABI word.
func EncodeBool(v bool) []byte {
	word := make([]byte, WordSize)
	if v {
		word[WordSize-1] = 1
	}
	return word
}

// DecodeUint parses the first 32-byte word of the payload as an unsigned
// big-endian integer.
func DecodeUint(payload []byte) (*big.Int, error) {
	if len(payload) < WordSize {
		return nil, ErrShortWord
	}
	word := new(uint256.Int).SetBytes(payload[:WordSize])
	return word.ToBig(), nil
}

// DecodeAddress parses the first 32-byte word of the payload as an address.
func DecodeAddress(payload []byte) (common.Address, error) {
	if len(payload) < WordSize {
		return common.Address{}, ErrShortWord
	}
	return common.BytesToAddress(payload[WordSize-common.AddressLength : WordSize]), nil
}

// DecodeBool parses the first 32-byte word of the payload as a boolean.
func DecodeBool(payload []byte) (bool, error) {
	if len(payload) < WordSize {
		return false, ErrShortWord
	}
	for _, b := range payload[:WordSize] {
		if b != 0 {
			return true, nil
		}
	}
	return false, nil
}

// Args concatenates pre-encoded ABI words into a single argument payload.
func Args(words ...[]byte) []byte {
	out := make([]byte, 0, len(words)*WordSize)
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

// Pack builds the full calldata for a signature and its pre-encoded argument
// words: the 4-byte selector followed by the concatenated words.
func Pack(signature string, words ...[]byte) []byte {
	sel := Selector(signature)
	return append(sel[:], Args(words...)...)
}

// Word extracts the index-th 32-byte word from an argument payload (the
// payload must not include the selector).
func Word(args []byte, index int) ([]byte, error) {
	start := index * WordSize
	if start < 0 || len(args) < start+WordSize {
		return nil, fmt.Errorf("ethcall: argument word %d out of range", index)
	}
	return args[start : start+WordSize], nil
}
