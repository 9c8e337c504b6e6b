package riskpolicy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// DeriveKey computes the policy key for a single-party parameter: the group
// label assigned to the governed contract combined with the parameter name.
// The derivation is a hash over a framed payload so distinct (group, name)
// pairs can never alias each other.
func DeriveKey(group, name string) common.Hash {
	payload := fmt.Sprintf("policy|%d:%s|%d:%s", len(group), group, len(name), name)
	return common.BytesToHash(ethcrypto.Keccak256([]byte(payload)))
}

// DeriveKey2 computes the policy key for a two-party parameter (e.g. a token
// limit scoped to a pool). The derivation is order-sensitive: swapping the
// two groups yields a different key.
func DeriveKey2(groupA, groupB, name string) common.Hash {
	payload := fmt.Sprintf("policy|%d:%s|%d:%s|%d:%s", len(groupA), groupA, len(groupB), groupB, len(name), name)
	return common.BytesToHash(ethcrypto.Keccak256([]byte(payload)))
}
