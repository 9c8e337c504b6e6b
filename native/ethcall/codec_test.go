package ethcall

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSelectorMatchesKnownValue(t *testing.T) {
	// transfer(address,uint256) has the well-known selector 0xa9059cbb.
	sel := Selector("transfer(address,uint256)")
	require.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, sel)
}

func TestEncodeUintRoundTrip(t *testing.T) {
	value := new(big.Int).Lsh(big.NewInt(1), 200)
	word, err := EncodeUint(value)
	require.NoError(t, err)
	require.Len(t, word, WordSize)

	decoded, err := DecodeUint(word)
	require.NoError(t, err)
	require.Zero(t, decoded.Cmp(value))
}

func TestEncodeUintRejectsNegative(t *testing.T) {
	_, err := EncodeUint(big.NewInt(-1))
	require.ErrorIs(t, err, ErrValueOutOfRange)
}

func TestEncodeUintRejectsOverflow(t *testing.T) {
	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err := EncodeUint(tooWide)
	require.ErrorIs(t, err, ErrValueOutOfRange)
}

func TestEncodeAddressRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	word := EncodeAddress(addr)
	require.Len(t, word, WordSize)

	decoded, err := DecodeAddress(word)
	require.NoError(t, err)
	require.Equal(t, addr, decoded)
}

func TestEncodeBoolRoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		decoded, err := DecodeBool(EncodeBool(v))
		require.NoError(t, err)
		require.Equal(t, v, decoded)
	}
}

func TestPackPrependsSelector(t *testing.T) {
	addrWord := EncodeAddress(common.HexToAddress("0x01"))
	limitWord, err := EncodeUint(big.NewInt(42))
	require.NoError(t, err)

	calldata := Pack("setCreditManagerDebtLimit(address,uint256)", addrWord, limitWord)
	require.Len(t, calldata, SelectorSize+2*WordSize)

	sel := Selector("setCreditManagerDebtLimit(address,uint256)")
	require.Equal(t, sel[:], calldata[:SelectorSize])

	second, err := Word(calldata[SelectorSize:], 1)
	require.NoError(t, err)
	decoded, err := DecodeUint(second)
	require.NoError(t, err)
	require.EqualValues(t, 42, decoded.Int64())
}

func TestWordOutOfRange(t *testing.T) {
	_, err := Word(make([]byte, WordSize), 1)
	require.Error(t, err)
}
