package transactionSigner

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestDeriveAddress_MatchesGoEthereum(t *testing.T) {
	for i := 0; i < 10; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)

		addr, err := DeriveAddress(crypto.FromECDSAPub(&key.PublicKey))
		require.NoError(t, err)

		expected := crypto.PubkeyToAddress(key.PublicKey)
		require.Equal(t, expected, addr.Bytes)
		require.Equal(t, expected.Hex(), addr.Checksum)
		require.Equal(t, addr.Checksum, addr.String())
	}
}

func TestDeriveAddress_InvalidPublicKey(t *testing.T) {
	point := crypto.FromECDSAPub(&mustKey(t, testPrivateKeyHex).PublicKey)

	_, err := DeriveAddress(point[1:])
	require.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = DeriveAddress(nil)
	require.ErrorIs(t, err, ErrInvalidPublicKey)

	bad := append([]byte{}, point...)
	bad[0] = 0x02
	_, err = DeriveAddress(bad)
	require.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestChecksumAddress(t *testing.T) {
	// EIP-55 reference vectors.
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
		generatorAddress,
	}

	for _, v := range vectors {
		t.Run(v, func(t *testing.T) {
			fromLower, err := ChecksumAddress(strings.ToLower(v))
			require.NoError(t, err)
			require.Equal(t, v, fromLower)

			fromUpper, err := ChecksumAddress("0x" + strings.ToUpper(v[2:]))
			require.NoError(t, err)
			require.Equal(t, v, fromUpper)

			again, err := ChecksumAddress(fromLower)
			require.NoError(t, err)
			require.Equal(t, fromLower, again)
		})
	}

	_, err := ChecksumAddress("0x1234")
	require.Error(t, err)
}
