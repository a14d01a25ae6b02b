package transactionSigner

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Address is a 20 byte account address together with its EIP-55 checksum form.
type Address struct {
	Bytes    common.Address
	Checksum string
}

func (a Address) String() string {
	return a.Checksum
}

// DeriveAddress hashes an uncompressed point (without its 0x04 prefix) and keeps the
// low-order 20 bytes.
func DeriveAddress(publicKey []byte) (Address, error) {
	if len(publicKey) != uncompressedPointLen || publicKey[0] != 0x04 {
		return Address{}, errors.Wrapf(ErrInvalidPublicKey, "expected %d byte uncompressed point, got %d bytes", uncompressedPointLen, len(publicKey))
	}

	var addr common.Address
	addr.SetBytes(crypto.Keccak256(publicKey[1:])[12:])
	return newAddress(addr), nil
}

// ChecksumAddress returns the EIP-55 form of a hex address given in any letter case.
func ChecksumAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid hex address %q", s)
	}
	return toChecksum(common.HexToAddress(s)), nil
}

func newAddress(addr common.Address) Address {
	return Address{Bytes: addr, Checksum: toChecksum(addr)}
}

// toChecksum uppercases every hex letter whose nibble in keccak256(lowercase hex) is >= 8.
func toChecksum(addr common.Address) string {
	lower := hex.EncodeToString(addr.Bytes())
	hash := crypto.Keccak256([]byte(lower))

	out := []byte(lower)
	for i := range out {
		if out[i] < 'a' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] -= 'a' - 'A'
		}
	}
	return "0x" + string(out)
}
