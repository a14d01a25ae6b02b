package transactionSigner

import (
	"encoding/asn1"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
	cryptobyteAsn1 "golang.org/x/crypto/cryptobyte/asn1"
)

const uncompressedPointLen = 65

var (
	oidPublicKeyECDSA      = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidNamedCurveSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

// DecodePublicKeyDER extracts the raw uncompressed secp256k1 point from a DER encoded
// SubjectPublicKeyInfo:
//
//	SEQUENCE {
//	  algorithm        SEQUENCE { OID id-ecPublicKey, OID secp256k1 }
//	  subjectPublicKey BIT STRING
//	}
func DecodePublicKeyDER(der []byte) ([]byte, error) {
	input := cryptobyte.String(der)

	var spki, algorithm cryptobyte.String
	if !input.ReadASN1(&spki, cryptobyteAsn1.SEQUENCE) || !input.Empty() {
		return nil, errors.Wrap(ErrMalformedKey, "not a single DER SubjectPublicKeyInfo sequence")
	}
	if !spki.ReadASN1(&algorithm, cryptobyteAsn1.SEQUENCE) {
		return nil, errors.Wrap(ErrMalformedKey, "missing algorithm identifier")
	}

	var algorithmOid, curveOid asn1.ObjectIdentifier
	if !algorithm.ReadASN1ObjectIdentifier(&algorithmOid) {
		return nil, errors.Wrap(ErrMalformedKey, "missing algorithm OID")
	}
	if !algorithmOid.Equal(oidPublicKeyECDSA) {
		return nil, errors.Wrapf(ErrMalformedKey, "unexpected algorithm %s", algorithmOid)
	}
	if !algorithm.ReadASN1ObjectIdentifier(&curveOid) || !algorithm.Empty() {
		return nil, errors.Wrap(ErrMalformedKey, "missing named curve parameters")
	}
	if !curveOid.Equal(oidNamedCurveSecp256k1) {
		return nil, errors.Wrapf(ErrMalformedKey, "unexpected curve %s", curveOid)
	}

	var subjectPublicKey asn1.BitString
	if !spki.ReadASN1BitString(&subjectPublicKey) {
		return nil, errors.Wrap(ErrMalformedKey, "missing subjectPublicKey bit string")
	}
	if !spki.Empty() {
		return nil, errors.Wrap(ErrMalformedKey, "trailing data after subjectPublicKey")
	}
	if subjectPublicKey.BitLength%8 != 0 {
		return nil, errors.Wrapf(ErrMalformedKey, "subjectPublicKey has %d unused bits", 8-subjectPublicKey.BitLength%8)
	}

	point := subjectPublicKey.Bytes
	if len(point) != uncompressedPointLen || point[0] != 0x04 {
		return nil, errors.Wrapf(ErrMalformedKey, "expected %d byte uncompressed point, got %d bytes", uncompressedPointLen, len(point))
	}

	out := make([]byte, uncompressedPointLen)
	copy(out, point)
	return out, nil
}
