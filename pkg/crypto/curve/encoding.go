package curve

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// Compressed encodings carry their metadata in the two most significant bits
// of the first byte. BN254 coordinates are below 2^254 so those bits are free.
const (
	flagMask     byte = 0b11 << 6
	flagSmallest byte = 0b10 << 6
	flagLargest  byte = 0b11 << 6
	flagInfinity byte = 0b01 << 6

	fieldSize = fp.Bytes
)

// fieldElement decodes a canonical big-endian base field element.
func fieldElement(b []byte) (fp.Element, error) {
	var e fp.Element
	if len(b) != fieldSize {
		return e, fmt.Errorf("%w: coordinate must be %d bytes", ErrInvalidEncoding, fieldSize)
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(fp.Modulus()) >= 0 {
		return e, fmt.Errorf("%w: coordinate not reduced", ErrInvalidEncoding)
	}
	e.SetBigInt(v)
	return e, nil
}

// splitFlags strips the metadata bits from a compressed encoding.
func splitFlags(b []byte) (byte, []byte, error) {
	flag := b[0] & flagMask
	body := make([]byte, len(b))
	copy(body, b)
	body[0] &^= flagMask

	switch flag {
	case flagInfinity:
		if !allZero(body) {
			return 0, nil, fmt.Errorf("%w: infinity encoding with nonzero body", ErrInvalidEncoding)
		}
	case flagSmallest, flagLargest:
	default:
		return 0, nil, fmt.Errorf("%w: missing compression flag", ErrInvalidEncoding)
	}
	return flag, body, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func putField(dst []byte, e *fp.Element) {
	b := e.Bytes()
	copy(dst, b[:])
}
