package crypto

import (
	"crypto/aes"
	"encoding/binary"
	"fmt"

	"github.com/illarion/ledgerkey/internal/errs"
)

const (
	semiblock    = 8  // RFC 3394 works on 64-bit blocks
	MinWrapInput = 16 // at least two semiblocks of key data
	wrapRounds   = 6
)

// DefaultIV is the RFC 3394 section 2.2.3.1 default initial value.
var DefaultIV = [semiblock]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// Wrap encrypts plaintext key material under kek using AES Key Wrap.
// The result is 8 bytes longer than plaintext.
func Wrap(kek, plaintext []byte) ([]byte, error) {
	if len(plaintext) < MinWrapInput || len(plaintext)%semiblock != 0 {
		return nil, fmt.Errorf("%w: key length %d is not a multiple of 8 of at least %d bytes",
			errs.ErrInvalidArgument, len(plaintext), MinWrapInput)
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", errs.ErrInvalidArgument, err)
	}

	n := len(plaintext) / semiblock
	out := make([]byte, len(plaintext)+semiblock)
	copy(out[:semiblock], DefaultIV[:])
	copy(out[semiblock:], plaintext)

	var buf [aes.BlockSize]byte
	for j := 0; j < wrapRounds; j++ {
		for i := 1; i <= n; i++ {
			r := out[i*semiblock : (i+1)*semiblock]
			copy(buf[:semiblock], out[:semiblock])
			copy(buf[semiblock:], r)
			block.Encrypt(buf[:], buf[:])

			t := uint64(n*j + i)
			a := binary.BigEndian.Uint64(buf[:semiblock]) ^ t
			binary.BigEndian.PutUint64(out[:semiblock], a)
			copy(r, buf[semiblock:])
		}
	}
	ClearBytes(buf[:])

	return out, nil
}

// Unwrap reverses Wrap and checks the recovered initial value.
// On mismatch it returns errs.ErrIntegrity and no plaintext.
func Unwrap(kek, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < MinWrapInput+semiblock || len(ciphertext)%semiblock != 0 {
		return nil, fmt.Errorf("%w: wrapped key length %d is invalid", errs.ErrIntegrity, len(ciphertext))
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", errs.ErrInvalidArgument, err)
	}

	n := len(ciphertext)/semiblock - 1
	var a [semiblock]byte
	copy(a[:], ciphertext[:semiblock])
	r := make([]byte, n*semiblock)
	copy(r, ciphertext[semiblock:])

	var buf [aes.BlockSize]byte
	for j := wrapRounds - 1; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			ri := r[(i-1)*semiblock : i*semiblock]
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(buf[:semiblock], binary.BigEndian.Uint64(a[:])^t)
			copy(buf[semiblock:], ri)
			block.Decrypt(buf[:], buf[:])

			copy(a[:], buf[:semiblock])
			copy(ri, buf[semiblock:])
		}
	}
	ClearBytes(buf[:])

	if !ConstantTimeCompare(a[:], DefaultIV[:]) {
		ClearBytes(r)
		return nil, fmt.Errorf("%w: key unwrap failed", errs.ErrIntegrity)
	}

	return r, nil
}
