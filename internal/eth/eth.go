// Package eth verifies EIP-191 personal_sign signatures against a claimed
// wallet address. Verification is pure computation: no side effects, no
// storage access, and malformed input is reported as a failed verification
// rather than an error the auth flow has to unwind.
package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// signatureLength is the raw length of a secp256k1 signature: R || S || V.
const signatureLength = 65

// TextHash returns the keccak256 digest of message under the EIP-191
// personal_sign prefix. This is the digest wallets actually sign.
func TextHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// VerifyPersonalSign reports whether signature is a valid personal_sign
// signature of message by the claimed address. The signature is hex-encoded;
// the recovery byte is accepted in both the 0/1 and 27/28 conventions.
// Address comparison is case-insensitive.
func VerifyPersonalSign(message, signature, address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}

	decoded, err := hexutil.Decode(signature)
	if err != nil || len(decoded) != signatureLength {
		return false
	}

	// Normalize the recovery byte without mutating the caller's view.
	sig := make([]byte, signatureLength)
	copy(sig, decoded)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false
	}

	pub, err := crypto.SigToPub(TextHash(message), sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return recovered == common.HexToAddress(address)
}
