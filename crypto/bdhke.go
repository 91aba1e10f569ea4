// Package crypto implements the blind Diffie-Hellman key exchange
// (BDHKE) the wallet uses to get signatures from a mint without
// revealing the secret being signed, and the keyset types that pin
// which public key backs a given denomination.
package crypto

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// HashToCurve deterministically maps a secret to a point on secp256k1
// with no known discrete log relative to G. It hashes the message,
// tries to read the digest as the X-coordinate of a point with even Y,
// and rehashes on failure. Terminates with overwhelming probability
// within a couple of iterations.
func HashToCurve(secret []byte) *secp256k1.PublicKey {
	var point *secp256k1.PublicKey

	msg := secret
	for point == nil || !point.IsOnCurve() {
		digest := sha256.Sum256(msg)
		compressed := append([]byte{0x02}, digest[:]...)
		point, _ = secp256k1.ParsePubKey(compressed)
		msg = digest[:]
	}
	return point
}

// Blind computes B_ = Y + rG for a freshly sampled blinding factor r,
// where Y = HashToCurve(secret). It returns the blinded point to send
// to the mint and the private scalar r needed later to unblind.
func Blind(secret []byte, blindingFactor []byte) (B_ *secp256k1.PublicKey, r *secp256k1.PrivateKey) {
	var yPoint, rPoint, sum secp256k1.JacobianPoint

	Y := HashToCurve(secret)
	Y.AsJacobian(&yPoint)

	r, rPub := btcec.PrivKeyFromBytes(blindingFactor)
	rPub.AsJacobian(&rPoint)

	secp256k1.AddNonConst(&yPoint, &rPoint, &sum)
	sum.ToAffine()
	B_ = secp256k1.NewPublicKey(&sum.X, &sum.Y)

	return B_, r
}

// SignBlindedMessage computes C_ = kB_, the mint's blind signature
// over a blinded message. Only the mint side (and this module's test
// mint double) calls this; a wallet never holds k.
func SignBlindedMessage(B_ *secp256k1.PublicKey, k *secp256k1.PrivateKey) *secp256k1.PublicKey {
	var bPoint, result secp256k1.JacobianPoint
	B_.AsJacobian(&bPoint)

	secp256k1.ScalarMultNonConst(&k.Key, &bPoint, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

// Unblind computes C = C_ - rK, yielding a valid BDHKE signature
// C = k*HashToCurve(secret) that the mint can later verify with k.
func Unblind(C_ *secp256k1.PublicKey, r *secp256k1.PrivateKey, K *secp256k1.PublicKey) *secp256k1.PublicKey {
	var kPoint, rKPoint, cPoint, result secp256k1.JacobianPoint
	K.AsJacobian(&kPoint)

	var rNeg secp256k1.ModNScalar
	rNeg.NegateVal(&r.Key)
	secp256k1.ScalarMultNonConst(&rNeg, &kPoint, &rKPoint)

	C_.AsJacobian(&cPoint)
	secp256k1.AddNonConst(&cPoint, &rKPoint, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

// Verify reports whether C is a valid BDHKE signature over secret
// under the mint private key k. Used only by tests; a wallet has no way to verify a proof offline (spec Non-goals).
func Verify(secret []byte, k *secp256k1.PrivateKey, C *secp256k1.PublicKey) bool {
	var yPoint, result secp256k1.JacobianPoint
	Y := HashToCurve(secret)
	Y.AsJacobian(&yPoint)

	secp256k1.ScalarMultNonConst(&k.Key, &yPoint, &result)
	result.ToAffine()
	expected := secp256k1.NewPublicKey(&result.X, &result.Y)

	return C.IsEqual(expected)
}
