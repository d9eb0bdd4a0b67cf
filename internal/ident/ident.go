package ident

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	idAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	otpAlphabet  = "0123456789"
)

// entropy is swappable in tests only.
var entropy io.Reader = rand.Reader

// randomString panics when the entropy source fails. Access codes and OTPs
// are credentials and must never be minted from a degraded source.
func randomString(alphabet string, length int) string {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(entropy, max)
		if err != nil {
			panic(fmt.Sprintf("ident: entropy source failed: %v", err))
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}

// NewID generates a 21-character random identifier used as basket primary key.
func NewID() string {
	return randomString(idAlphabet, 21)
}

// NewAccessCode generates the 8-character code a shared basket is joined with.
// Ambiguous characters (0/O, 1/I) are excluded since users type these by hand.
func NewAccessCode() string {
	return randomString(codeAlphabet, 8)
}

// NewOTP generates the 4-digit pickup code required to complete an order.
func NewOTP() string {
	return randomString(otpAlphabet, 4)
}

// NewLinkingNumber generates the code grouping sibling orders placed from one
// shared-basket checkout.
func NewLinkingNumber() string {
	return fmt.Sprintf("L-%s", randomString(codeAlphabet, 6))
}
