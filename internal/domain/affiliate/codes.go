package affiliate

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"unicode"
)

const (
	// InviteCodePrefix starts every invite code
	InviteCodePrefix = "TD"
	// InviteCodeLength is the total invite code length, prefix included
	InviteCodeLength = 8

	referralPrefixMax  = 6
	referralSuffixLen  = 4
	codeAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralFallback   = "TD"
	maxUnbiasedByte    = 256 - (256 % len(codeAlphabet))
	randomReadChunkLen = 16
)

// CodeGenerator produces invite and referral code candidates.
// Uniqueness is checked by the caller against the store.
type CodeGenerator struct {
	rand io.Reader
}

// NewCodeGenerator returns a generator backed by crypto/rand
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{rand: rand.Reader}
}

// NewCodeGeneratorWithSource is used where deterministic output is needed
func NewCodeGeneratorWithSource(r io.Reader) *CodeGenerator {
	return &CodeGenerator{rand: r}
}

// InviteCode returns "TD" followed by 6 uppercase alphanumerics
func (g *CodeGenerator) InviteCode() (string, error) {
	suffix, err := g.randomString(InviteCodeLength - len(InviteCodePrefix))
	if err != nil {
		return "", err
	}
	return InviteCodePrefix + suffix, nil
}

// ReferralCode returns up to 6 letters/digits of name, upper-cased, followed by 4 random characters
func (g *CodeGenerator) ReferralCode(name string) (string, error) {
	suffix, err := g.randomString(referralSuffixLen)
	if err != nil {
		return "", err
	}
	return referralPrefix(name) + suffix, nil
}

func referralPrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			if b.Len() == referralPrefixMax {
				break
			}
		}
	}
	if b.Len() == 0 {
		return referralFallback
	}
	return b.String()
}

// randomString draws n characters from codeAlphabet using rejection sampling
func (g *CodeGenerator) randomString(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, randomReadChunkLen)
	for len(out) < n {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// IsInviteCodeFormat reports whether code looks like an invite code
func IsInviteCodeFormat(code string) bool {
	if len(code) != InviteCodeLength || !strings.HasPrefix(code, InviteCodePrefix) {
		return false
	}
	for _, r := range code[len(InviteCodePrefix):] {
		if !strings.ContainsRune(codeAlphabet, r) {
			return false
		}
	}
	return true
}

// NormalizeCode upper-cases and trims a user-supplied code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
