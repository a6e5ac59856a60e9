// Package gate implements the daily access code: the hex HMAC-SHA256 of
// the current date (YYYYMMDD) under a shared secret. Whoever runs the
// scheduler hands the day's code to the operator out of band.
package gate

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"
)

// Gate verifies daily access codes for one secret.
type Gate struct {
	secret []byte
}

func New(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// CodeFor returns the access code valid on day's date.
func (g *Gate) CodeFor(day time.Time) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(day.Format("20060102")))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks code against day's expected value, case-insensitively and
// in constant time.
func (g *Gate) Verify(code string, day time.Time) bool {
	want := g.CodeFor(day)
	got := strings.ToLower(strings.TrimSpace(code))
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
