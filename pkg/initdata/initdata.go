// Package initdata validates the signed init payload a Telegram Mini App
// attaches to every request. The payload is a URL query-string whose `hash`
// field is an HMAC-SHA256 signature over the remaining fields; verifying it
// is the only proof of the caller's identity this service accepts.
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	// ErrMalformedPayload reports a payload that is not a parseable
	// query-string.
	ErrMalformedPayload = errors.New("initdata: malformed payload")

	// ErrMissingSignature reports a payload without a `hash` field.
	ErrMissingSignature = errors.New("initdata: missing signature")

	// ErrBadSignature reports a signature that does not match the
	// payload. Forged and corrupted payloads are indistinguishable.
	ErrBadSignature = errors.New("initdata: bad signature")
)

// signingKeyPrefix binds derived signing secrets to WebApp init data,
// per the platform's documented scheme: the signing key is
// HMAC-SHA256(key="WebAppData", msg=botToken).
const signingKeyPrefix = "WebAppData"

// Fields is the decoded payload minus the `hash` field.
type Fields map[string]string

// UserClaim is the identity object carried in the `user` field.
type UserClaim struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Parse decodes a raw init payload into its key/value fields without
// verifying anything. Blank values are kept. Duplicate keys keep the
// last occurrence.
func Parse(raw string) (Fields, error) {
	fields := make(Fields)

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")

		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, ErrMalformedPayload
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, ErrMalformedPayload
		}
		fields[k] = v
	}

	return fields, nil
}

// Verify parses raw, extracts its `hash` field and checks it against the
// HMAC-SHA256 signature of the remaining fields. On success it returns
// the fields with `hash` removed.
//
// The check-string is the remaining fields sorted by key (byte-wise),
// serialized as `key=value` lines joined with "\n". The signing key is
// derived from the bot token as HMAC-SHA256("WebAppData", secret); the
// raw-token variant some older integrations used is not accepted.
func Verify(raw string, secret []byte) (Fields, error) {
	fields, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	received, ok := fields["hash"]
	if !ok || received == "" {
		return nil, ErrMissingSignature
	}
	delete(fields, "hash")

	expected := Sign(fields, secret)

	// Constant-time compare so the check leaks nothing about how close
	// the received hash was.
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return nil, ErrBadSignature
	}

	return fields, nil
}

// Sign computes the hex-encoded signature of fields under secret. It is
// what Verify expects in the `hash` field; tests and tooling use it to
// produce valid payloads.
func Sign(fields Fields, secret []byte) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	checkString := strings.Join(lines, "\n")

	keyMAC := hmac.New(sha256.New, []byte(signingKeyPrefix))
	keyMAC.Write(secret)
	signingKey := keyMAC.Sum(nil)

	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(checkString))
	return hex.EncodeToString(mac.Sum(nil))
}

// User decodes the `user` field into a UserClaim. A missing or
// unparseable claim returns ok=false rather than an error; callers
// decide whether an absent identity is fatal.
func (f Fields) User() (UserClaim, bool) {
	raw, ok := f["user"]
	if !ok || raw == "" {
		return UserClaim{}, false
	}

	var claim UserClaim
	if err := json.Unmarshal([]byte(raw), &claim); err != nil {
		return UserClaim{}, false
	}
	return claim, true
}
