package isapi

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoChallenge is returned when an Authorization header is requested
// before any 401 challenge has been parsed.
var ErrNoChallenge = errors.New("no digest challenge available")

// challenge holds the server-issued digest parameters plus the nonce count.
// It is replaced wholesale whenever the server sends a new WWW-Authenticate
// header; nc survives only as long as the nonce it belongs to.
type challenge struct {
	realm  string
	nonce  string
	qop    string
	opaque string
	nc     uint32
}

// digestAuth computes RFC 2617 digest Authorization headers (qop=auth, MD5)
// for one credential pair.
type digestAuth struct {
	username string
	password string

	mu        sync.Mutex
	challenge *challenge
}

func newDigestAuth(username, password string) *digestAuth {
	return &digestAuth{username: username, password: password}
}

// setChallenge parses a WWW-Authenticate header and replaces the stored
// challenge. Keys are matched case-insensitively and quotes are stripped.
// A header missing realm or nonce yields an empty challenge; later header
// computation then produces a response the server will reject rather than
// failing here.
func (d *digestAuth) setChallenge(header string) {
	c := &challenge{}

	trimmed := strings.TrimSpace(header)
	if len(trimmed) >= len("Digest") && strings.EqualFold(trimmed[:len("Digest")], "Digest") {
		trimmed = trimmed[len("Digest"):]
	}

	for _, part := range strings.Split(trimmed, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"`)

		switch strings.ToLower(key) {
		case "realm":
			c.realm = value
		case "nonce":
			c.nonce = value
		case "qop":
			c.qop = value
		case "opaque":
			c.opaque = value
		}
	}

	d.mu.Lock()
	d.challenge = c
	d.mu.Unlock()
}

// hasChallenge reports whether a challenge has been stored.
func (d *digestAuth) hasChallenge() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.challenge != nil
}

// authorize computes the Authorization header for the given request,
// incrementing the nonce count and generating a fresh client nonce.
func (d *digestAuth) authorize(method, uri string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.challenge == nil {
		return "", ErrNoChallenge
	}

	d.challenge.nc++
	nc := fmt.Sprintf("%08x", d.challenge.nc)
	cnonce := newClientNonce()

	ha2 := md5hex(method + ":" + uri)
	response := digestResponse(d.username, d.challenge.realm, d.password,
		d.challenge.nonce, nc, cnonce, ha2)

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username=%q, realm=%q, nonce=%q, uri=%q, `,
		d.username, d.challenge.realm, d.challenge.nonce, uri)
	fmt.Fprintf(&b, `qop=auth, nc=%s, cnonce=%q, response=%q`, nc, cnonce, response)
	if d.challenge.opaque != "" {
		fmt.Fprintf(&b, `, opaque=%q`, d.challenge.opaque)
	}
	return b.String(), nil
}

// digestResponse computes the digest response hash:
// MD5(HA1:nonce:nc:cnonce:auth:HA2) with HA1 = MD5(username:realm:password).
func digestResponse(username, realm, password, nonce, nc, cnonce, ha2 string) string {
	ha1 := md5hex(username + ":" + realm + ":" + password)
	return md5hex(ha1 + ":" + nonce + ":" + nc + ":" + cnonce + ":auth:" + ha2)
}

// newClientNonce returns 8 random bytes as hex.
func newClientNonce() string {
	buf := make([]byte, 8)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
