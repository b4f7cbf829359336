package isapi

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
)

// RFC 2617 section 3.5 example vector.
func TestDigestResponseRFCVector(t *testing.T) {
	ha2 := md5hex("GET:/dir/index.html")
	got := digestResponse(
		"Mufasa", "testrealm@host.com", "Circle Of Life",
		"dcd98b7102dd2f0e8b11d0f600bfb0c093", "00000001", "0a4f113b", ha2,
	)
	want := "6629fae49393a05397450978507c4ef1"
	if got != want {
		t.Errorf("digestResponse = %s, want %s", got, want)
	}
}

func TestAuthorizeWithoutChallenge(t *testing.T) {
	auth := newDigestAuth("admin", "secret")
	if _, err := auth.authorize("GET", "/ISAPI/System/deviceInfo"); err != ErrNoChallenge {
		t.Errorf("expected ErrNoChallenge, got %v", err)
	}
}

func TestNonceCountIncrementsPerHeader(t *testing.T) {
	auth := newDigestAuth("admin", "secret")
	auth.setChallenge(`Digest realm="test", nonce="abc123", qop="auth"`)

	ncRe := regexp.MustCompile(`nc=([0-9a-f]{8})`)
	for i := 1; i <= 5; i++ {
		header, err := auth.authorize("GET", "/path")
		if err != nil {
			t.Fatalf("authorize failed: %v", err)
		}
		m := ncRe.FindStringSubmatch(header)
		if m == nil {
			t.Fatalf("no 8-digit nc in header: %s", header)
		}
		if want := fmt.Sprintf("%08x", i); m[1] != want {
			t.Errorf("request %d: nc = %s, want %s", i, m[1], want)
		}
	}
}

func TestFreshClientNoncePerRequest(t *testing.T) {
	auth := newDigestAuth("admin", "secret")
	auth.setChallenge(`Digest realm="test", nonce="abc123", qop="auth"`)

	cnonceRe := regexp.MustCompile(`cnonce="([0-9a-f]{16})"`)
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		header, err := auth.authorize("GET", "/path")
		if err != nil {
			t.Fatalf("authorize failed: %v", err)
		}
		m := cnonceRe.FindStringSubmatch(header)
		if m == nil {
			t.Fatalf("no 16-hex-digit cnonce in header: %s", header)
		}
		if seen[m[1]] {
			t.Fatalf("duplicate cnonce %s", m[1])
		}
		seen[m[1]] = true
	}
}

func TestSetChallengeParsesFields(t *testing.T) {
	auth := newDigestAuth("admin", "secret")
	auth.setChallenge(`Digest Realm="DS-7608", NONCE="4e6f6e6365", qop="auth", Opaque="abcdef"`)

	auth.mu.Lock()
	c := auth.challenge
	auth.mu.Unlock()

	if c.realm != "DS-7608" {
		t.Errorf("realm = %q", c.realm)
	}
	if c.nonce != "4e6f6e6365" {
		t.Errorf("nonce = %q", c.nonce)
	}
	if c.qop != "auth" {
		t.Errorf("qop = %q", c.qop)
	}
	if c.opaque != "abcdef" {
		t.Errorf("opaque = %q", c.opaque)
	}
}

func TestSetChallengeMissingFieldsDoesNotPanic(t *testing.T) {
	auth := newDigestAuth("admin", "secret")
	auth.setChallenge(`Digest qop="auth"`)

	// Auth still computes a header; the server will reject it with a fresh
	// challenge rather than the client crashing.
	header, err := auth.authorize("GET", "/path")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !strings.Contains(header, `realm=""`) {
		t.Errorf("expected empty realm in header: %s", header)
	}
}

func TestAuthorizeOmitsOpaqueWhenAbsent(t *testing.T) {
	auth := newDigestAuth("admin", "secret")
	auth.setChallenge(`Digest realm="r", nonce="n", qop="auth"`)

	header, err := auth.authorize("GET", "/path")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if strings.Contains(header, "opaque") {
		t.Errorf("header should not contain opaque: %s", header)
	}
}

func TestChallengeReplacedWholesale(t *testing.T) {
	auth := newDigestAuth("admin", "secret")
	auth.setChallenge(`Digest realm="r", nonce="first", qop="auth"`)
	auth.authorize("GET", "/path")
	auth.authorize("GET", "/path")

	auth.setChallenge(`Digest realm="r", nonce="second", qop="auth"`)
	header, err := auth.authorize("GET", "/path")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	// nc restarts with the new nonce
	if !strings.Contains(header, "nc=00000001") {
		t.Errorf("expected nc reset for new nonce: %s", header)
	}
	if !strings.Contains(header, `nonce="second"`) {
		t.Errorf("expected new nonce in header: %s", header)
	}
}
