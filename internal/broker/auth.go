package broker

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// relayAuthHeader is the header a non-loopback client must present.
// Named after the teacher's RelayAuthHeader in internal/browser/relay.go,
// but the value is now a signed, expiring JWT rather than a bare
// shared-secret string.
const relayAuthHeader = "x-ghostwire-relay-token"

var errInvalidToken = errors.New("invalid relay token")

// authIssuer mints and validates the broker's own loopback relay
// tokens, grounded on NeboLoop-nebo's internal/middleware/jwt.go
// createJWT/ValidateJWT pair, upgraded from jwt/v4 to jwt/v5 and from
// a bare shared secret to a token with an expiry, since nothing in
// relay.go's plain string ever goes stale.
type authIssuer struct {
	secret []byte
}

func newAuthIssuer() (*authIssuer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return &authIssuer{secret: secret}, nil
}

// mint issues a token valid for ttl, matching createJWT's HS256
// MapClaims shape.
func (a *authIssuer) mint(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "ghostwire-broker",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// validate mirrors ValidateJWT: parses with the broker's secret and
// rejects an expired or malformed token.
func (a *authIssuer) validate(raw string) error {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errInvalidToken
	}
	return nil
}

// checkAuth mirrors relay.go's checkAuth: loopback connections bypass
// the token requirement entirely (the broker's own non-goal is a
// multi-tenant surface, so the only thing a token guards against is a
// non-loopback peer reaching the port at all); anything else must
// present a valid token.
func (b *Broker) checkAuth(req *http.Request) bool {
	remoteIP := req.RemoteAddr
	if host, _, err := net.SplitHostPort(remoteIP); err == nil {
		remoteIP = host
	}
	if isLoopbackIP(remoteIP) {
		return true
	}
	token := req.Header.Get(relayAuthHeader)
	if token == "" {
		return false
	}
	return b.auth.validate(token) == nil
}

func isLoopbackHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	return h == "localhost" || h == "127.0.0.1" || h == "0.0.0.0" ||
		h == "[::1]" || h == "::1" || h == "[::]" || h == "::"
}

func isLoopbackIP(ip string) bool {
	if ip == "127.0.0.1" || strings.HasPrefix(ip, "127.") {
		return true
	}
	if ip == "::1" || strings.HasPrefix(ip, "::ffff:127.") {
		return true
	}
	return false
}

// randomToken is kept for parity with the teacher's base64 token
// generator: 32 random bytes, URL-safe base64 encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
