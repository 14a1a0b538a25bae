package authinfo

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// loginClaims lists the claims that carry the signed-in user's login name,
// most specific first. App-only tokens carry none of them.
var loginClaims = []string{"upn", "unique_name", "preferred_username", "email"}

// Claims decodes the payload of a JWT-like token without validating the
// signature. It is used only for local display and the identity filter.
func Claims(token string) (map[string]any, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}

	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, false
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, false
	}

	var payload map[string]any
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// LoginName returns the user's login name (e.g. alice@contoso.com) from the
// first populated login claim, or "" when the token has none.
func LoginName(token string) string {
	payload, ok := Claims(token)
	if !ok {
		return ""
	}
	for _, claim := range loginClaims {
		if v, _ := payload[claim].(string); strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Expiry returns the token's exp claim.
func Expiry(token string) (time.Time, bool) {
	payload, ok := Claims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, ok := payload["exp"].(float64)
	if !ok || exp <= 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(exp), 0).UTC(), true
}

// TenantID returns the tid claim.
func TenantID(token string) string {
	payload, ok := Claims(token)
	if !ok {
		return ""
	}
	tid, _ := payload["tid"].(string)
	return strings.TrimSpace(tid)
}
