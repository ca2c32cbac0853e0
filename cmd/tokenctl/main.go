// Command tokenctl is the "CLI for creating tokens" collaborator named in
// §1 as out-of-core scope. It does not call an internal/auth.TokenStore
// itself: the in-memory internal/auth/tokenstore/memstore store used during
// local development lives in the same process as a running cmd/api, so
// tokenctl prints the plaintext token, its hash and the corresponding
// auth.TokenRecord as JSON for a developer to seed into their own dev-mode
// bootstrap rather than writing to shared state itself.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rawcontext/engram-sub001/internal/auth"
)

func main() {
	tokenType := flag.String("type", "live", "token environment: live | test")
	orgID := flag.String("org", "", "org id")
	orgSlug := flag.String("org-slug", "", "org slug (namespace component)")
	userID := flag.String("user", "", "user id")
	scopes := flag.String("scopes", "memory:read,memory:write,query:read", "comma-separated scopes")
	rateLimit := flag.Int("rate-limit", 60, "requests per minute")
	flag.Parse()

	if *orgID == "" || *orgSlug == "" {
		fmt.Fprintln(os.Stderr, "tokenctl: -org and -org-slug are required")
		flag.Usage()
		os.Exit(2)
	}
	if *tokenType != "live" && *tokenType != "test" {
		log.Fatalf("tokenctl: -type must be live or test, got %q", *tokenType)
	}

	suffix, err := randomHex(16)
	if err != nil {
		log.Fatalf("tokenctl: generating token: %v", err)
	}
	plaintext := fmt.Sprintf("engram_%s_%s", *tokenType, suffix)
	hash := auth.HashToken(plaintext)

	record := auth.TokenRecord{
		ID:        "tok_" + suffix[:8],
		Prefix:    plaintext[:len("engram_live_")+6],
		Type:      auth.TypeAPIKey,
		UserID:    *userID,
		OrgID:     *orgID,
		OrgSlug:   *orgSlug,
		Scopes:    splitScopes(*scopes),
		RateLimit: *rateLimit,
		IsActive:  true,
	}

	out, err := json.MarshalIndent(struct {
		Token  string            `json:"token"`
		Hash   string            `json:"tokenHash"`
		Record auth.TokenRecord  `json:"record"`
	}{Token: plaintext, Hash: hash, Record: record}, "", "  ")
	if err != nil {
		log.Fatalf("tokenctl: encoding output: %v", err)
	}

	fmt.Println(string(out))
	fmt.Fprintln(os.Stderr, "\nstore this token now — it is never shown again; seed store.Put(tokenHash, &record) in your dev bootstrap")
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func splitScopes(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
