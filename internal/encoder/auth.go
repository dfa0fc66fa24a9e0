package encoder

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// serviceClaims identifies the indexer to the remote encoder service. The
// encoder trusts this token rather than a user's session — there is no
// human in the loop during an offline build.
type serviceClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// tokenSource mints a short-lived bearer token for each RPC. Minting per
// call (rather than once at startup) keeps the token's expiry window tight
// without needing a refresh loop for a process that may run for hours.
type tokenSource struct {
	secret []byte
	ttl    time.Duration
}

func newTokenSource(secret string, ttl time.Duration) *tokenSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &tokenSource{secret: []byte(secret), ttl: ttl}
}

// Token mints an HS256 bearer token authorizing this process as the
// "colbert-indexer" service.
func (ts *tokenSource) Token() (string, error) {
	now := time.Now()
	claims := &serviceClaims{
		Service: "colbert-indexer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "colbert-indexer",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}
