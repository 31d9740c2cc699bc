// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Verifier is the token verification contract used by the HTTP middleware.
type Verifier interface {
	VerifyToken(tokenStr string) (*AuthClaims, error)
}

// maxCacheTTL caps how long a verified token stays cached regardless of its expiry.
const maxCacheTTL = 5 * time.Minute

// CachedVerifier memoizes successful verifications of a wrapped [Verifier].
//
// RS256 verification dominates the cost of authenticated reads, and clients
// resend the same token on every request. Entries never outlive the token's own
// "exp" claim, and failures are never cached.
type CachedVerifier struct {
	next  Verifier
	cache *expirable.LRU[string, *AuthClaims]
	now   func() time.Time
}

// NewCachedVerifier wraps next with an LRU of the given size.
func NewCachedVerifier(next Verifier, size int) *CachedVerifier {
	if size < 1 {
		size = 1
	}
	return &CachedVerifier{
		next:  next,
		cache: expirable.NewLRU[string, *AuthClaims](size, nil, maxCacheTTL),
		now:   time.Now,
	}
}

// VerifyToken implements [Verifier].
func (verifier *CachedVerifier) VerifyToken(tokenStr string) (*AuthClaims, error) {
	if claims, ok := verifier.cache.Get(tokenStr); ok {
		if claims.ExpiresAt == nil || verifier.now().Before(claims.ExpiresAt.Time) {
			return claims, nil
		}
		verifier.cache.Remove(tokenStr)
	}

	claims, err := verifier.next.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}

	verifier.cache.Add(tokenStr, claims)
	return claims, nil
}

// Len returns the number of cached tokens.
func (verifier *CachedVerifier) Len() int {
	return verifier.cache.Len()
}
