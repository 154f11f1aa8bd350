package stepup

import (
	"strings"

	"github.com/patrickmn/go-cache"
)

// TokenStore keeps elevated tokens per action until they expire.
type TokenStore struct {
	cache *cache.Cache
	clock Clock
}

func NewTokenStore(clock Clock) *TokenStore {
	if clock == nil {
		clock = SystemClock{}
	}
	// No janitor: expired entries are dropped on read.
	return &TokenStore{cache: cache.New(cache.NoExpiration, 0), clock: clock}
}

// TokenKey scopes a token to an action and its context.
func TokenKey(action string, rc RequestContext) string {
	if rc.PositionID == "" {
		return action
	}
	return strings.Join([]string{action, rc.PositionID}, ":")
}

func (s *TokenStore) Put(key string, token ElevatedToken) {
	ttl := token.ValidUntil.Sub(s.clock.Now())
	if token.Token == "" || ttl <= 0 {
		return
	}
	s.cache.Set(key, token, ttl)
}

func (s *TokenStore) Get(key string) (ElevatedToken, bool) {
	v, found := s.cache.Get(key)
	if !found {
		return ElevatedToken{}, false
	}

	token, ok := v.(ElevatedToken)
	if !ok || !token.Valid(s.clock.Now()) {
		s.cache.Delete(key)
		return ElevatedToken{}, false
	}
	return token, true
}

func (s *TokenStore) Delete(key string) {
	s.cache.Delete(key)
}

func (s *TokenStore) Len() int {
	return s.cache.ItemCount()
}
