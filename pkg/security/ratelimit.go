package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleActorAge is how long an idle actor's limiter is retained.
const staleActorAge = 10 * time.Minute

// RateLimiter throttles pipeline traffic per actor with a token
// bucket. A request over budget is an unsafe verdict, not an error, so
// callers receive the usual structured denial.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu     sync.Mutex
	actors map[string]*actorBucket
}

type actorBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second with the given burst
// per actor.
func NewRateLimiter(rps float64, burst int) (*RateLimiter, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rate limiter: rps and burst must be positive")
	}
	return &RateLimiter{
		limit:  rate.Limit(rps),
		burst:  burst,
		actors: make(map[string]*actorBucket),
	}, nil
}

func (l *RateLimiter) Name() string { return "rate_limiter" }

func (l *RateLimiter) Process(ctx context.Context, content string, sctx Context) (Result, error) {
	if l.bucket(sctx.ActorID).Allow() {
		return safeResult(content, map[string]any{"throttled": false}), nil
	}
	return Result{
		Content:   content,
		Safe:      false,
		RiskScore: 1.0,
		Violations: []string{
			fmt.Sprintf("rate limit exceeded for actor %q", sctx.ActorID),
		},
		Metadata: map[string]any{"throttled": true},
	}, nil
}

func (l *RateLimiter) bucket(actorID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.actors[actorID]
	if !ok {
		b = &actorBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.actors[actorID] = b
		l.evictStale()
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// evictStale drops limiters for actors not seen recently. Called with
// the mutex held, on the new-actor path only, so steady-state traffic
// pays nothing.
func (l *RateLimiter) evictStale() {
	cutoff := time.Now().Add(-staleActorAge)
	for id, b := range l.actors {
		if b.lastSeen.Before(cutoff) {
			delete(l.actors, id)
		}
	}
}
