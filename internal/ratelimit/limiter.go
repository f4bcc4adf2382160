// Package ratelimit counts requests per client in fixed windows.
package ratelimit

import (
	"sync"
	"time"
)

type Scope string

const (
	// ScopeRead covers list and read requests.
	ScopeRead Scope = "read"
	// ScopeWrite covers insert and delete, which append to the store file.
	ScopeWrite Scope = "write"
)

type BucketKind string

const (
	BucketIP    BucketKind = "ip"
	BucketToken BucketKind = "token"
)

// Config sets the allowance per window. A limit <= 0 disables it.
type Config struct {
	Window     time.Duration
	ReadIP     int
	WriteIP    int
	ReadToken  int
	WriteToken int
}

// DefaultConfig gives authenticated clients ten times the anonymous
// allowance.
func DefaultConfig(readPerMinute, writePerMinute int) Config {
	return Config{
		Window:     time.Minute,
		ReadIP:     readPerMinute,
		WriteIP:    writePerMinute,
		ReadToken:  readPerMinute * 10,
		WriteToken: writePerMinute * 10,
	}
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   int64 // unix seconds
	ResetIn   int64 // seconds
}

type bucketKey struct {
	scope  Scope
	kind   BucketKind
	bucket string
}

type window struct {
	start int64
	used  int
}

// maxBuckets triggers a sweep of expired windows.
const maxBuckets = 50000

type Limiter struct {
	cfg     Config
	windowS int64

	mu      sync.Mutex
	buckets map[bucketKey]window
}

func New(cfg Config) *Limiter {
	windowS := int64(cfg.Window / time.Second)
	if windowS <= 0 {
		windowS = 60
	}
	return &Limiter{
		cfg:     cfg,
		windowS: windowS,
		buckets: make(map[bucketKey]window),
	}
}

// Take consumes one request from the bucket if it has any left.
func (l *Limiter) Take(now time.Time, scope Scope, kind BucketKind, bucket string) Result {
	unixNow := now.Unix()
	start := unixNow - unixNow%l.windowS
	resetAt := start + l.windowS
	limit := l.limit(scope, kind)
	if limit <= 0 {
		return Result{Allowed: true, ResetAt: unixNow}
	}

	k := bucketKey{scope: scope, kind: kind, bucket: bucket}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.buckets[k]
	if w.start != start {
		w = window{start: start}
	}
	allowed := w.used < limit
	if allowed {
		w.used++
	}
	l.buckets[k] = w
	if len(l.buckets) > maxBuckets {
		l.sweep(start)
	}

	return Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-w.used, 0),
		ResetAt:   resetAt,
		ResetIn:   max(resetAt-unixNow, 0),
	}
}

func (l *Limiter) limit(scope Scope, kind BucketKind) int {
	switch {
	case scope == ScopeRead && kind == BucketToken:
		return l.cfg.ReadToken
	case scope == ScopeRead:
		return l.cfg.ReadIP
	case scope == ScopeWrite && kind == BucketToken:
		return l.cfg.WriteToken
	case scope == ScopeWrite:
		return l.cfg.WriteIP
	default:
		return 0
	}
}

// sweep drops buckets whose window ended before current. Callers hold l.mu.
func (l *Limiter) sweep(current int64) {
	for k, w := range l.buckets {
		if w.start < current {
			delete(l.buckets, k)
		}
	}
}

// Len reports the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
