package probe

import (
	"context"
	"time"
)

// UserAgent is sent with every probe request.
var UserAgent = "urlmonitor/1.0 (+https://github.com/hamed0406/urlmonitor)"

// Result is the outcome of probing one target.
//
// Fields:
//   - Reachable: an attempt returned an acceptable status and its body was read.
//   - Body/ContentType: only set when Reachable.
//   - StatusCode: last HTTP status seen; 0 for transport errors.
//   - Verified: whether TLS certificates were verified for this target.
//   - DNSClass: set only when every attempt failed at the transport level
//     and a resolver was configured.
type Result struct {
	Reachable   bool
	Body        []byte
	ContentType string
	StatusCode  int
	Attempts    int
	LatencyMS   float64
	Message     string
	Verified    bool
	DNSClass    string
}

// Checker performs a single attempt against a target URL.
type Checker interface {
	Check(ctx context.Context, target string) Result
}

// Policy is the retry and trust configuration injected into a Prober.
type Policy struct {
	Attempts int
	Timeout  time.Duration // per attempt
	Backoff  time.Duration // fixed pause between attempts
	Accept   StatusSet
	Internal Predicate
}
