package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBody caps how much of a response is kept for content inspection.
const maxBody = 1 << 20

// HTTPChecker performs one GET against a target. Internal hosts go through
// a client that skips certificate verification.
type HTTPChecker struct {
	Client   *http.Client
	Insecure *http.Client
	Accept   StatusSet
	Internal Predicate
}

func NewHTTPChecker(timeout time.Duration, accept StatusSet, internal Predicate) *HTTPChecker {
	if len(accept) == 0 {
		accept = DefaultAccept()
	}
	secure := http.DefaultTransport.(*http.Transport).Clone()
	insecure := http.DefaultTransport.(*http.Transport).Clone()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // internal hosts only
	h := &HTTPChecker{
		Client:   &http.Client{Timeout: timeout, Transport: secure},
		Accept:   accept,
		Internal: internal,
	}
	h.Insecure = &http.Client{Timeout: timeout, Transport: insecure, CheckRedirect: h.stayInternal}
	return h
}

// ErrRedirectExternal is returned when an internal host redirects to a host
// that would need certificate verification.
var ErrRedirectExternal = errors.New("redirect leaves the internal network")

func (h *HTTPChecker) stayInternal(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if !IsInternalURL(h.Internal, req.URL.String()) {
		return fmt.Errorf("%w: %s", ErrRedirectExternal, req.URL.Host)
	}
	return nil
}

func (h *HTTPChecker) Check(ctx context.Context, target string) Result {
	verify := !IsInternalURL(h.Internal, target)
	client := h.Client
	if !verify {
		client = h.Insecure
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Message: err.Error(), Verified: verify}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return Result{Message: err.Error(), LatencyMS: since(start), Verified: verify}
	}
	defer resp.Body.Close()

	if !h.Accept.Has(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return Result{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			LatencyMS:  since(start),
			Verified:   verify,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("read body: %v", err),
			LatencyMS:  since(start),
			Verified:   verify,
		}
	}
	return Result{
		Reachable:   true,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		Message:     resp.Status,
		LatencyMS:   since(start),
		Verified:    verify,
	}
}

func since(t time.Time) float64 { return time.Since(t).Seconds() * 1000 }
