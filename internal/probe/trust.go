package probe

import (
	"fmt"
	"net/netip"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Predicate reports whether a host belongs to the internal network.
// Certificate verification is skipped for internal hosts.
type Predicate func(host string) bool

// DefaultInternalNetworks are the private, loopback and link-local ranges.
var DefaultInternalNetworks = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

// DefaultInternalSuffixes are hostname suffixes treated as internal.
var DefaultInternalSuffixes = []string{".local"}

// Network matches hosts by address range or hostname suffix. Hostnames are
// never resolved; only literal IPs are matched against the prefixes.
type Network struct {
	Prefixes []netip.Prefix
	Suffixes []string
}

// ParseNetwork builds a Network from CIDR strings and hostname suffixes.
func ParseNetwork(cidrs, suffixes []string) (Network, error) {
	var n Network
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return Network{}, fmt.Errorf("internal network %q: %w", c, err)
		}
		n.Prefixes = append(n.Prefixes, p.Masked())
	}
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		n.Suffixes = append(n.Suffixes, s)
	}
	return n, nil
}

// DefaultNetwork returns the broad private-range policy.
func DefaultNetwork() Network {
	n, _ := ParseNetwork(DefaultInternalNetworks, DefaultInternalSuffixes)
	return n
}

// Contains reports whether host is internal.
func (n Network) Contains(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if host == "" {
		return false
	}
	if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		addr = addr.Unmap()
		for _, p := range n.Prefixes {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}
	for _, s := range n.Suffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// Predicate adapts the network to the Predicate signature.
func (n Network) Predicate() Predicate { return n.Contains }

// IsInternalURL applies p to the host of raw. Unparsable URLs are external.
func IsInternalURL(p Predicate, raw string) bool {
	if p == nil {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return p(u.Hostname())
}

// StatusSet is the set of HTTP statuses that count as a successful attempt.
type StatusSet map[int]struct{}

// DefaultAccept accepts 200 only.
func DefaultAccept() StatusSet { return StatusSet{200: {}} }

// NewStatusSet builds a set from codes.
func NewStatusSet(codes ...int) StatusSet {
	s := make(StatusSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// ParseStatusSet parses a comma separated list like "200,401".
func ParseStatusSet(v string) (StatusSet, error) {
	s := StatusSet{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil || code < 100 || code > 599 {
			return nil, fmt.Errorf("invalid status code %q", part)
		}
		s[code] = struct{}{}
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("empty status list")
	}
	return s, nil
}

// Has reports whether code is acceptable.
func (s StatusSet) Has(code int) bool {
	_, ok := s[code]
	return ok
}

// Codes returns the sorted status codes.
func (s StatusSet) Codes() []int {
	out := make([]int, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

func (s StatusSet) String() string {
	codes := s.Codes()
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}
