// Package targets reads the line-oriented target list:
//
//	description url [channel] [keyword]
//
// Tokens follow shell quoting rules. Blank lines and lines starting with #
// are ignored.
package targets

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"unicode"

	"github.com/google/shlex"

	"github.com/hamed0406/urlmonitor/internal/domain"
)

// DefaultMinTokens requires description, url and channel on every line.
const DefaultMinTokens = 3

// ConfigError describes one rejected line. The line is skipped.
type ConfigError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Load opens path and parses it. A missing or unreadable file is the only
// error that stops the caller; per-line problems come back in errs.
func Load(path string, minTokens int) ([]domain.Target, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open target list: %w", err)
	}
	defer f.Close()

	ts, errs := Parse(f, minTokens)
	return ts, errs, nil
}

// Parse reads targets from r. Lines that cannot be used are reported as
// *ConfigError and skipped; a read failure is appended as a plain error.
func Parse(r io.Reader, minTokens int) ([]domain.Target, []error) {
	if minTokens < 2 {
		minTokens = 2
	}

	var (
		out  []domain.Target
		errs []error
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := parseLine(line, minTokens)
		if err != nil {
			errs = append(errs, &ConfigError{Line: n, Text: line, Reason: err.Error()})
			continue
		}
		t.Line = n
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, fmt.Errorf("read target list: %w", err))
	}
	return out, errs
}

func parseLine(line string, minTokens int) (domain.Target, error) {
	parts, err := shlex.Split(escapeHashes(line))
	if err != nil {
		return domain.Target{}, fmt.Errorf("bad quoting: %v", err)
	}
	if len(parts) < minTokens {
		return domain.Target{}, fmt.Errorf("expected at least %d fields, got %d", minTokens, len(parts))
	}

	desc, rawURL := parts[0], parts[1]
	if err := ValidateURL(rawURL); err != nil {
		return domain.Target{}, err
	}

	var channel, keyword string
	rest := parts[2:]
	switch {
	case len(rest) == 0:
	case len(rest) == 1 && minTokens < 3 && ValidateURL(rest[0]) != nil:
		keyword = rest[0]
	default:
		channel = rest[0]
		if len(rest) > 1 {
			keyword = rest[1]
		}
	}
	return domain.NewTarget(desc, rawURL, channel, keyword), nil
}

// escapeHashes backslash-escapes a '#' that starts an unquoted field, so
// shlex keeps it as text instead of dropping the rest of the line as a
// comment. Full-line comments are removed before this is called.
func escapeHashes(line string) string {
	var (
		b       strings.Builder
		quote   rune
		escaped bool
		start   = true
	)
	for _, r := range line {
		literal := escaped
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#' && start:
			b.WriteRune('\\')
		}
		start = quote == 0 && !literal && unicode.IsSpace(r)
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}

// Duplicates returns the URLs that appear more than once, in first-seen order.
func Duplicates(ts []domain.Target) []string {
	seen := make(map[domain.TargetID]int, len(ts))
	var dup []string
	for _, t := range ts {
		seen[t.ID]++
		if seen[t.ID] == 2 {
			dup = append(dup, t.URL)
		}
	}
	return dup
}

// Format renders t as one line that Parse reads back unchanged.
func Format(t domain.Target) string {
	fields := []string{quote(t.Description), quote(t.URL)}
	if t.Channel != "" || t.Keyword != "" {
		fields = append(fields, quote(t.Channel))
	}
	if t.Keyword != "" {
		fields = append(fields, quote(t.Keyword))
	}
	return strings.Join(fields, " ")
}

// quote wraps s in double quotes when it contains anything shlex would split
// or interpret. Inside double quotes shlex takes the rune after a backslash
// literally.
func quote(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"'\\#") {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
