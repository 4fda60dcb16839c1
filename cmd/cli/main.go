// Command cli appends a target to the target list interactively.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hamed0406/urlmonitor/internal/config"
	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/targets"
)

func main() {
	cfg := config.FromEnv()
	if err := run(os.Stdin, os.Stdout, cfg.TargetsFile, cfg.MinTokens); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer, path string, minTokens int) error {
	reader := bufio.NewReader(in)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		s, _ := reader.ReadString('\n')
		return strings.TrimSpace(s)
	}

	raw := ask("Enter a site URL to monitor (e.g., https://example.com): ")
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if err := targets.ValidateURL(raw); err != nil {
		return err
	}
	desc := ask("Description: ")
	if desc == "" {
		desc = raw
	}
	channel := ask("Webhook URL (empty for DEFAULT_WEBHOOK): ")
	if channel == "" && minTokens >= 3 {
		return fmt.Errorf("a webhook URL is required when MIN_TOKENS=%d", minTokens)
	}
	keyword := ask("Keyword that must appear on the page (optional): ")

	t := domain.NewTarget(desc, raw, channel, keyword)
	line := targets.Format(t)

	// Parse the line back so a malformed entry never reaches the file.
	parsed, errs := targets.Parse(strings.NewReader(line), minTokens)
	if len(errs) > 0 || len(parsed) != 1 {
		return fmt.Errorf("generated line %q does not parse: %v", line, errs)
	}

	if err := appendLine(path, line); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added to %s:\n  %s\n", path, line)
	return nil
}

func appendLine(path, line string) error {
	var prefix string
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 && b[len(b)-1] != '\n' {
		prefix = "\n"
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open target list: %w", err)
	}
	if _, err := f.WriteString(prefix + line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append target: %w", err)
	}
	return f.Close()
}
