package monitor

import (
	"fmt"

	"github.com/hamed0406/urlmonitor/internal/debounce"
	"github.com/hamed0406/urlmonitor/internal/domain"
)

// Message renders the notification text for an intent. It returns "" for
// debounce.None.
func Message(t domain.Target, in debounce.Intent) string {
	switch in.Kind {
	case debounce.AlertDown:
		if in.Reason == debounce.KeywordMissing {
			return fmt.Sprintf("⚠️ %s (%s) MISSING '%s'", t.Description, t.URL, t.Keyword)
		}
		return fmt.Sprintf("❌ %s (%s) DOWN", t.Description, t.URL)
	case debounce.AlertUp:
		return fmt.Sprintf("✅ %s (%s) UP", t.Description, t.URL)
	default:
		return ""
	}
}
