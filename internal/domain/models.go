package domain

// TargetID identifies a monitored endpoint. It is the target's URL, so two
// entries with the same URL share one debounce state.
type TargetID string

// Target is one line of the target list after validation.
type Target struct {
	ID          TargetID `json:"id"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Channel     string   `json:"channel,omitempty"` // notification destination, e.g. a webhook URL
	Keyword     string   `json:"keyword,omitempty"`
	Line        int      `json:"-"`
}

// NewTarget builds a Target keyed by its URL.
func NewTarget(description, url, channel, keyword string) Target {
	return Target{
		ID:          TargetID(url),
		Description: description,
		URL:         url,
		Channel:     channel,
		Keyword:     keyword,
	}
}

// HasKeyword reports whether the target requires content matching.
func (t Target) HasKeyword() bool { return t.Keyword != "" }

// ProbeOutcome is what one cycle observed for a target.
// ContentOK is true when no keyword is configured or the target was unreachable.
type ProbeOutcome struct {
	Reachable bool
	ContentOK bool
}

// OK reports whether the cycle counts as a success.
func (o ProbeOutcome) OK() bool { return o.Reachable && o.ContentOK }
