package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/urlmonitor/internal/debounce"
	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/inspect"
	"github.com/hamed0406/urlmonitor/internal/probe"
	"github.com/hamed0406/urlmonitor/internal/repo"
	"github.com/hamed0406/urlmonitor/internal/repo/memory"
)

// --- fakes ---

// scriptedProber returns the next queued result per URL; once the queue is
// empty the last result repeats.
type scriptedProber struct {
	script map[string][]probe.Result
	calls  map[string]int
}

func newProber() *scriptedProber {
	return &scriptedProber{script: map[string][]probe.Result{}, calls: map[string]int{}}
}

func (p *scriptedProber) queue(url string, rs ...probe.Result) { p.script[url] = append(p.script[url], rs...) }

func (p *scriptedProber) Check(_ context.Context, url string) probe.Result {
	p.calls[url]++
	q := p.script[url]
	if len(q) == 0 {
		return probe.Result{Message: "no script"}
	}
	r := q[0]
	if len(q) > 1 {
		p.script[url] = q[1:]
	}
	return r
}

func up(body string) probe.Result {
	return probe.Result{Reachable: true, StatusCode: 200, Attempts: 1, Body: []byte(body), ContentType: "text/html"}
}

func down() probe.Result {
	return probe.Result{StatusCode: 0, Attempts: 2, Message: "connection refused (after 2 attempts)"}
}

// cancellingProber cancels the cycle while probing the URL named in at and
// reports the failure a cancelled request would produce.
type cancellingProber struct {
	at     string
	cancel context.CancelFunc
	calls  []string
}

func (p *cancellingProber) Check(ctx context.Context, url string) probe.Result {
	p.calls = append(p.calls, url)
	if url == p.at {
		p.cancel()
	}
	if ctx.Err() != nil {
		return probe.Result{Attempts: 1, Message: "context canceled"}
	}
	return up("")
}

type sent struct{ channel, message string }

type recordingNotifier struct {
	sent []sent
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, channel, message string) error {
	n.sent = append(n.sent, sent{channel, message})
	return n.err
}

type countingInspector struct {
	inspect.HTML
	calls int
}

func (c *countingInspector) Matches(body []byte, ct, kw string) bool {
	c.calls++
	return c.HTML.Matches(body, ct, kw)
}

type brokenStore struct {
	loadErr, saveErr error
	saved            domain.States
}

func (b *brokenStore) Load(context.Context) (domain.States, error) {
	return domain.States{}, b.loadErr
}

func (b *brokenStore) Save(_ context.Context, s domain.States) error {
	b.saved = s
	return b.saveErr
}

// --- tests ---

func TestRunner_ThresholdScenario(t *testing.T) {
	ctx := context.Background()
	site := domain.NewTarget("Main site", "https://example.com", "https://discord.com/api/webhooks/1/x", "")

	p := newProber()
	p.queue(site.URL, down(), down(), down(), down(), down(), down(), up("ok"), up("ok"))
	n := &recordingNotifier{}
	store := memory.New()
	r := New(zap.NewNop(), store, p, inspect.HTML{}, n, Options{Threshold: 5})

	var intents []debounce.Kind
	for i := 0; i < 8; i++ {
		rep := r.Run(ctx, []domain.Target{site})
		if len(rep.Errors()) != 0 {
			t.Fatalf("cycle %d errors: %v", i, rep.Err)
		}
		intents = append(intents, rep.Targets[0].Intent.Kind)

		st, _ := store.Load(ctx)
		switch i {
		case 4, 5:
			want := domain.DebounceState{ConsecutiveFailures: 5, AlertedDown: true}
			if st[site.ID] != want {
				t.Fatalf("cycle %d state=%+v want %+v", i, st[site.ID], want)
			}
		case 6:
			if want := (domain.DebounceState{AlertedUp: true}); st[site.ID] != want {
				t.Fatalf("after recovery state=%+v", st[site.ID])
			}
		case 7:
			if st[site.ID] != (domain.DebounceState{}) {
				t.Fatalf("steady state=%+v", st[site.ID])
			}
		}
	}

	wantIntents := []debounce.Kind{
		debounce.None, debounce.None, debounce.None, debounce.None, debounce.AlertDown,
		debounce.None, debounce.AlertUp, debounce.None,
	}
	if diff := cmp.Diff(wantIntents, intents); diff != "" {
		t.Fatalf("intents (-want +got):\n%s", diff)
	}

	wantSent := []sent{
		{site.Channel, "❌ Main site (https://example.com) DOWN"},
		{site.Channel, "✅ Main site (https://example.com) UP"},
	}
	if diff := cmp.Diff(wantSent, n.sent, cmp.AllowUnexported(sent{})); diff != "" {
		t.Fatalf("notifications (-want +got):\n%s", diff)
	}
	if store.Saves() != 8 {
		t.Fatalf("want one save per cycle, got %d", store.Saves())
	}
}

func TestRunner_KeywordMissing(t *testing.T) {
	ctx := context.Background()
	tgt := domain.NewTarget("Status", "https://status.example.com", "", "Operational")

	p := newProber()
	p.queue(tgt.URL, up("<html><body><p>Degraded</p><script>var s='Operational'</script></body></html>"))
	n := &recordingNotifier{}
	insp := &countingInspector{}
	r := New(zap.NewNop(), memory.New(), p, insp, n, Options{Threshold: 1})

	rep := r.Run(ctx, []domain.Target{tgt})
	tr := rep.Targets[0]
	if tr.Outcome != (domain.ProbeOutcome{Reachable: true, ContentOK: false}) {
		t.Fatalf("outcome=%+v", tr.Outcome)
	}
	if tr.Intent.Reason != debounce.KeywordMissing {
		t.Fatalf("reason=%v", tr.Intent.Reason)
	}
	if len(n.sent) != 1 || n.sent[0].message != "⚠️ Status (https://status.example.com) MISSING 'Operational'" {
		t.Fatalf("sent=%+v", n.sent)
	}
	if tr.Probe.Body != nil {
		t.Fatal("report should not retain response bodies")
	}
	if insp.calls != 1 {
		t.Fatalf("inspector calls=%d", insp.calls)
	}
}

func TestRunner_InspectorSkippedWhenUnreachable(t *testing.T) {
	tgt := domain.NewTarget("Shop", "https://shop.example.com", "", "Add to cart")
	p := newProber()
	p.queue(tgt.URL, down())
	insp := &countingInspector{}
	r := New(zap.NewNop(), memory.New(), p, insp, nil, Options{Threshold: 1})

	rep := r.Run(context.Background(), []domain.Target{tgt})
	if insp.calls != 0 {
		t.Fatal("inspector must not run for unreachable targets")
	}
	tr := rep.Targets[0]
	if !tr.Outcome.ContentOK || tr.Intent.Reason != debounce.Unreachable {
		t.Fatalf("unexpected %+v / %+v", tr.Outcome, tr.Intent)
	}
	if tr.Message != "❌ Shop (https://shop.example.com) DOWN" {
		t.Fatalf("message=%q", tr.Message)
	}
}

func TestRunner_NotifyFailureDoesNotAbortCycle(t *testing.T) {
	ctx := context.Background()
	a := domain.NewTarget("A", "https://a.example", "", "")
	b := domain.NewTarget("B", "https://b.example", "", "")

	p := newProber()
	p.queue(a.URL, down())
	p.queue(b.URL, down())
	n := &recordingNotifier{err: errors.New("webhook 500")}
	store := memory.New()

	core, logs := observer.New(zapcore.WarnLevel)
	r := New(zap.New(core), store, p, inspect.HTML{}, n, Options{Threshold: 1})

	rep := r.Run(ctx, []domain.Target{a, b})
	if len(n.sent) != 2 {
		t.Fatalf("both targets should be notified, got %d", len(n.sent))
	}
	if rep.Counts[ErrKindNotify] != 2 || len(rep.Errors()) != 2 {
		t.Fatalf("counts=%v err=%v", rep.Counts, rep.Err)
	}
	if rep.Alerts(debounce.AlertDown) != 0 {
		t.Fatal("failed deliveries must not count as sent alerts")
	}
	if logs.FilterMessage("notify_failed").Len() != 2 {
		t.Fatalf("expected notify_failed logs, got %v", logs.All())
	}

	st, _ := store.Load(ctx)
	if !st[a.ID].AlertedDown || !st[b.ID].AlertedDown {
		t.Fatalf("state must transition even when delivery fails: %+v", st)
	}
}

func TestRunner_StoreErrorsAreReported(t *testing.T) {
	tgt := domain.NewTarget("A", "https://a.example", "", "")
	p := newProber()
	p.queue(tgt.URL, up(""))
	store := &brokenStore{
		loadErr: fmt.Errorf("%w: parse failures.json", repo.ErrCorrupt),
		saveErr: errors.New("disk full"),
	}
	r := New(zap.NewNop(), store, p, inspect.HTML{}, nil, Options{})

	rep := r.Run(context.Background(), []domain.Target{tgt})
	if rep.Counts[ErrKindStateLoad] != 1 || rep.Counts[ErrKindStateSave] != 1 {
		t.Fatalf("counts=%v", rep.Counts)
	}
	if _, ok := store.saved[tgt.ID]; !ok {
		t.Fatal("cycle should still attempt to save")
	}
}

func TestRunner_CancelledBeforeStartSavesNothing(t *testing.T) {
	site := domain.NewTarget("Site", "https://example.com", "", "")
	store := memory.New()
	prior := domain.States{site.ID: {ConsecutiveFailures: 4}}
	if err := store.Save(context.Background(), prior); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &cancellingProber{cancel: cancel}
	n := &recordingNotifier{}
	r := New(zap.NewNop(), store, p, inspect.HTML{}, n, Options{Threshold: 5})

	rep := r.Run(ctx, []domain.Target{site})
	if !errors.Is(rep.Aborted, context.Canceled) {
		t.Fatalf("aborted=%v", rep.Aborted)
	}
	if len(p.calls) != 0 || len(n.sent) != 0 {
		t.Fatalf("nothing should run: probes=%v sent=%v", p.calls, n.sent)
	}
	if store.Saves() != 1 {
		t.Fatalf("interrupted cycle must not save, saves=%d", store.Saves())
	}
	st, _ := store.Load(context.Background())
	if diff := cmp.Diff(prior, st); diff != "" {
		t.Fatalf("state changed (-want +got):\n%s", diff)
	}
}

func TestRunner_CancelledMidCycleDiscardsThatProbe(t *testing.T) {
	a := domain.NewTarget("A", "https://a.example", "", "")
	b := domain.NewTarget("B", "https://b.example", "", "")
	store := memory.New()
	_ = store.Save(context.Background(), domain.States{a.ID: {ConsecutiveFailures: 4}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &cancellingProber{at: a.URL, cancel: cancel}
	n := &recordingNotifier{}
	core, logs := observer.New(zapcore.InfoLevel)
	r := New(zap.New(core), store, p, inspect.HTML{}, n, Options{Threshold: 5})

	rep := r.Run(ctx, []domain.Target{a, b})
	if rep.Aborted == nil || len(rep.Targets) != 0 {
		t.Fatalf("aborted=%v targets=%d", rep.Aborted, len(rep.Targets))
	}
	if diff := cmp.Diff([]string{a.URL}, p.calls); diff != "" {
		t.Fatalf("probes (-want +got):\n%s", diff)
	}
	if len(n.sent) != 0 {
		t.Fatalf("a cancelled probe must not raise an alert: %v", n.sent)
	}
	if store.Saves() != 1 {
		t.Fatalf("saves=%d", store.Saves())
	}
	if logs.FilterMessage("cycle_interrupted").Len() != 1 || logs.FilterMessage("cycle_done").Len() != 0 {
		t.Fatalf("logs=%v", logs.All())
	}
}

func TestRunner_UnreadableStoreSkipsCycle(t *testing.T) {
	tgt := domain.NewTarget("A", "https://a.example", "", "")
	p := newProber()
	p.queue(tgt.URL, down())
	n := &recordingNotifier{}
	store := &brokenStore{loadErr: errors.New("dial tcp 10.0.0.5:5432: connection refused")}
	r := New(zap.NewNop(), store, p, inspect.HTML{}, n, Options{Threshold: 1})

	rep := r.Run(context.Background(), []domain.Target{tgt})
	if rep.Aborted == nil || rep.Counts[ErrKindStateLoad] != 1 {
		t.Fatalf("aborted=%v counts=%v", rep.Aborted, rep.Counts)
	}
	if p.calls[tgt.URL] != 0 || len(n.sent) != 0 {
		t.Fatal("no target should be evaluated without prior state")
	}
	if store.saved != nil {
		t.Fatalf("state must not be overwritten: %v", store.saved)
	}
}

func TestRunner_PruneIsOptIn(t *testing.T) {
	ctx := context.Background()
	keep := domain.NewTarget("A", "https://a.example", "", "")

	for _, prune := range []bool{false, true} {
		store := memory.New()
		_ = store.Save(ctx, domain.States{
			"https://gone.example": {ConsecutiveFailures: 3},
		})
		p := newProber()
		p.queue(keep.URL, up(""))
		r := New(zap.NewNop(), store, p, inspect.HTML{}, nil, Options{Threshold: 5, Prune: prune})

		rep := r.Run(ctx, []domain.Target{keep})
		st, _ := store.Load(ctx)
		_, kept := st["https://gone.example"]
		if kept == prune {
			t.Fatalf("prune=%v: stale id kept=%v", prune, kept)
		}
		if prune && rep.Pruned != 1 {
			t.Fatalf("pruned=%d", rep.Pruned)
		}
	}
}

func TestRunCycle_DoesNotMutateInputAndSharesDuplicateState(t *testing.T) {
	a1 := domain.NewTarget("A", "https://a.example", "", "")
	a2 := domain.NewTarget("A again", "https://a.example", "", "")

	p := newProber()
	p.queue(a1.URL, down(), down())
	r := New(zap.NewNop(), memory.New(), p, inspect.HTML{}, nil, Options{Threshold: 5})

	in := domain.States{a1.ID: {ConsecutiveFailures: 1}}
	out, rep := r.RunCycle(context.Background(), []domain.Target{a1, a2}, in)

	if in[a1.ID].ConsecutiveFailures != 1 {
		t.Fatalf("input mutated: %+v", in)
	}
	if out[a1.ID].ConsecutiveFailures != 3 {
		t.Fatalf("duplicate ids should advance the same state twice, got %+v", out[a1.ID])
	}
	if rep.CycleID == "" || len(rep.Targets) != 2 {
		t.Fatalf("report=%+v", rep)
	}
	if p.calls[a1.URL] != 2 {
		t.Fatalf("probe calls=%d", p.calls[a1.URL])
	}
}

func TestMessage(t *testing.T) {
	tgt := domain.NewTarget("Router", "http://192.168.178.1", "", "Login")
	cases := []struct {
		in   debounce.Intent
		want string
	}{
		{debounce.Intent{Kind: debounce.AlertDown, Reason: debounce.Unreachable}, "❌ Router (http://192.168.178.1) DOWN"},
		{debounce.Intent{Kind: debounce.AlertDown, Reason: debounce.KeywordMissing}, "⚠️ Router (http://192.168.178.1) MISSING 'Login'"},
		{debounce.Intent{Kind: debounce.AlertUp}, "✅ Router (http://192.168.178.1) UP"},
		{debounce.Intent{}, ""},
	}
	for _, c := range cases {
		if got := Message(tgt, c.in); got != c.want {
			t.Fatalf("Message(%+v)=%q want %q", c.in, got, c.want)
		}
	}
}
