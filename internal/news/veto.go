package news

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// adverseKeywords flags headlines that should keep the bot out of the
// market. Matching is case-insensitive on headline plus content.
var adverseKeywords = []string{
	"bankruptcy",
	"fraud",
	"sec investigation",
	"trading halt",
	"delisting",
	"restatement",
	"recall",
	"downgrade",
	"default",
	"chapter 11",
	"going concern",
}

// Adverse reports whether an article mentions an adverse event.
func Adverse(a Article) (string, bool) {
	text := strings.ToLower(a.Headline + " " + a.Content)
	for _, kw := range adverseKeywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// Veto caches the adverse-news verdict between refreshes so the fast tick
// path never waits on a news fetch. A failed refresh keeps the last verdict.
type Veto struct {
	fetchers []Fetcher
	window   time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	vetoed bool
	reason string
}

// NewVeto builds a veto over the given fetchers. window bounds how far back
// articles are considered.
func NewVeto(window time.Duration, log *slog.Logger, fetchers ...Fetcher) *Veto {
	return &Veto{fetchers: fetchers, window: window, log: log}
}

// Refresh re-fetches articles and updates the cached verdict. Sources fail
// independently; articles from the ones that succeed are still screened.
func (v *Veto) Refresh(ctx context.Context, symbol string) {
	var articles []Article
	fetched := 0
	for _, f := range v.fetchers {
		got, err := f.Recent(ctx, symbol, v.window)
		if err != nil {
			v.log.Warn("news fetch failed", "symbol", symbol, "error", err)
			continue
		}
		fetched++
		articles = append(articles, got...)
	}
	if len(v.fetchers) > 0 && fetched == 0 {
		// Every source failed: keep the previous verdict.
		return
	}

	vetoed := false
	reason := ""
	for _, a := range articles {
		if kw, bad := Adverse(a); bad {
			vetoed = true
			reason = kw + ": " + a.Headline
			break
		}
	}

	v.mu.Lock()
	if vetoed && !v.vetoed {
		v.log.Warn("adverse news veto raised", "symbol", symbol, "reason", reason)
	}
	v.vetoed = vetoed
	v.reason = reason
	v.mu.Unlock()
}

// Vetoed returns the cached verdict.
func (v *Veto) Vetoed() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reason, v.vetoed
}
