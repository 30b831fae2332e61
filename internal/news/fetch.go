// Package news feeds the adverse-news veto: it pulls recent headlines for
// the traded instrument from Alpaca and Google News RSS and screens them for
// adverse events.
package news

import (
	"context"
	"encoding/xml"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// Article is a single news article from any source.
type Article struct {
	Time     time.Time
	Source   string
	Headline string
	Content  string
}

// Fetcher retrieves recent articles for a symbol.
type Fetcher interface {
	Recent(ctx context.Context, symbol string, window time.Duration) ([]Article, error)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// --- Alpaca ---

// AlpacaFetcher pulls articles from the Alpaca marketdata news API.
type AlpacaFetcher struct {
	client *marketdata.Client
}

func NewAlpacaFetcher(client *marketdata.Client) *AlpacaFetcher {
	return &AlpacaFetcher{client: client}
}

func (f *AlpacaFetcher) Recent(_ context.Context, symbol string, window time.Duration) ([]Article, error) {
	end := time.Now()
	items, err := f.client.GetNews(marketdata.GetNewsRequest{
		Symbols:            []string{symbol},
		Start:              end.Add(-window),
		End:                end,
		TotalLimit:         50,
		IncludeContent:     true,
		ExcludeContentless: false,
		Sort:               marketdata.SortDesc,
	})
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(items))
	for _, a := range items {
		body := a.Summary
		if a.Content != "" {
			body = StripHTML(a.Content)
		}
		articles = append(articles, Article{
			Time:     a.CreatedAt,
			Source:   "alpaca",
			Headline: a.Headline,
			Content:  body,
		})
	}
	return articles, nil
}

// --- Google News RSS ---

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

// GoogleFetcher pulls articles from Google News RSS search.
type GoogleFetcher struct {
	baseURL string
}

func NewGoogleFetcher() *GoogleFetcher {
	return &GoogleFetcher{baseURL: "https://news.google.com/rss/search"}
}

func (f *GoogleFetcher) Recent(ctx context.Context, symbol string, window time.Duration) ([]Article, error) {
	q := url.QueryEscape(symbol + " stock")
	u := f.baseURL + "?q=" + q + "&hl=en-US&gl=US&ceid=US:en"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-window)
	var articles []Article
	for _, item := range rss.Channel.Items {
		t, err := time.Parse(time.RFC1123Z, item.PubDate)
		if err != nil {
			t, err = time.Parse(time.RFC1123, item.PubDate)
			if err != nil {
				continue
			}
		}
		if t.Before(cutoff) {
			continue
		}
		headline := item.Title
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			headline = headline[:idx]
		}
		articles = append(articles, Article{
			Time:     t,
			Source:   "google",
			Headline: headline,
			Content:  StripHTML(item.Desc),
		})
	}
	return articles, nil
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags and normalizes whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
