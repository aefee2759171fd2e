package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxPageBytes caps how much of a page body is read.
const DefaultMaxPageBytes = 2 << 20

// ErrUnexpectedStatus is returned for non-2xx page responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Fetcher loads a page and reduces it to text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher fetches pages over HTTP with a traced transport.
type HTTPFetcher struct {
	Client    *http.Client
	MaxBytes  int64
	UserAgent string
}

// NewHTTPFetcher returns a fetcher whose requests are traced with otelhttp.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		MaxBytes:  DefaultMaxPageBytes,
		UserAgent: "agent-backend/1.0 (+site-search)",
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %d", ErrUnexpectedStatus, url, resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxPageBytes
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, err
	}
	title, text := extractText(doc)
	return &Page{URL: url, Title: title, Text: text, FetchedAt: time.Now().UTC()}, nil
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Img:      true,
	atom.Video:    true,
	atom.Iframe:   true,
}

// extractText returns the document title and its visible body text with
// whitespace collapsed.
func extractText(doc *html.Node) (title, text string) {
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case atom.Body:
				if body == nil {
					body = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if body == nil {
		body = doc
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return title, strings.Join(strings.Fields(b.String()), " ")
}
