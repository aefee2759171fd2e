package answer

import (
	"context"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// category is a keyword family answered from one page of the site.
type category struct {
	name     string
	keywords []string
	path     string
	answer   string
}

// categories is checked in order against the lower-cased raw query.
var categories = []category{
	{
		name:     "location",
		keywords: []string{"location", "where are you", "where do you"},
		path:     "/about-us",
		answer:   "We’re based in Kigali, Rwanda, with a distributed team across Africa.",
	},
	{
		name:     "contact",
		keywords: []string{"contact", "email", "phone"},
		path:     "/contact",
		answer:   "Contact us at info@khisima.com or +250 789 619 370.",
	},
	{
		name:     "services",
		keywords: []string{"services", "what do you offer"},
		path:     "/services",
		answer:   "Services: Translation & Localization • Language Data (collection/annotation/evaluation) • AI Language Consulting • Cultural Adaptation • Voice-over & Dubbing • Multilingual SEO.",
	},
	{
		name:     "countries",
		keywords: []string{"workplace", "countries"},
		path:     "/workplace",
		answer:   "We operate across Africa and collaborate with partners in multiple countries.",
	},
}

// SiteSearcher answers a few fixed topics from cached pages of the public
// site. A topic is only answered when its page can be loaded.
type SiteSearcher struct {
	Seeds    []string
	Cache    PageCache
	Fetcher  Fetcher
	TTL      time.Duration
	Timeout  time.Duration
	MaxPages int
}

// NewSiteSearcher returns a searcher with an in-memory cache and an HTTP
// fetcher; callers may swap either.
func NewSiteSearcher(seeds []string, ttl, timeout time.Duration, maxPages int) *SiteSearcher {
	return &SiteSearcher{
		Seeds:    seeds,
		Cache:    NewMemoryCache(),
		Fetcher:  NewHTTPFetcher(),
		TTL:      ttl,
		Timeout:  timeout,
		MaxPages: maxPages,
	}
}

// Lookup matches the query against the topic keywords. Without seeds the
// canned summary is returned directly. A page load failure yields NotFound
// together with the error so the caller can log it.
func (s *SiteSearcher) Lookup(ctx context.Context, query string) (Result, error) {
	q := strings.ToLower(query)
	for _, c := range categories {
		if !containsAny(q, c.keywords) {
			continue
		}
		if len(s.Seeds) == 0 {
			return Found(c.answer, SourceSite), nil
		}
		if _, err := s.load(ctx, s.seedFor(c.path)); err != nil {
			return NotFound(), err
		}
		return Found(c.answer, SourceSite), nil
	}
	return NotFound(), nil
}

// Warm loads up to MaxPages seeds concurrently. It returns the first error;
// pages that loaded stay cached.
func (s *SiteSearcher) Warm(ctx context.Context) error {
	seeds := s.Seeds
	if s.MaxPages > 0 && len(seeds) > s.MaxPages {
		seeds = seeds[:s.MaxPages]
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, u := range seeds {
		u := u
		g.Go(func() error {
			_, err := s.load(gctx, u)
			return err
		})
	}
	return g.Wait()
}

func (s *SiteSearcher) load(ctx context.Context, u string) (*Page, error) {
	if s.Cache != nil {
		if p, ok := s.Cache.Get(ctx, u); ok {
			return p, nil
		}
	}

	fctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	p, err := s.Fetcher.Fetch(fctx, u)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		// A cache write failure only costs a refetch.
		_ = s.Cache.Set(ctx, p, s.TTL)
	}
	return p, nil
}

// seedFor picks the seed whose path equals path, else the first seed.
func (s *SiteSearcher) seedFor(path string) string {
	for _, seed := range s.Seeds {
		u, err := url.Parse(seed)
		if err != nil {
			continue
		}
		if strings.TrimRight(u.Path, "/") == path {
			return seed
		}
	}
	return s.Seeds[0]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
