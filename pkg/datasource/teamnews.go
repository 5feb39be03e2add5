package datasource

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/matchdata"
	"github.com/richard-senior/footy/pkg/transport"
)

// TeamPlaceholder is substituted with the url escaped team slug in a team news URL template
const TeamPlaceholder = "{team}"

// PageFetcher returns the HTML of a page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPPageFetcher fetches static HTML
type HTTPPageFetcher struct {
	Client *transport.HTTPClient
}

func (f *HTTPPageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.Client.Get(ctx, url, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})
}

// BrowserPageFetcher renders pages in headless chromium for team news sites that
// build their injury lists client side. A browser is started per fetch.
type BrowserPageFetcher struct {
	Timeout time.Duration
}

func (f *BrowserPageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	defer func() {
		if err := pw.Stop(); err != nil {
			logger.Warn("Failed to stop playwright", err)
		}
	}()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	if err != nil {
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{UserAgent: playwright.String(transport.UserAgent)})
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	timeout := f.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout == 0 || left < timeout {
			timeout = left
		}
	}
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	if _, err := page.Goto(url, opts); err != nil {
		return nil, fmt.Errorf("could not load %s: %w", url, err)
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("could not read page content: %w", err)
	}
	return []byte(content), nil
}

// TeamNews scrapes injury and suspension lists from a team news page.
// The page is expected to list players as:
//
//	<ul class="injuries"><li class="key-player">Name</li>...</ul>
//	<ul class="suspensions"><li data-key="true">Name</li>...</ul>
type TeamNews struct {
	URLTemplate string
	Fetcher     PageFetcher
}

// TeamSlug turns a team name into a lower case, hyphenated path element
func TeamSlug(team string) string {
	fields := strings.Fields(strings.ToLower(team))
	return url.PathEscape(strings.Join(fields, "-"))
}

// URL returns the team news page address for a team
func (n *TeamNews) URL(team string) string {
	return strings.ReplaceAll(n.URLTemplate, TeamPlaceholder, TeamSlug(team))
}

// Availability fetches and parses the team news page for a team
func (n *TeamNews) Availability(ctx context.Context, team string) (*matchdata.RawAvailability, error) {
	if n.URLTemplate == "" || n.Fetcher == nil {
		return nil, fmt.Errorf("team news source not configured")
	}
	page, err := n.Fetcher.Fetch(ctx, n.URL(team))
	if err != nil {
		return nil, err
	}
	return ParseTeamNews(team, page)
}

// ParseTeamNews extracts unavailable players from a team news page
func ParseTeamNews(team string, page []byte) (*matchdata.RawAvailability, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	avail := DefaultAvailability(team)
	keyMissing := 0
	collect := func(selector string) []string {
		names := []string{}
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			name := strings.TrimSpace(s.Text())
			if name == "" {
				return
			}
			names = append(names, name)
			if s.HasClass("key-player") || s.AttrOr("data-key", "") == "true" {
				keyMissing++
			}
		})
		return names
	}
	avail.Injuries = collect(".injuries li")
	avail.Suspensions = collect(".suspensions li")
	avail.KeyPlayersMissing = keyMissing

	logger.Debug("Parsed team news", team, len(avail.Injuries), "injuries", len(avail.Suspensions), "suspensions")
	return avail, nil
}
