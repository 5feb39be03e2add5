// Package datasource fetches the raw match records the prediction pipeline consumes.
//
// Statistics come from the football-data.org v4 API and player availability from an
// optional team news page. Every public fetch absorbs its failures: the error is logged
// and a neutral default is returned, so callers never see a FetchError. Successful
// responses are cached for a fixed time to live; defaults are never cached.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/matchdata"
	"github.com/richard-senior/footy/pkg/transport"
)

// Source supplies raw match data for a fixture
type Source interface {
	FetchMatchData(ctx context.Context, home, away, league string) (*matchdata.RawMatchData, error)
	ClearCache() error
}

// Config holds the client settings
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	FormMatches   int
	H2HMatches    int
	RateLimitWait time.Duration
}

// Client talks to football-data.org
type Client struct {
	cfg   Config
	http  *transport.HTTPClient
	cache *Cache
	news  *TeamNews
}

// errNoMatch reports a lookup that succeeded but found nothing usable
var errNoMatch = errors.New("no matching record")

// NewClient creates a client. cache and news may be nil.
func NewClient(cfg Config, httpClient *transport.HTTPClient, cache *Cache, news *TeamNews) *Client {
	if cfg.FormMatches < 1 {
		cfg.FormMatches = 5
	}
	if cfg.H2HMatches < 1 {
		cfg.H2HMatches = 10
	}
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(cfg.Timeout)
	}
	return &Client{cfg: cfg, http: httpClient, cache: cache, news: news}
}

/////////////////////////////////////////////////////////////////////////
////// API response shapes
/////////////////////////////////////////////////////////////////////////

type apiTeam struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type standingsResponse struct {
	Standings []struct {
		Table []standingRow `json:"table"`
	} `json:"standings"`
}

type standingRow struct {
	Position     int     `json:"position"`
	Team         apiTeam `json:"team"`
	PlayedGames  int     `json:"playedGames"`
	Form         string  `json:"form"`
	Won          int     `json:"won"`
	Draw         int     `json:"draw"`
	Lost         int     `json:"lost"`
	Points       int     `json:"points"`
	GoalsFor     int     `json:"goalsFor"`
	GoalsAgainst int     `json:"goalsAgainst"`
}

func (r standingRow) stats(team, league string) *matchdata.RawTeamStats {
	return &matchdata.RawTeamStats{
		TeamName:      team,
		League:        league,
		MatchesPlayed: r.PlayedGames,
		Wins:          r.Won,
		Draws:         r.Draw,
		Losses:        r.Lost,
		GoalsScored:   r.GoalsFor,
		GoalsConceded: r.GoalsAgainst,
		Points:        r.Points,
		Position:      r.Position,
		FormLast5:     ParseForm(r.Form),
	}
}

type teamsResponse struct {
	Teams []apiTeam `json:"teams"`
}

type apiMatch struct {
	UTCDate  string  `json:"utcDate"`
	Status   string  `json:"status"`
	HomeTeam apiTeam `json:"homeTeam"`
	AwayTeam apiTeam `json:"awayTeam"`
	Score    struct {
		FullTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
	} `json:"score"`
}

func (m apiMatch) date() string {
	if len(m.UTCDate) >= 10 {
		return m.UTCDate[:10]
	}
	return m.UTCDate
}

type matchesResponse struct {
	Matches []apiMatch `json:"matches"`
}

/////////////////////////////////////////////////////////////////////////
////// Transport
/////////////////////////////////////////////////////////////////////////

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.cfg.APIKey != "" {
		h["X-Auth-Token"] = c.cfg.APIKey
	}
	return h
}

// get fetches an API path into out, bounded by the configured timeout
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	logger.Debug("API request", u)
	if err := c.http.GetJSON(ctx, u, c.headers(), out); err != nil {
		return newFetchError(op, err)
	}
	return nil
}

// absorb logs a failed fetch and, when rate limited, waits before the default is used
func (c *Client) absorb(ctx context.Context, err error) {
	var fe *FetchError
	if errors.As(err, &fe) && fe.RateLimited() {
		logger.Warn("API rate limit reached, waiting", c.cfg.RateLimitWait)
		if c.cfg.RateLimitWait > 0 {
			t := time.NewTimer(c.cfg.RateLimitWait)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
			}
		}
		return
	}
	logger.Warn("Using defaults after fetch failure", err)
}

/////////////////////////////////////////////////////////////////////////
////// Team statistics
/////////////////////////////////////////////////////////////////////////

// GetTeamStats returns a team's season record from the league standings
func (c *Client) GetTeamStats(ctx context.Context, team, league string) *matchdata.RawTeamStats {
	key := fmt.Sprintf("team_stats_%s_%s", team, league)
	var cached matchdata.RawTeamStats
	if c.cache != nil && c.cache.Get(key, &cached) {
		logger.Info("Using cached data for", team)
		return &cached
	}

	stats, err := c.fetchTeamStats(ctx, team, league)
	if err != nil {
		c.absorb(ctx, err)
		return DefaultTeamStats()
	}
	if c.cache != nil {
		c.cache.Set(key, stats)
	}
	return stats
}

func (c *Client) fetchTeamStats(ctx context.Context, team, league string) (*matchdata.RawTeamStats, error) {
	var resp standingsResponse
	path := fmt.Sprintf("/competitions/%d/standings", LeagueID(league))
	if err := c.get(ctx, "standings", path, nil, &resp); err != nil {
		return nil, err
	}
	var rows []standingRow
	for _, group := range resp.Standings {
		rows = append(rows, group.Table...)
	}
	for _, row := range rows {
		if matchesTeam(team, row.Team.Name) {
			return row.stats(team, league), nil
		}
	}
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Team.Name
	}
	if i := closestTeam(team, names); i >= 0 {
		logger.Info("Matched", team, "to", names[i])
		return rows[i].stats(team, league), nil
	}
	return nil, &FetchError{Op: "standings", Err: fmt.Errorf("%w: %s not in %s table", errNoMatch, team, league)}
}

/////////////////////////////////////////////////////////////////////////
////// Head to head
/////////////////////////////////////////////////////////////////////////

// teamID resolves a team name to its football-data.org id
func (c *Client) teamID(ctx context.Context, team string) (int, error) {
	var resp teamsResponse
	if err := c.get(ctx, "teams", "/teams", url.Values{"name": {team}}, &resp); err != nil {
		return 0, err
	}
	if len(resp.Teams) == 0 || resp.Teams[0].ID == 0 {
		return 0, &FetchError{Op: "teams", Err: fmt.Errorf("%w: team %s", errNoMatch, team)}
	}
	return resp.Teams[0].ID, nil
}

// GetHeadToHead aggregates up to n previous meetings. team1 is the home side of the fixture.
func (c *Client) GetHeadToHead(ctx context.Context, team1, team2 string, n int) *matchdata.RawHeadToHead {
	if n < 1 {
		n = c.cfg.H2HMatches
	}
	key := fmt.Sprintf("h2h_%s_%s_%d", team1, team2, n)
	var cached matchdata.RawHeadToHead
	if c.cache != nil && c.cache.Get(key, &cached) {
		return &cached
	}

	h2h, err := c.fetchHeadToHead(ctx, team1, team2, n)
	if err != nil {
		c.absorb(ctx, err)
		return DefaultHeadToHead()
	}
	if c.cache != nil {
		c.cache.Set(key, h2h)
	}
	return h2h
}

func (c *Client) fetchHeadToHead(ctx context.Context, team1, team2 string, n int) (*matchdata.RawHeadToHead, error) {
	id1, err := c.teamID(ctx, team1)
	if err != nil {
		return nil, err
	}
	id2, err := c.teamID(ctx, team2)
	if err != nil {
		return nil, err
	}

	var resp matchesResponse
	if err := c.get(ctx, "matches", fmt.Sprintf("/teams/%d/matches", id1), nil, &resp); err != nil {
		return nil, err
	}

	mutual := make([]apiMatch, 0, n)
	for _, m := range resp.Matches {
		h, a := m.HomeTeam.ID, m.AwayTeam.ID
		if (h == id1 && a == id2) || (h == id2 && a == id1) {
			mutual = append(mutual, m)
		}
	}
	if len(mutual) == 0 {
		return nil, &FetchError{Op: "matches", Err: fmt.Errorf("%w: no meetings between %s and %s", errNoMatch, team1, team2)}
	}
	if len(mutual) > n {
		mutual = mutual[:n]
	}
	return aggregateHeadToHead(mutual, id1), nil
}

// aggregateHeadToHead counts results from team1's point of view.
// Meetings without a full time score count towards the total but nothing else.
func aggregateHeadToHead(matches []apiMatch, team1ID int) *matchdata.RawHeadToHead {
	h2h := &matchdata.RawHeadToHead{TotalMatches: len(matches), RecentResults: []matchdata.H2HResult{}}

	for _, m := range matches {
		if m.Score.FullTime.Home == nil || m.Score.FullTime.Away == nil {
			continue
		}
		hg, ag := *m.Score.FullTime.Home, *m.Score.FullTime.Away

		t1, t2 := ag, hg
		if m.HomeTeam.ID == team1ID {
			t1, t2 = hg, ag
		}
		h2h.Team1Goals += t1
		h2h.Team2Goals += t2
		switch {
		case t1 > t2:
			h2h.Team1Wins++
		case t1 < t2:
			h2h.Team2Wins++
		default:
			h2h.Draws++
		}
		if hg > 0 && ag > 0 {
			h2h.BothTeamsScored++
		}
		if hg+ag > 2 {
			h2h.Over25Goals++
		}
		if len(h2h.RecentResults) < 10 {
			h2h.RecentResults = append(h2h.RecentResults, matchdata.H2HResult{
				Date:  m.date(),
				Home:  m.HomeTeam.Name,
				Away:  m.AwayTeam.Name,
				Score: strconv.Itoa(hg) + "-" + strconv.Itoa(ag),
			})
		}
	}

	avg := matchdata.DefaultH2HAvgGoals
	if h2h.TotalMatches > 0 {
		avg = float64(h2h.Team1Goals+h2h.Team2Goals) / float64(h2h.TotalMatches)
	}
	h2h.AvgGoalsPerMatch = &avg
	return h2h
}

/////////////////////////////////////////////////////////////////////////
////// Recent form
/////////////////////////////////////////////////////////////////////////

// GetRecentForm returns up to n finished matches from the team's perspective, oldest first
func (c *Client) GetRecentForm(ctx context.Context, team string, n int) []matchdata.RawFormMatch {
	if n < 1 {
		n = c.cfg.FormMatches
	}
	key := fmt.Sprintf("form_%s_%d", team, n)
	var cached []matchdata.RawFormMatch
	if c.cache != nil && c.cache.Get(key, &cached) {
		return cached
	}

	form, err := c.fetchRecentForm(ctx, team, n)
	if err != nil {
		c.absorb(ctx, err)
		return DefaultRecentForm(n)
	}
	if c.cache != nil {
		c.cache.Set(key, form)
	}
	return form
}

func (c *Client) fetchRecentForm(ctx context.Context, team string, n int) ([]matchdata.RawFormMatch, error) {
	id, err := c.teamID(ctx, team)
	if err != nil {
		return nil, err
	}

	var resp matchesResponse
	query := url.Values{"status": {"FINISHED"}, "limit": {strconv.Itoa(n)}}
	if err := c.get(ctx, "matches", fmt.Sprintf("/teams/%d/matches", id), query, &resp); err != nil {
		return nil, err
	}

	matches := resp.Matches
	if len(matches) > n {
		matches = matches[:n]
	}
	form := make([]matchdata.RawFormMatch, 0, len(matches))
	for _, m := range matches {
		if m.Score.FullTime.Home == nil || m.Score.FullTime.Away == nil {
			continue
		}
		hg, ag := *m.Score.FullTime.Home, *m.Score.FullTime.Away

		fm := matchdata.RawFormMatch{Date: m.date()}
		if m.HomeTeam.ID == id {
			fm.HomeAway, fm.Opponent = "home", m.AwayTeam.Name
			fm.GoalsScored, fm.GoalsConceded = hg, ag
		} else {
			fm.HomeAway, fm.Opponent = "away", m.HomeTeam.Name
			fm.GoalsScored, fm.GoalsConceded = ag, hg
		}
		switch {
		case fm.GoalsScored > fm.GoalsConceded:
			fm.Result = "W"
		case fm.GoalsScored < fm.GoalsConceded:
			fm.Result = "L"
		default:
			fm.Result = "D"
		}
		form = append(form, fm)
	}

	for i, j := 0, len(form)-1; i < j; i, j = i+1, j-1 {
		form[i], form[j] = form[j], form[i]
	}
	return form, nil
}

/////////////////////////////////////////////////////////////////////////
////// Availability
/////////////////////////////////////////////////////////////////////////

// GetPlayerAvailability scrapes team news when a source is configured, otherwise
// assumes a full squad
func (c *Client) GetPlayerAvailability(ctx context.Context, team string) *matchdata.RawAvailability {
	if c.news == nil || c.news.URLTemplate == "" {
		return DefaultAvailability(team)
	}
	key := fmt.Sprintf("availability_%s", team)
	var cached matchdata.RawAvailability
	if c.cache != nil && c.cache.Get(key, &cached) {
		logger.Info("Using cached team news for", team)
		return &cached
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	avail, err := c.news.Availability(ctx, team)
	if err != nil {
		c.absorb(ctx, newFetchError("team news", err))
		return DefaultAvailability(team)
	}
	if c.cache != nil {
		c.cache.Set(key, avail)
	}
	return avail
}

/////////////////////////////////////////////////////////////////////////
////// Match data
/////////////////////////////////////////////////////////////////////////

// FetchMatchData assembles every record the pipeline needs for one fixture.
// An empty league means the Premier League.
func (c *Client) FetchMatchData(ctx context.Context, home, away, league string) (*matchdata.RawMatchData, error) {
	if home == "" || away == "" {
		return nil, fmt.Errorf("home and away teams are required")
	}
	if league == "" {
		league = DefaultLeague
	}
	logger.Info("Fetching match data:", home, "vs", away)

	raw := &matchdata.RawMatchData{
		HomeTeam:         home,
		AwayTeam:         away,
		League:           league,
		HomeStats:        c.GetTeamStats(ctx, home, league),
		AwayStats:        c.GetTeamStats(ctx, away, league),
		HeadToHead:       c.GetHeadToHead(ctx, home, away, c.cfg.H2HMatches),
		HomeAvailability: c.GetPlayerAvailability(ctx, home),
		AwayAvailability: c.GetPlayerAvailability(ctx, away),
		HomeRecentForm:   c.GetRecentForm(ctx, home, c.cfg.FormMatches),
		AwayRecentForm:   c.GetRecentForm(ctx, away, c.cfg.FormMatches),
		FetchTimestamp:   time.Now().Format(time.RFC3339),
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", err)
	}
	return raw, nil
}

// ClearCache drops every cached response
func (c *Client) ClearCache() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear()
}

// PurgeExpired removes stale cached responses
func (c *Client) PurgeExpired() (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	return c.cache.PurgeExpired()
}
