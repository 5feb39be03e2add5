package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richard-senior/footy/pkg/matchdata"
	"github.com/richard-senior/footy/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForm(t *testing.T) {
	tests := []struct {
		name string
		form string
		want []int
	}{
		{"empty", "", []int{1, 1, 1, 1, 1}},
		{"comma separated", "W,D,L,W,W", []int{3, 1, 0, 3, 3}},
		{"last five only", "LLLWWDWW", []int{3, 3, 1, 3, 3}},
		{"padded", "WL", []int{1, 1, 1, 3, 0}},
		{"unknown is a draw", "W?L", []int{1, 1, 3, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseForm(tt.form))
		})
	}
}

func TestLeaguesAndAliases(t *testing.T) {
	assert.Equal(t, 2014, LeagueID("La Liga"))
	assert.Equal(t, 2021, LeagueID("Sunday League"))
	assert.Len(t, Leagues(), 10)
	assert.Equal(t, "Bundesliga", Leagues()[0])

	assert.Equal(t, "Tottenham Hotspur FC", NormalizeTeamName("Spurs"))
	assert.Equal(t, "Everton", NormalizeTeamName("Everton"))

	assert.True(t, matchesTeam("Arsenal", "Arsenal FC"))
	assert.True(t, matchesTeam("Man Utd", "Manchester United FC"))
	assert.True(t, matchesTeam("arsenal fc london", "Arsenal FC"))
	assert.False(t, matchesTeam("Chelsea", "Arsenal FC"))
	assert.False(t, matchesTeam("Chelsea", ""))
}

func TestDefaults(t *testing.T) {
	stats := DefaultTeamStats()
	assert.Zero(t, stats.MatchesPlayed)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, stats.FormLast5)

	h2h := DefaultHeadToHead()
	assert.Zero(t, h2h.TotalMatches)
	assert.Equal(t, 2.5, h2h.AvgGoals())

	avail := DefaultAvailability("Arsenal")
	assert.Equal(t, 1.0, avail.Squad())
	assert.Empty(t, avail.Injuries)

	form := DefaultRecentForm(3)
	require.Len(t, form, 3)
	assert.Equal(t, matchdata.RawFormMatch{Result: "D", GoalsScored: 1, GoalsConceded: 1}, form[2])
}

/////////////////////////////////////////////////////////////////////////
////// Cache
/////////////////////////////////////////////////////////////////////////

func TestCacheExpiry(t *testing.T) {
	c, err := NewCache(time.Hour, nil)
	require.NoError(t, err)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", []int{1, 2})
	var got []int
	require.True(t, c.Get("k", &got))
	assert.Equal(t, []int{1, 2}, got)

	now = now.Add(time.Hour)
	assert.False(t, c.Get("k", &got), "an entry exactly one TTL old is stale")

	n, err := c.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, c.Len())
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	first, err := NewCache(time.Hour, db)
	require.NoError(t, err)
	first.Set("team_stats_Arsenal_Premier League", &matchdata.RawTeamStats{Wins: 7})

	second, err := NewCache(time.Hour, db)
	require.NoError(t, err)
	var stats matchdata.RawTeamStats
	require.True(t, second.Get("team_stats_Arsenal_Premier League", &stats))
	assert.Equal(t, 7, stats.Wins)

	require.NoError(t, second.Clear())
	assert.False(t, first.Get("missing", &stats))
	fresh, err := NewCache(time.Hour, db)
	require.NoError(t, err)
	assert.False(t, fresh.Get("team_stats_Arsenal_Premier League", &stats))
}

func TestStalePersistedEntryIsDropped(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	first, err := NewCache(time.Hour, db)
	require.NoError(t, err)
	first.Set("availability_Arsenal", DefaultAvailability("Arsenal"))

	restarted, err := NewCache(time.Hour, db)
	require.NoError(t, err)
	restarted.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	var avail matchdata.RawAvailability
	assert.False(t, restarted.Get("availability_Arsenal", &avail))

	rows, err := store.Find[CacheEntry](db, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, restarted.Len())
}

func TestCachePurgeRemovesPersistedRows(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	c, err := NewCache(time.Minute, db)
	require.NoError(t, err)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)

	now = now.Add(2 * time.Minute)
	n, err := c.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 4, n, "two from memory and two rows")

	rows, err := store.Find[CacheEntry](db, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

/////////////////////////////////////////////////////////////////////////
////// Client
/////////////////////////////////////////////////////////////////////////

const standingsJSON = `{"standings":[{"table":[
 {"position":1,"team":{"id":57,"name":"Arsenal FC"},"playedGames":10,"form":"W,W,D,L,W","won":6,"draw":2,"lost":2,"points":20,"goalsFor":18,"goalsAgainst":8},
 {"position":2,"team":{"id":61,"name":"Chelsea FC"},"playedGames":10,"form":"L,L,D,W,L","won":3,"draw":3,"lost":4,"points":12,"goalsFor":12,"goalsAgainst":14}
]}]}`

const arsenalMatchesJSON = `{"matches":[
 {"utcDate":"2024-10-01T19:00:00Z","status":"FINISHED","homeTeam":{"id":57,"name":"Arsenal FC"},"awayTeam":{"id":61,"name":"Chelsea FC"},"score":{"fullTime":{"home":2,"away":1}}},
 {"utcDate":"2024-04-01T19:00:00Z","status":"FINISHED","homeTeam":{"id":61,"name":"Chelsea FC"},"awayTeam":{"id":57,"name":"Arsenal FC"},"score":{"fullTime":{"home":1,"away":1}}},
 {"utcDate":"2024-03-01T19:00:00Z","status":"FINISHED","homeTeam":{"id":57,"name":"Arsenal FC"},"awayTeam":{"id":65,"name":"Manchester City FC"},"score":{"fullTime":{"home":0,"away":3}}},
 {"utcDate":"2024-02-01T19:00:00Z","status":"POSTPONED","homeTeam":{"id":57,"name":"Arsenal FC"},"awayTeam":{"id":61,"name":"Chelsea FC"},"score":{"fullTime":{"home":null,"away":null}}}
]}`

type fakeAPI struct {
	hits    atomic.Int32
	status  int
	lastKey atomic.Value
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.lastKey.Store(r.Header.Get("X-Auth-Token"))
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/standings"):
			w.Write([]byte(standingsJSON))
		case r.URL.Path == "/teams":
			ids := map[string]int{"Arsenal": 57, "Chelsea": 61}
			id, ok := ids[r.URL.Query().Get("name")]
			if !ok {
				w.Write([]byte(`{"teams":[]}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"teams": []map[string]any{{"id": id, "name": r.URL.Query().Get("name")}}})
		case r.URL.Path == "/teams/57/matches":
			w.Write([]byte(arsenalMatchesJSON))
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	cache, err := NewCache(time.Hour, nil)
	require.NoError(t, err)
	return NewClient(Config{
		BaseURL:       srv.URL,
		APIKey:        "secret",
		Timeout:       5 * time.Second,
		RateLimitWait: 10 * time.Millisecond,
	}, nil, cache, nil)
}

func TestGetTeamStats(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	stats := c.GetTeamStats(context.Background(), "Arsenal", "Premier League")
	assert.Equal(t, 10, stats.MatchesPlayed)
	assert.Equal(t, 6, stats.Wins)
	assert.Equal(t, 18, stats.GoalsScored)
	assert.Equal(t, 1, stats.Position)
	assert.Equal(t, []int{3, 3, 1, 0, 3}, stats.FormLast5)
	assert.Equal(t, "secret", api.lastKey.Load())

	// second call is served from the cache
	c.GetTeamStats(context.Background(), "Arsenal", "Premier League")
	assert.EqualValues(t, 1, api.hits.Load())
}

func TestGetTeamStatsUnknownTeamUsesDefaultsUncached(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	stats := c.GetTeamStats(context.Background(), "Everton", "Premier League")
	assert.Equal(t, DefaultTeamStats(), stats)

	c.GetTeamStats(context.Background(), "Everton", "Premier League")
	assert.EqualValues(t, 2, api.hits.Load(), "defaults are never cached")
}

func TestGetHeadToHead(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	h2h := c.GetHeadToHead(context.Background(), "Arsenal", "Chelsea", 10)
	assert.Equal(t, 3, h2h.TotalMatches, "the unscored meeting still counts")
	assert.Equal(t, 1, h2h.Team1Wins)
	assert.Equal(t, 1, h2h.Draws)
	assert.Equal(t, 0, h2h.Team2Wins)
	assert.Equal(t, 3, h2h.Team1Goals)
	assert.Equal(t, 2, h2h.Team2Goals)
	assert.Equal(t, 2, h2h.BothTeamsScored)
	assert.Equal(t, 1, h2h.Over25Goals)
	assert.InDelta(t, 5.0/3.0, h2h.AvgGoals(), 1e-9)
	require.Len(t, h2h.RecentResults, 2)
	assert.Equal(t, matchdata.H2HResult{Date: "2024-10-01", Home: "Arsenal FC", Away: "Chelsea FC", Score: "2-1"}, h2h.RecentResults[0])

	limited := c.GetHeadToHead(context.Background(), "Arsenal", "Chelsea", 1)
	assert.Equal(t, 1, limited.TotalMatches)
}

func TestGetHeadToHeadUnknownTeam(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	assert.Equal(t, DefaultHeadToHead(), c.GetHeadToHead(context.Background(), "Arsenal", "Everton", 10))
}

func TestGetRecentForm(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	form := c.GetRecentForm(context.Background(), "Arsenal", 5)
	require.Len(t, form, 3)
	// oldest first
	assert.Equal(t, matchdata.RawFormMatch{Date: "2024-03-01", Opponent: "Manchester City FC", HomeAway: "home", Result: "L", GoalsScored: 0, GoalsConceded: 3}, form[0])
	assert.Equal(t, matchdata.RawFormMatch{Date: "2024-04-01", Opponent: "Chelsea FC", HomeAway: "away", Result: "D", GoalsScored: 1, GoalsConceded: 1}, form[1])
	assert.Equal(t, "W", form[2].Result)
}

func TestRateLimitedFetchFallsBack(t *testing.T) {
	api := &fakeAPI{status: http.StatusTooManyRequests}
	c := newTestClient(t, api)

	start := time.Now()
	form := c.GetRecentForm(context.Background(), "Arsenal", 4)
	assert.Equal(t, DefaultRecentForm(4), form)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestFetchMatchData(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	raw, err := c.FetchMatchData(context.Background(), "Arsenal", "Chelsea", "")
	require.NoError(t, err)
	require.NoError(t, raw.Validate())
	assert.Equal(t, DefaultLeague, raw.League)
	assert.Equal(t, 3, raw.AwayStats.Wins)
	assert.Equal(t, 1.0, raw.HomeAvailability.Squad())
	assert.NotEmpty(t, raw.FetchTimestamp)
	// Chelsea has no match list on the fake server
	assert.Equal(t, DefaultRecentForm(5), raw.AwayRecentForm)

	_, err = c.FetchMatchData(context.Background(), "", "Chelsea", "")
	assert.Error(t, err)
}

func TestServerErrorFallsBackToDefaults(t *testing.T) {
	c := newTestClient(t, &fakeAPI{status: http.StatusInternalServerError})

	raw, err := c.FetchMatchData(context.Background(), "Arsenal", "Chelsea", "Serie A")
	require.NoError(t, err)
	assert.Equal(t, DefaultTeamStats(), raw.HomeStats)
	assert.Equal(t, DefaultHeadToHead(), raw.HeadToHead)
}

/////////////////////////////////////////////////////////////////////////
////// Team news
/////////////////////////////////////////////////////////////////////////

const teamNewsHTML = `<html><body>
<ul class="injuries"><li class="key-player">Bukayo Saka</li><li>Ben White</li><li> </li></ul>
<ul class="suspensions"><li data-key="true">Declan Rice</li></ul>
</body></html>`

func TestParseTeamNews(t *testing.T) {
	avail, err := ParseTeamNews("Arsenal", []byte(teamNewsHTML))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bukayo Saka", "Ben White"}, avail.Injuries)
	assert.Equal(t, []string{"Declan Rice"}, avail.Suspensions)
	assert.Equal(t, 2, avail.KeyPlayersMissing)
	assert.Equal(t, 1.0, avail.Squad())
}

func TestTeamNewsThroughClient(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		if r.URL.Path == "/news/broken-fc" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(teamNewsHTML))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, nil, nil, nil)
	c.news = &TeamNews{URLTemplate: srv.URL + "/news/{team}", Fetcher: &HTTPPageFetcher{Client: c.http}}

	avail := c.GetPlayerAvailability(context.Background(), "Manchester City")
	assert.Equal(t, "/news/manchester-city", path.Load())
	assert.Len(t, avail.Injuries, 2)

	assert.Equal(t, DefaultAvailability("Broken FC"), c.GetPlayerAvailability(context.Background(), "Broken FC"))
}

// countingFetcher serves teamNewsHTML, or fails when err is set
type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(teamNewsHTML), nil
}

func TestTeamNewsIsCached(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	fetcher := &countingFetcher{}
	c.news = &TeamNews{URLTemplate: "http://news.example/{team}", Fetcher: fetcher}

	first := c.GetPlayerAvailability(context.Background(), "Arsenal")
	second := c.GetPlayerAvailability(context.Background(), "Arsenal")
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, first, second)
	assert.Len(t, second.Injuries, 2)
	assert.Equal(t, 1, c.cache.Len())

	c.GetPlayerAvailability(context.Background(), "Chelsea")
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestTeamNewsFailureIsNotCached(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	fetcher := &countingFetcher{err: errors.New("connection reset")}
	c.news = &TeamNews{URLTemplate: "http://news.example/{team}", Fetcher: fetcher}

	assert.Equal(t, DefaultAvailability("Arsenal"), c.GetPlayerAvailability(context.Background(), "Arsenal"))
	assert.Equal(t, DefaultAvailability("Arsenal"), c.GetPlayerAvailability(context.Background(), "Arsenal"))
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, 0, c.cache.Len())
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("arsenal", "arsenal"))
	assert.Equal(t, 1, levenshteinDistance("arsnal", "arsenal"))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 5, levenshteinDistance("", "spurs"))
	assert.Equal(t, 1, levenshteinDistance("atlético madrid", "atletico madrid"))
	assert.Equal(t, 1, levenshteinDistance("bayern münchen", "bayern munchen"))
	assert.Equal(t, 2, levenshteinDistance("", "ßü"))
}

func TestClosestTeam(t *testing.T) {
	names := []string{"Arsenal FC", "Chelsea FC", "FC Barcelona"}
	assert.Equal(t, 0, closestTeam("Arsnal", names))
	assert.Equal(t, 1, closestTeam("Chelsae FC", names))
	assert.Equal(t, 2, closestTeam("Barcelonna", names))
	assert.Equal(t, -1, closestTeam("Everton", names))
	assert.Equal(t, -1, closestTeam("Ajx", names), "short names never fuzzy match")

	accented := []string{"Club Atlético de Madrid", "FC Bayern München", "Málaga CF"}
	assert.Equal(t, 0, closestTeam("Club Atletico de Madri", accented), "one accent and one typo")
	assert.Equal(t, 1, closestTeam("Bayern Munchen", accented))
	assert.Equal(t, 2, closestTeam("Malaga CF", accented))
}

func TestGetTeamStatsToleratesTypos(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	stats := c.GetTeamStats(context.Background(), "Arsnal", "Premier League")
	assert.Equal(t, 6, stats.Wins)
	assert.Equal(t, "Arsnal", stats.TeamName)
}
