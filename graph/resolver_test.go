package graph_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lowmess/vitals/graph"
	"github.com/lowmess/vitals/statistics"
	"github.com/lowmess/vitals/upstream"
	"github.com/lowmess/vitals/upstream/fitbit"
	"github.com/lowmess/vitals/upstream/github"
	"github.com/lowmess/vitals/upstream/goodreads"
	"github.com/lowmess/vitals/upstream/lastfm"

	"github.com/graphql-go/graphql"
	plog "github.com/phuslu/log"
	"github.com/stretchr/testify/require"
)

var testSecrets = graph.Secrets{
	GitHubKey:    "gh-key",
	GitHubName:   "Alec Lomas",
	FitBitKey:    "fb-key",
	LastFMKey:    "lfm-key",
	GoodreadsID:  "4261935",
	GoodreadsKey: "gr-key",
}

func discardLog() plog.Logger {
	return plog.Logger{
		Level:  plog.ErrorLevel,
		Writer: &plog.IOWriter{Writer: noopWriter{}},
	}
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func stub(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts.URL
}

// unreachable is an endpoint no upstream listens on.
const unreachable = "http://127.0.0.1:1"

func newResolver(githubURL, fitbitURL, lastfmURL, goodreadsURL string) *graph.Resolver {
	httpClient := upstream.NewClient(nil, time.Second)
	return &graph.Resolver{
		GitHub:         github.NewClient(githubURL, time.Second),
		FitBit:         fitbit.NewClient(httpClient, fitbitURL),
		LastFM:         lastfm.NewClient(httpClient, lastfmURL),
		Goodreads:      goodreads.NewClient(httpClient, goodreadsURL),
		LastFMUser:     "lowmess",
		GoodreadsShelf: "currently-reading",
		Now: func() time.Time {
			return time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)
		},
		Stats: statistics.NewRegistry(graph.FieldNames...),
		Log:   discardLog(),
	}
}

func requestCtx() context.Context {
	return graph.WithRequestContext(
		context.Background(),
		graph.NewRequestContext(
			map[string]string{"user-agent": "test"}, testSecrets,
		),
	)
}

func execute(t *testing.T, r *graph.Resolver, query string) *graphql.Result {
	t.Helper()
	schema, err := graph.NewSchema(r)
	require.NoError(t, err)
	return graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       requestCtx(),
	})
}

const fullQuery = `{
	commits
	steps
	songs
	album { name artist }
	book { name author }
}`

func TestQueryAllFields(t *testing.T) {
	githubURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"viewer": {
			"repositories": {"nodes": [
				{"ref": {"target": {"history": {"edges": [
					{"node": {"author": {"name": "Alec Lomas"}}},
					{"node": {"author": {"name": "Alec Lomas"}}}
				]}}}},
				{"ref": null}
			]},
			"repositoriesContributedTo": {"nodes": []}
		}}}`))
	})
	fitbitURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activities-steps": [
			{"value": "100"}, {"value": "250"}
		]}`))
	})
	lastfmURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "user.gettoptracks":
			_, _ = w.Write([]byte(
				`{"toptracks": {"@attr": {"total": "143"}}}`,
			))
		default:
			_, _ = w.Write([]byte(`{"topalbums": {"album": [
				{"name": "X", "artist": {"name": "Y"}}
			]}}`))
		}
	})
	goodreadsURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<GoodreadsResponse><reviews>
			<review><book>
				<title>The Dispossessed</title>
				<authors><author><name>Ursula K. Le Guin</name></author></authors>
			</book></review>
		</reviews></GoodreadsResponse>`))
	})

	r := newResolver(githubURL, fitbitURL, lastfmURL, goodreadsURL)
	result := execute(t, r, fullQuery)
	require.Empty(t, result.Errors)
	require.Equal(t, map[string]interface{}{
		"commits": 2,
		"steps":   350,
		"songs":   143,
		"album": map[string]interface{}{
			"name":   "X",
			"artist": "Y",
		},
		"book": map[string]interface{}{
			"name":   "The Dispossessed",
			"author": "Ursula K. Le Guin",
		},
	}, result.Data)

	require.Equal(t, int64(1), r.Stats.Field("commits").GetResolved())
	require.Equal(t, int64(1), r.Stats.Field("book").GetResolved())
	require.Zero(t, r.Stats.Field("commits").GetDegraded())
}

// One upstream outage nulls its field without failing the query.
func TestQueryAllUpstreamsDown(t *testing.T) {
	r := newResolver(unreachable, unreachable, unreachable, unreachable)
	result := execute(t, r, fullQuery)
	require.Empty(t, result.Errors)
	require.Equal(t, map[string]interface{}{
		"commits": nil,
		"steps":   nil,
		"songs":   nil,
		"album": map[string]interface{}{
			"name":   nil,
			"artist": nil,
		},
		"book": map[string]interface{}{
			"name":   nil,
			"author": nil,
		},
	}, result.Data)

	for _, field := range []string{"commits", "steps", "songs", "album", "book"} {
		require.Equal(
			t, int64(1), r.Stats.Field(field).GetDegraded(),
			"field %q", field,
		)
	}
}

func TestQueryUnexpectedShapes(t *testing.T) {
	empty := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}
	githubURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			`{"data": null, "errors": [{"message": "Bad credentials"}]}`,
		))
	})
	fitbitURL := stub(t, empty)
	lastfmURL := stub(t, empty)
	goodreadsURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<error>nope</error>`))
	})

	r := newResolver(githubURL, fitbitURL, lastfmURL, goodreadsURL)
	result := execute(t, r, fullQuery)
	require.Empty(t, result.Errors)
	require.Equal(t, map[string]interface{}{
		"commits": nil,
		"steps":   nil,
		"songs":   nil,
		"album": map[string]interface{}{
			"name":   nil,
			"artist": nil,
		},
		"book": map[string]interface{}{
			"name":   nil,
			"author": nil,
		},
	}, result.Data)
}

func TestAlbumEmptyReport(t *testing.T) {
	lastfmURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"topalbums": {"album": []}}`))
	})

	r := newResolver(unreachable, unreachable, lastfmURL, unreachable)
	result := execute(t, r, `{ album { name artist } }`)
	require.Empty(t, result.Errors)
	require.Equal(t, map[string]interface{}{
		"album": map[string]interface{}{
			"name":   nil,
			"artist": nil,
		},
	}, result.Data)
	require.Equal(t, int64(1), r.Stats.Field("album").GetResolved())
}

func TestBookEmptyShelf(t *testing.T) {
	goodreadsURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			`<GoodreadsResponse><reviews></reviews></GoodreadsResponse>`,
		))
	})

	r := newResolver(unreachable, unreachable, unreachable, goodreadsURL)
	result := execute(t, r, `{ book { name author } }`)
	require.Empty(t, result.Errors)
	require.Equal(t, map[string]interface{}{
		"book": map[string]interface{}{
			"name":   nil,
			"author": nil,
		},
	}, result.Data)
}

func TestSleep(t *testing.T) {
	fitbitURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sleep": [
			{"duration": 3600000}, {"duration": 1800000}
		]}`))
	})

	r := newResolver(unreachable, fitbitURL, unreachable, unreachable)
	hours, err := r.Sleep(graphql.ResolveParams{Context: requestCtx()})
	require.NoError(t, err)
	require.Equal(t, 1.5, hours)
}

// Sleep is the single resolver that surfaces its error instead of
// nulling the field. The asymmetry is deliberate, keep it.
func TestSleepErrorPropagates(t *testing.T) {
	fitbitURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	r := newResolver(unreachable, fitbitURL, unreachable, unreachable)
	_, err := r.Sleep(graphql.ResolveParams{Context: requestCtx()})
	require.ErrorIs(t, err, fitbit.MissingSleepDataError{})
	require.Equal(t, int64(1), r.Stats.Field("sleep").GetFailed())
}

func TestMinCacheAge(t *testing.T) {
	require.Equal(t, 3600, graph.MinCacheAge([]string{"commits", "book"}))
	require.Equal(t, 86400, graph.MinCacheAge([]string{"book"}))
	require.Equal(t, 0, graph.MinCacheAge([]string{"unknown"}))
	require.Equal(t, 0, graph.MinCacheAge(nil))
}
