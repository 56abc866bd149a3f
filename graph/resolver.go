package graph

import (
	"errors"
	"time"

	"github.com/lowmess/vitals/statistics"
	"github.com/lowmess/vitals/timewindow"
	"github.com/lowmess/vitals/upstream"
	"github.com/lowmess/vitals/upstream/fitbit"
	"github.com/lowmess/vitals/upstream/github"
	"github.com/lowmess/vitals/upstream/goodreads"
	"github.com/lowmess/vitals/upstream/lastfm"

	"github.com/graphql-go/graphql"
	plog "github.com/phuslu/log"
)

// FieldNames lists every field tracked by the statistics registry.
var FieldNames = []string{
	"commits", "steps", "songs", "album", "book", "sleep",
}

// Resolver holds the upstream clients and fixed identity shared by
// all field resolvers. Credentials are not stored here; they arrive
// per request through the request context.
type Resolver struct {
	GitHub    *github.Client
	FitBit    *fitbit.Client
	LastFM    *lastfm.Client
	Goodreads *goodreads.Client

	LastFMUser     string
	GoodreadsShelf string

	// Now is injectable for deterministic time windows in tests.
	Now func() time.Time

	Stats *statistics.Registry
	Log   plog.Logger
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Commits resolves the number of commits authored by the configured
// identity over the trailing 30 days.
func (r *Resolver) Commits(p graphql.ResolveParams) (interface{}, error) {
	rc, ok := GetRequestContext(p.Context)
	if !ok {
		return nil, nil
	}
	start := time.Now()
	w := timewindow.Trailing30(r.now())

	count, err := r.GitHub.CountCommits(
		p.Context, rc.Secrets.GitHubKey, rc.Secrets.GitHubName, w.Start,
	)
	if err != nil {
		r.degrade("commits", start, err)
		return nil, nil
	}
	r.resolved("commits", start)
	return count, nil
}

// Steps resolves the total step count over the trailing 30 days.
func (r *Resolver) Steps(p graphql.ResolveParams) (interface{}, error) {
	rc, ok := GetRequestContext(p.Context)
	if !ok {
		return nil, nil
	}
	start := time.Now()

	total, err := r.FitBit.Steps(rc.Secrets.FitBitKey)
	if err != nil {
		r.degrade("steps", start, err)
		return nil, nil
	}
	r.resolved("steps", start)
	return total, nil
}

// Songs resolves the number of distinct songs played over the
// trailing month.
func (r *Resolver) Songs(p graphql.ResolveParams) (interface{}, error) {
	rc, ok := GetRequestContext(p.Context)
	if !ok {
		return nil, nil
	}
	start := time.Now()

	total, err := r.LastFM.TopTracksTotal(rc.Secrets.LastFMKey, r.LastFMUser)
	if err != nil {
		r.degrade("songs", start, err)
		return nil, nil
	}
	r.resolved("songs", start)
	return total, nil
}

// Album resolves the most played album of the trailing month. Any
// failure, and an empty report, produce the all-null album.
func (r *Resolver) Album(p graphql.ResolveParams) (interface{}, error) {
	nullAlbum := map[string]interface{}{"name": nil, "artist": nil}

	rc, ok := GetRequestContext(p.Context)
	if !ok {
		return nullAlbum, nil
	}
	start := time.Now()

	album, err := r.LastFM.TopAlbum(rc.Secrets.LastFMKey, r.LastFMUser)
	if err != nil {
		r.degrade("album", start, err)
		return nullAlbum, nil
	}
	r.resolved("album", start)
	if album == nil {
		return nullAlbum, nil
	}
	return map[string]interface{}{
		"name":   album.Name,
		"artist": album.Artist,
	}, nil
}

// Book resolves the first book of the configured Goodreads shelf.
func (r *Resolver) Book(p graphql.ResolveParams) (interface{}, error) {
	nullBook := map[string]interface{}{"name": nil, "author": nil}

	rc, ok := GetRequestContext(p.Context)
	if !ok {
		return nullBook, nil
	}
	start := time.Now()

	book, err := r.Goodreads.CurrentBook(
		rc.Secrets.GoodreadsKey, rc.Secrets.GoodreadsID, r.GoodreadsShelf,
	)
	if err != nil {
		r.degrade("book", start, err)
		return nullBook, nil
	}
	r.resolved("book", start)
	if book == nil {
		return nullBook, nil
	}
	return map[string]interface{}{
		"name":   book.Title,
		"author": book.Author,
	}, nil
}

// Sleep resolves the hours slept over the trailing 30 days. It is
// not bound into the exposed schema. Unlike every other resolver its
// errors propagate to the client as field errors; in particular a
// sleep report without a sleep object raises MissingSleepDataError.
func (r *Resolver) Sleep(p graphql.ResolveParams) (interface{}, error) {
	rc, ok := GetRequestContext(p.Context)
	if !ok {
		return nil, nil
	}
	start := time.Now()
	w := timewindow.Trailing30(r.now())

	hours, err := r.FitBit.Sleep(rc.Secrets.FitBitKey, w)
	if err != nil {
		r.failed("sleep", start, err)
		return nil, err
	}
	r.resolved("sleep", start)
	return hours, nil
}

func (r *Resolver) resolved(field string, start time.Time) {
	if s := r.Stats.Field(field); s != nil {
		s.Update(time.Since(start), statistics.Resolved)
	}
}

func (r *Resolver) degrade(field string, start time.Time, err error) {
	r.Log.Warn().
		Str("field", field).
		Str("kind", errorKind(err)).
		Err(err).
		Msg("degrading field to null")
	if s := r.Stats.Field(field); s != nil {
		s.Update(time.Since(start), statistics.Degraded)
	}
}

func (r *Resolver) failed(field string, start time.Time, err error) {
	r.Log.Error().
		Str("field", field).
		Str("kind", errorKind(err)).
		Err(err).
		Msg("field error")
	if s := r.Stats.Field(field); s != nil {
		s.Update(time.Since(start), statistics.Failed)
	}
}

func errorKind(err error) string {
	var transportErr *upstream.TransportError
	var shapeErr *upstream.UnexpectedShapeError
	switch {
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &shapeErr):
		return "unexpected shape"
	case errors.Is(err, fitbit.MissingSleepDataError{}):
		return "missing sleep data"
	}
	return "unknown"
}
