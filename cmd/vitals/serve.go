package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lowmess/vitals/cli"
	"github.com/lowmess/vitals/graph"
	"github.com/lowmess/vitals/server"
	"github.com/lowmess/vitals/statistics"
	"github.com/lowmess/vitals/upstream"
	"github.com/lowmess/vitals/upstream/fitbit"
	"github.com/lowmess/vitals/upstream/github"
	"github.com/lowmess/vitals/upstream/goodreads"
	"github.com/lowmess/vitals/upstream/lastfm"

	"github.com/dustin/go-humanize"
	"github.com/phuslu/log"
)

// serve turns the CLI process into a vitals server process.
func serve(w io.Writer, c cli.CommandServe) {
	conf := ReadConfig(w, c.ConfigPath)
	if conf == nil {
		return
	}

	l := log.Logger{
		Level:  log.InfoLevel,
		Writer: &log.IOWriter{Writer: w},
	}

	l.Info().
		Str("maxRequestBodySize",
			humanize.IBytes(uint64(conf.MaxReqBodySizeBytes))).
		Str("lastfmUser", conf.Identity.LastFMUser).
		Str("goodreadsShelf", conf.Identity.GoodreadsShelf).
		Msg("configuration")

	httpClient := upstream.NewClient(nil, conf.FetchTimeout)
	stats := statistics.NewRegistry(graph.FieldNames...)

	lResolver := l
	lResolver.Context = log.NewContext(nil).
		Str("module", "resolver").Value()

	resolver := &graph.Resolver{
		GitHub:         github.NewClient(conf.Upstreams.GitHub, conf.FetchTimeout),
		FitBit:         fitbit.NewClient(httpClient, conf.Upstreams.FitBit),
		LastFM:         lastfm.NewClient(httpClient, conf.Upstreams.LastFM),
		Goodreads:      goodreads.NewClient(httpClient, conf.Upstreams.Goodreads),
		LastFMUser:     conf.Identity.LastFMUser,
		GoodreadsShelf: conf.Identity.GoodreadsShelf,
		Stats:          stats,
		Log:            lResolver,
	}

	schema, err := graph.NewSchema(resolver)
	if err != nil {
		l.Fatal().Err(err).Msg("assembling schema")
		return
	}

	secrets := graph.Secrets{
		GitHubKey:    c.Secrets.GitHubKey,
		GitHubName:   c.Secrets.GitHubName,
		FitBitKey:    c.Secrets.FitBitKey,
		LastFMKey:    c.Secrets.LastFMKey,
		GoodreadsID:  c.Secrets.GoodreadsID,
		GoodreadsKey: c.Secrets.GoodreadsKey,
	}

	var s *server.Server
	{
		lServer := l
		lServer.Context = log.NewContext(nil).
			Str("module", "server").Value()
		s = server.New(conf, schema, secrets, stats, lServer, nil)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		_ = s.Shutdown()
	}()

	s.Serve(nil)
}
