// Package server exposes the GraphQL facade over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"strconv"
	"strings"

	"github.com/lowmess/vitals/config"
	"github.com/lowmess/vitals/graph"
	"github.com/lowmess/vitals/statistics"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	plog "github.com/phuslu/log"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

const QueryPath = "/graphql"

// Server is the inbound GraphQL endpoint. It accepts one query per
// request, executes it against the schema and reports the advisory
// cache hint of the selected fields.
type Server struct {
	config  *config.Config
	server  *fasthttp.Server
	schema  graphql.Schema
	secrets graph.Secrets
	stats   *statistics.Registry
	log     plog.Logger
}

func New(
	conf *config.Config,
	schema graphql.Schema,
	secrets graph.Secrets,
	stats *statistics.Registry,
	log plog.Logger,
	tlsConfig *tls.Config,
) *Server {
	lFasthttp := log
	lFasthttp.Context = plog.NewContext(nil).
		Str("server-module", "fasthttp").Value()

	srv := &Server{
		config: conf,
		server: &fasthttp.Server{
			ReadTimeout:        conf.ReadTimeout,
			WriteTimeout:       conf.WriteTimeout,
			TLSConfig:          tlsConfig,
			Logger:             &lFasthttp,
			MaxRequestBodySize: conf.MaxReqBodySizeBytes,
		},
		schema:  schema,
		secrets: secrets,
		stats:   stats,
		log:     log,
	}
	srv.server.Handler = srv.handle
	return srv
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("recovered", r).Msg("handler panic")
			const c = fasthttp.StatusInternalServerError
			ctx.Error(fasthttp.StatusMessage(c), c)
		}
	}()

	l := s.log
	l.Context = plog.NewContext(nil).
		Str("request", uuid.NewString()).Value()

	l.Info().
		Bytes("path", ctx.Path()).
		Msg("handling request")

	if string(ctx.Method()) != fasthttp.MethodPost {
		const c = fasthttp.StatusMethodNotAllowed
		ctx.Error(fasthttp.StatusMessage(c), c)
		return
	}
	if string(ctx.Path()) != QueryPath {
		l.Debug().
			Bytes("path", ctx.Path()).
			Msg("endpoint not found")
		const c = fasthttp.StatusNotFound
		ctx.Error(fasthttp.StatusMessage(c), c)
		return
	}

	query, operationName, variables, ok := extractData(ctx)
	if !ok {
		return
	}

	rc := graph.NewRequestContext(lowercaseHeaders(ctx), s.secrets)
	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  query,
		OperationName:  operationName,
		VariableValues: variables,
		Context:        graph.WithRequestContext(context.Background(), rc),
	})

	if result.HasErrors() && result.Data == nil {
		// The query never executed: syntax or validation failure.
		l.Debug().
			Str("query", query).
			Msg("malformed query")
		ctx.Response.SetStatusCode(fasthttp.StatusBadRequest)
	} else {
		if maxAge := graph.MinCacheAge(selectedFields(result)); maxAge > 0 {
			ctx.Response.Header.Set(
				fasthttp.HeaderCacheControl,
				"public, max-age="+strconv.Itoa(maxAge),
			)
		}
	}

	ctx.Response.Header.SetContentType("application/json")
	body, err := json.Marshal(result)
	if err != nil {
		l.Error().Err(err).Msg("encoding response")
		const c = fasthttp.StatusInternalServerError
		ctx.Error(fasthttp.StatusMessage(c), c)
		return
	}
	ctx.Response.AppendBody(body)
}

// selectedFields returns the top-level field names the executed
// query produced, the input to the response's cache hint.
func selectedFields(result *graphql.Result) []string {
	data, ok := result.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(data))
	for name := range data {
		fields = append(fields, name)
	}
	return fields
}

func lowercaseHeaders(ctx *fasthttp.RequestCtx) map[string]string {
	headers := make(map[string]string)
	ctx.Request.Header.VisitAll(func(key, value []byte) {
		headers[strings.ToLower(string(key))] = string(value)
	})
	return headers
}

func extractData(ctx *fasthttp.RequestCtx) (
	query string,
	operationName string,
	variables map[string]interface{},
	ok bool,
) {
	b := ctx.Request.Body()
	if v := gjson.GetBytes(b, "query"); v.Raw != "" {
		query = v.String()
	} else {
		ctx.Error(fasthttp.StatusMessage(
			fasthttp.StatusBadRequest,
		), fasthttp.StatusBadRequest)
		return
	}
	if v := gjson.GetBytes(b, "operationName"); v.Raw != "" {
		operationName = v.String()
	}
	if v := gjson.GetBytes(b, "variables"); v.IsObject() {
		if err := json.Unmarshal([]byte(v.Raw), &variables); err != nil {
			ctx.Error(fasthttp.StatusMessage(
				fasthttp.StatusBadRequest,
			), fasthttp.StatusBadRequest)
			return
		}
	}
	ok = true
	return
}

func (s *Server) Serve(listener net.Listener) {
	s.log.Info().
		Str("host", s.config.Host).
		Bool("tls", s.config.TLS.CertFile != "").
		Msg("listening")

	var err error
	if s.config.TLS.CertFile != "" {
		if listener != nil {
			err = s.server.ServeTLS(
				listener,
				s.config.TLS.CertFile,
				s.config.TLS.KeyFile,
			)
		} else {
			err = s.server.ListenAndServeTLS(
				s.config.Host,
				s.config.TLS.CertFile,
				s.config.TLS.KeyFile,
			)
		}
	} else {
		if listener != nil {
			err = s.server.Serve(listener)
		} else {
			err = s.server.ListenAndServe(s.config.Host)
		}
	}
	if err != nil {
		s.log.Fatal().Err(err).Msg("listening")
	}
}

// Shutdown returns once the server was shutdown.
// Logs shutdown, errors and the per-field resolution counters.
func (s *Server) Shutdown() error {
	err := s.server.Shutdown()
	if err != nil {
		s.log.Error().Err(err).Msg("shutting down")
		return err
	}
	if s.stats != nil {
		s.stats.Each(func(name string, f *statistics.FieldSync) {
			s.log.Info().
				Str("field", name).
				Int64("resolved", f.GetResolved()).
				Int64("degraded", f.GetDegraded()).
				Int64("failed", f.GetFailed()).
				Msg("field statistics")
		})
	}
	s.log.Info().Msg("shutdown")
	return nil
}
