package graph

import "context"

// Secrets are the upstream credentials supplied at startup and
// exposed to resolvers through the request context, never through
// ambient process state.
type Secrets struct {
	GitHubKey    string
	GitHubName   string
	FitBitKey    string
	LastFMKey    string
	GoodreadsID  string
	GoodreadsKey string
}

// RequestContext is the per-request bag available to every resolver
// during one query's execution. It is read-only and discarded at
// request end.
type RequestContext struct {
	// Headers maps lowercased inbound header names to values.
	Headers map[string]string
	Secrets Secrets
}

type ctxKey struct{}

// NewRequestContext builds the request context from inbound headers
// and the secrets mapping. Header names are lowercased by the caller.
func NewRequestContext(
	headers map[string]string, secrets Secrets,
) RequestContext {
	return RequestContext{Headers: headers, Secrets: secrets}
}

func WithRequestContext(
	ctx context.Context, rc RequestContext,
) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

func GetRequestContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(ctxKey{}).(RequestContext)
	return rc, ok
}
