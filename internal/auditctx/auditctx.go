package auditctx

import "context"

// Actor describes who initiated a request, as resolved by the auth
// middleware. Subject is the token subject; the transport fields exist for
// audit trails only.
type Actor struct {
	Subject   string
	IPAddress string
	UserAgent string
}

type actorContextKey struct{}

// WithActor derives a context carrying actor metadata for the service layer.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts actor metadata stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
