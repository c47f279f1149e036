package auditctx

import "context"

// Actor captures contextual information about the authenticated principal that initiated a
// request. Services copy it into the context of the audit entries they write.
type Actor struct {
	UserID    uint
	RequestID string
	IPAddress string
	UserAgent string
}

type actorContextKey struct{}

// WithActor injects actor metadata into the supplied context, returning a derived context that
// callers can pass down into service layers for audit logging.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		return context.WithValue(context.Background(), actorContextKey{}, actor)
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// Fields renders the request metadata as audit context fields, omitting empty values.
func (a Actor) Fields() map[string]any {
	out := make(map[string]any, 3)
	if a.RequestID != "" {
		out["request_id"] = a.RequestID
	}
	if a.IPAddress != "" {
		out["ip_address"] = a.IPAddress
	}
	if a.UserAgent != "" {
		out["user_agent"] = a.UserAgent
	}
	return out
}
