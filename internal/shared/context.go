package shared

import "context"

type sessionCtxKey struct{}

// ContextWithSession attaches the request session to the context so the
// commit middleware and handlers see the same instance.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

// SessionFromContext returns the request session, nil when none was loaded.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return sess
}
