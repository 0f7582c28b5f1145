package token

import "context"

type credentialKey struct{}

// WithCredential stores the raw bearer credential so downstream service
// calls made on the caller's behalf can forward it.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

func CredentialFromContext(ctx context.Context) (string, bool) {
	credential, ok := ctx.Value(credentialKey{}).(string)
	return credential, ok
}
