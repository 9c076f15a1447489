package embedder

import (
	"context"
	"fmt"
	"os"
)

// KeyResolver returns the API key to use for one request.
// It is called on every upstream request, so rotated keys take effect immediately.
type KeyResolver func(ctx context.Context) (string, error)

// StaticKey resolves to a fixed key
func StaticKey(key string) KeyResolver {
	return func(context.Context) (string, error) {
		return key, nil
	}
}

// EnvKey resolves the key from an environment variable at call time
func EnvKey(name string) KeyResolver {
	return func(context.Context) (string, error) {
		return os.Getenv(name), nil
	}
}

type apiKeyContextKey struct{}

// WithAPIKey attaches a key to ctx. It takes precedence over the provider's resolver.
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey{}, key)
}

// resolveAPIKey picks the key from ctx, then from resolver
func resolveAPIKey(ctx context.Context, resolver KeyResolver) (string, error) {
	if key, ok := ctx.Value(apiKeyContextKey{}).(string); ok && key != "" {
		return key, nil
	}
	if resolver == nil {
		return "", fmt.Errorf("%w: no API key available", ErrAuthentication)
	}
	key, err := resolver(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: resolve API key: %v", ErrAuthentication, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: no API key available", ErrAuthentication)
	}
	return key, nil
}
