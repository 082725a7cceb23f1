package generation

import (
	"context"
	"strings"
)

// KeySource loads a stored API key, typically the integration credential store.
type KeySource interface {
	GenerationAPIKey(ctx context.Context) (string, error)
}

// ResolveAPIKey prefers the configured key and falls back to src. A lookup
// failure is returned alongside an empty key so callers can decide whether
// to continue without credentials.
func ResolveAPIKey(ctx context.Context, configured string, src KeySource) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	if src == nil {
		return "", nil
	}
	key, err := src.GenerationAPIKey(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(key), nil
}
