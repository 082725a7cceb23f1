package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"aisocial/internal/infra"
	"aisocial/internal/sqlinline"
)

const (
	// ProviderGeneration holds the bearer key for the remote workflow function.
	ProviderGeneration = "generation"
)

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GenerationAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGeneration)
}

// Token returns an empty string when no key has been stored for provider.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGenerationAPIKey(ctx context.Context, key string, props map[string]any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("generation api key is required")
	}
	return s.upsert(ctx, ProviderGeneration, key, props)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
