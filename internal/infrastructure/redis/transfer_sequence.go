package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
	"github.com/jhoicas/Franquicias-api/pkg/config"
)

const (
	sequencePrefix = "transfer_seq"
	// el contador de un día se conserva dos días para cubrir desfases de zona horaria
	sequenceTTL = 48 * time.Hour
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
}

var _ repository.TransferSequence = (*TransferSequence)(nil)

// TransferSequence consecutivo diario de transferencias con INCR atómico.
type TransferSequence struct {
	store     cmdable
	raw       *redis.Client
	namespace string
}

// New conecta con Redis y verifica la conexión.
func New(ctx context.Context, cfg config.RedisConfig) (*TransferSequence, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &TransferSequence{store: raw, raw: raw, namespace: cfg.Prefix}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Addr == "" {
		return nil, errors.New("redis url or address is required")
	}
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
		return opts, nil
	}
	return &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, nil
}

// Next incrementa el contador del día (UTC) y fija su TTL en el primer incremento.
func (s *TransferSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	if s.store == nil {
		return 0, errors.New("redis client not initialized")
	}
	key := s.key(day)
	n, err := s.store.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		if err := s.store.Expire(ctx, key, sequenceTTL).Err(); err != nil {
			return n, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return n, nil
}

// Ping health-check.
func (s *TransferSequence) Ping(ctx context.Context) error {
	return s.store.Ping(ctx).Err()
}

// Close cierra la conexión subyacente.
func (s *TransferSequence) Close() error {
	if s.raw == nil {
		return nil
	}
	return s.raw.Close()
}

func (s *TransferSequence) key(day time.Time) string {
	parts := []string{s.namespace, sequencePrefix, day.UTC().Format("20060102")}
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, ":")
}
