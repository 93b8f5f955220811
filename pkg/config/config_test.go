package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Env)
	assert.True(t, cfg.App.IsDev())
	assert.Equal(t, StorageDriverPostgres, cfg.App.StorageDriver)
	assert.Equal(t, "TRF", cfg.Transfer.NumberPrefix)
	assert.Equal(t, 200, cfg.Transfer.MaxItems)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "postgres://postgres:@localhost:5432/franquicias?sslmode=disable", cfg.DB.ConnectionString())
	assert.Equal(t, 10, cfg.DB.MaxConns)
	assert.Equal(t, 1, cfg.DB.MinConns)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLifetime)
	assert.False(t, cfg.DB.ForceIPv4, "la resolución IPv4 es opcional")
	assert.Empty(t, cfg.DB.FallbackDNS)
}

func TestFromViper_ValoresDesdeEntorno(t *testing.T) {
	v := viper.New()
	v.Set("STORAGE_DRIVER", "MEMORY")
	v.Set("KAFKA_ENABLED", "true")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("REDIS_ENABLED", "1")
	v.Set("REDIS_DB", "3")
	v.Set("TRANSFER_NUMBER_PREFIX", "FQ")
	v.Set("TRANSFER_MAX_ITEMS", "50")
	v.Set("DATABASE_URL", "postgres://u:p@db:5432/x")
	v.Set("DB_MAX_CONNS", "40")
	v.Set("DB_MIN_CONNS", "5")
	v.Set("DB_MAX_CONN_IDLE_MINUTES", "5")
	v.Set("DB_FORCE_IPV4", "true")
	v.Set("DB_FALLBACK_DNS", "1.1.1.1:53")

	cfg, err := fromViper(v)

	require.NoError(t, err)
	assert.Equal(t, StorageDriverMemory, cfg.App.StorageDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "FQ", cfg.Transfer.NumberPrefix)
	assert.Equal(t, 50, cfg.Transfer.MaxItems)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DB.ConnectionString())
	assert.Equal(t, 40, cfg.DB.MaxConns)
	assert.Equal(t, 5, cfg.DB.MinConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.MaxConnIdleTime)
	assert.True(t, cfg.DB.ForceIPv4)
	assert.Equal(t, "1.1.1.1:53", cfg.DB.FallbackDNS)
}

func TestFromViper_Errores(t *testing.T) {
	cases := map[string]map[string]string{
		"driver desconocido":   {"STORAGE_DRIVER": "mongo"},
		"kafka sin brokers":    {"KAFKA_ENABLED": "true", "KAFKA_BROKERS": " , "},
		"máximo de líneas < 1": {"TRANSFER_MAX_ITEMS": "0"},
		"pool sin conexiones":  {"DB_MAX_CONNS": "0"},
		"mínimo sobre máximo":  {"DB_MAX_CONNS": "4", "DB_MIN_CONNS": "8"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			for k, val := range env {
				v.Set(k, val)
			}
			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestDSN_EscapaCaracteresEspeciales(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "franquicias", SSLMode: "require"}

	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/franquicias?sslmode=require", c.DSN())
}
