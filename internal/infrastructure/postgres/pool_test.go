package postgres

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Franquicias-api/pkg/config"
)

type fakeLookuper struct {
	ips   map[string][]net.IP
	calls int
}

func (f *fakeLookuper) LookupIP(_ context.Context, _, host string) ([]net.IP, error) {
	f.calls++
	ips, ok := f.ips[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return ips, nil
}

func testDBConfig() config.DBConfig {
	return config.DBConfig{
		Host: "db.interno", Port: 5432, User: "app", Password: "secreto", DBName: "franquicias", SSLMode: "disable",
		MaxConns: 12, MinConns: 3, MaxConnLifetime: 2 * time.Hour, MaxConnIdleTime: 10 * time.Minute,
	}
}

func TestBuildPoolConfig_LimitesDesdeConfig(t *testing.T) {
	lookup := &fakeLookuper{}
	pc, err := buildPoolConfig(context.Background(), testDBConfig(), &ipv4Resolver{primary: lookup})

	require.NoError(t, err)
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, 2*time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, 10*time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, "db.interno", pc.ConnConfig.Host, "sin DB_FORCE_IPV4 el host no se toca")
	assert.Nil(t, pc.ConnConfig.DialFunc)
	assert.Zero(t, lookup.calls)
	assert.NotNil(t, pc.AfterConnect)
}

func TestBuildPoolConfig_ForzarIPv4(t *testing.T) {
	cfg := testDBConfig()
	cfg.ForceIPv4 = true
	lookup := &fakeLookuper{ips: map[string][]net.IP{"db.interno": {net.ParseIP("10.0.0.7")}}}

	pc, err := buildPoolConfig(context.Background(), cfg, &ipv4Resolver{primary: lookup})

	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5432), pc.ConnConfig.Port)
	assert.Equal(t, "secreto", pc.ConnConfig.Password)
	assert.NotNil(t, pc.ConnConfig.DialFunc)
}

func TestRewriteDSN(t *testing.T) {
	primary := &fakeLookuper{ips: map[string][]net.IP{
		"db.supabase.co": {net.ParseIP("2600::1"), net.ParseIP("3.3.3.3")},
	}}
	fallback := &fakeLookuper{ips: map[string][]net.IP{"solo-externo": {net.ParseIP("8.8.4.4")}}}
	ctx := context.Background()

	withoutFallback := &ipv4Resolver{primary: primary}
	withFallback := &ipv4Resolver{primary: primary, fallback: fallback}

	cases := []struct {
		name string
		r    *ipv4Resolver
		dsn  string
		want string
	}{
		{"reemplaza host y conserva puerto", withoutFallback,
			"postgresql://u:p@db.supabase.co:6543/postgres?sslmode=require",
			"postgresql://u:p@3.3.3.3:6543/postgres?sslmode=require"},
		{"puerto por defecto", withoutFallback,
			"postgres://u:p@db.supabase.co/postgres",
			"postgres://u:p@3.3.3.3:5432/postgres"},
		{"IPv4 literal", withoutFallback,
			"postgres://u:p@127.0.0.1:5432/x",
			"postgres://u:p@127.0.0.1:5432/x"},
		{"IPv6 literal queda igual", withoutFallback,
			"postgres://u:p@[::1]:5432/x",
			"postgres://u:p@[::1]:5432/x"},
		{"sin resolver queda igual", withoutFallback,
			"postgres://u:p@solo-externo:5432/x",
			"postgres://u:p@solo-externo:5432/x"},
		{"DNS alterno configurado", withFallback,
			"postgres://u:p@solo-externo:5432/x",
			"postgres://u:p@8.8.4.4:5432/x"},
		{"DSN clave=valor no se reescribe", withoutFallback,
			"host=db.supabase.co port=5432",
			"host=db.supabase.co port=5432"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.r.rewriteDSN(ctx, tc.dsn))
		})
	}
}

func TestResolve_SinFallbackNoConsultaOtroDNS(t *testing.T) {
	fallback := &fakeLookuper{ips: map[string][]net.IP{"db": {net.ParseIP("9.9.9.9")}}}
	r := &ipv4Resolver{primary: &fakeLookuper{}}

	_, err := r.resolve(context.Background(), "db")

	assert.Error(t, err)
	assert.Zero(t, fallback.calls)
	assert.Nil(t, newIPv4Resolver("").fallback, "el DNS alterno es opcional")
	assert.NotNil(t, newIPv4Resolver("1.1.1.1:53").fallback)
}
