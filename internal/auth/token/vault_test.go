package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeVault serves KV v2 reads for the given secrets, keyed by path below
// the mount.
func newFakeVault(t *testing.T, secrets map[string]map[string]interface{}) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/v1/sys/health" {
			_, _ = w.Write([]byte(`{"initialized":true,"sealed":false,"standby":false,"version":"1.15.0"}`))
			return
		}

		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}

		const prefix = "/v1/secret/data/"
		if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, prefix) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}

		data, ok := secrets[strings.TrimPrefix(r.URL.Path, prefix)]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data":     data,
				"metadata": nil,
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultStore_Lookup(t *testing.T) {
	t.Parallel()

	srv := newFakeVault(t, map[string]map[string]interface{}{
		DefaultVaultPath + "/" + HashToken("goodtoken"): {
			"principal": "reader-1",
			"scope":     []string{"reader"},
		},
		DefaultVaultPath + "/" + HashToken("revoked"): {
			"principal": "old",
			"revoked":   true,
		},
	})

	s, err := NewVaultStore(VaultOptions{Address: srv.URL, Token: "test-token"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "vault", s.Name())

	rec, err := s.Lookup(context.Background(), "goodtoken")
	require.NoError(t, err)
	assert.Equal(t, "reader-1", rec.Principal)
	assert.Equal(t, []string{"reader"}, rec.Scope)

	rec, err = s.Lookup(context.Background(), "revoked")
	require.NoError(t, err)
	assert.True(t, rec.Revoked)

	_, err = s.Lookup(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVaultStore_PermissionDenied(t *testing.T) {
	t.Parallel()

	srv := newFakeVault(t, nil)

	s, err := NewVaultStore(VaultOptions{Address: srv.URL, Token: "wrong"}, nil)
	require.NoError(t, err)

	_, err = s.Lookup(context.Background(), "goodtoken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewVaultStore_RequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := NewVaultStore(VaultOptions{}, nil)
	assert.Error(t, err)
}

func TestVaultStore_Ping(t *testing.T) {
	t.Parallel()

	srv := newFakeVault(t, nil)
	s, err := NewVaultStore(VaultOptions{Address: srv.URL, Token: "test-token"}, nil)
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))

	sealed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"initialized":true,"sealed":true,"standby":false}`))
	}))
	t.Cleanup(sealed.Close)

	s, err = NewVaultStore(VaultOptions{Address: sealed.URL, Token: "test-token"}, nil)
	require.NoError(t, err)
	assert.EqualError(t, s.Ping(context.Background()), "vault is sealed")
}
