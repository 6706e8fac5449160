package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/authgate/internal/observability"
)

// Vault store defaults.
const (
	DefaultVaultMount = "secret"
	DefaultVaultPath  = "authgate/tokens"
)

// VaultStore reads token records from a Vault KV v2 secrets engine. Each
// record is a secret at <path>/<sha256(token)>.
type VaultStore struct {
	client *vaultapi.Client
	kv     *vaultapi.KVv2
	path   string
	logger observability.Logger
}

// VaultOptions configures a VaultStore.
type VaultOptions struct {
	Address   string
	Token     string
	Namespace string
	Mount     string
	Path      string
	Timeout   time.Duration
}

// NewVaultStore creates a Vault client for the KV v2 mount.
func NewVaultStore(opts VaultOptions, logger observability.Logger) (*VaultStore, error) {
	if opts.Address == "" {
		return nil, errors.New("vault address is required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	if apiConfig.Error != nil {
		return nil, fmt.Errorf("vault config: %w", apiConfig.Error)
	}
	apiConfig.Address = opts.Address
	if opts.Timeout > 0 {
		apiConfig.Timeout = opts.Timeout
	}

	client, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if opts.Token != "" {
		client.SetToken(opts.Token)
	}
	if opts.Namespace != "" {
		client.SetNamespace(opts.Namespace)
	}

	mount := opts.Mount
	if mount == "" {
		mount = DefaultVaultMount
	}
	secretPath := opts.Path
	if secretPath == "" {
		secretPath = DefaultVaultPath
	}

	logger.Info("vault token store configured",
		observability.String("address", opts.Address),
		observability.String("mount", mount),
		observability.String("path", secretPath),
	)

	return &VaultStore{
		client: client,
		kv:     client.KVv2(mount),
		path:   secretPath,
		logger: logger,
	}, nil
}

// Lookup retrieves the record for a token.
func (s *VaultStore) Lookup(ctx context.Context, token string) (*Record, error) {
	secret, err := s.kv.Get(ctx, path.Join(s.path, HashToken(token)))
	if errors.Is(err, vaultapi.ErrSecretNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault read: %w", err)
	}
	// Deleted versions keep their metadata but carry no data.
	if secret == nil || secret.Data == nil {
		return nil, ErrNotFound
	}

	raw, err := json.Marshal(secret.Data)
	if err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}

	s.logger.Debug("token record read from vault",
		observability.String("path", s.path),
	)
	return &rec, nil
}

// Ping checks that Vault is initialized and unsealed.
func (s *VaultStore) Ping(ctx context.Context) error {
	resp, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health: %w", err)
	}
	switch {
	case !resp.Initialized:
		return errors.New("vault is not initialized")
	case resp.Sealed:
		return errors.New("vault is sealed")
	}
	return nil
}

// Name returns "vault".
func (s *VaultStore) Name() string {
	return "vault"
}

var (
	_ Store  = (*VaultStore)(nil)
	_ Pinger = (*VaultStore)(nil)
)
