// Package secrets provides SecretManagerAdapter backends for the VNPay hash secret.
package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevin07696/order-payment-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// Backend names accepted by New
const (
	BackendLocal = "local"
	BackendAWS   = "aws"
	BackendVault = "vault"
)

// Options selects and configures a backend
type Options struct {
	Backend   string
	LocalPath string
	AWS       *AWSSecretsManagerConfig
	Vault     *VaultConfig
}

// New builds the configured secret manager
func New(ctx context.Context, opts Options, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendLocal:
		return NewLocalSecretManager(opts.LocalPath, logger), nil
	case BackendAWS:
		if opts.AWS == nil {
			return nil, fmt.Errorf("aws secrets backend requires configuration")
		}
		return NewAWSSecretsManagerAdapter(ctx, opts.AWS, logger)
	case BackendVault:
		if opts.Vault == nil {
			return nil, fmt.Errorf("vault secrets backend requires configuration")
		}
		return NewVaultAdapter(ctx, opts.Vault, logger)
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", opts.Backend)
	}
}
