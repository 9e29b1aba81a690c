package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string // The secret value (e.g., the VNPay hash secret)
	Version   string // Secret version identifier
	CreatedAt string // When this version was created
}

// SecretManagerAdapter defines the port for reading secrets from a secret management service.
// Backends: local filesystem (development), AWS Secrets Manager, HashiCorp Vault.
// Implementations cache values for a short TTL.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - Local: file path relative to the base directory
	//   - AWS: "order-service/vnpay/hash-secret" or a full ARN
	//   - Vault: "order-service/vnpay" under the KV mount
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
