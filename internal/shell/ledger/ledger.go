package ledger

import "context"

// =============================================================================
// Ledger Interface
// =============================================================================

// TxReceipt is the confirmation record of a mined transaction. Success
// means mined, not merely accepted into the node's queue.
type TxReceipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

// ExtensionAddresses are the auxiliary contract records linked to a project.
type ExtensionAddresses struct {
	Voting  string
	Storage string
}

// Map returns the addresses keyed by role.
func (a ExtensionAddresses) Map() map[string]string {
	return map[string]string{
		"voting":  a.Voting,
		"storage": a.Storage,
	}
}

// DeployExtensionRequest carries the inputs for deploying and linking the
// extension contracts of one project.
type DeployExtensionRequest struct {
	ProjectAddress string
	// ExtensionConfig is the serialized extension parameters recorded
	// on-chain alongside the contracts.
	ExtensionConfig string
	BundleHash      string
	Contributors    []string
	// Nonce deduplicates deploy requests on the contract side.
	Nonce uint64
}

// Ledger is the on-chain client consumed by the deployer. Implementations
// must be idempotency-aware (ErrAlreadyDeployed instead of double-spending)
// and must verify the signer is the owner before any state-changing call.
type Ledger interface {
	// SignerAddress returns the account this client signs with.
	SignerAddress() string

	// IsOwner reports whether the account owns the project contract.
	IsOwner(ctx context.Context, projectAddress, account string) (bool, error)

	// GetExtensionAddresses returns the linked extension contracts, or nil
	// when none are deployed yet.
	GetExtensionAddresses(ctx context.Context, projectAddress string) (*ExtensionAddresses, error)

	// UpdateContentHash records the bundle hash on the project contract.
	UpdateContentHash(ctx context.Context, projectAddress, hash string) (*TxReceipt, error)

	// DeployExtensionContracts deploys and links the extension records.
	// Atomic from the caller's perspective: all addresses or an error.
	// Returns ErrAlreadyDeployed (with the existing addresses) when the
	// project already has them.
	DeployExtensionContracts(ctx context.Context, req DeployExtensionRequest) (*ExtensionAddresses, error)
}
