package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// =============================================================================
// Project Contract ABI
// =============================================================================

// projectABI is the interface of the project base contract this client
// consumes. deployExtension emits no return values; the linked addresses
// are read back via getExtensionAddresses once the transaction is mined.
const projectABI = `[
	{"type":"function","name":"updateContentHash","stateMutability":"nonpayable",
	 "inputs":[{"name":"hash","type":"string"}],"outputs":[]},
	{"type":"function","name":"deployExtension","stateMutability":"nonpayable",
	 "inputs":[{"name":"config","type":"string"},{"name":"bundleHash","type":"string"},
	           {"name":"contributors","type":"address[]"},{"name":"nonce","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"getExtensionAddresses","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"voting","type":"address"},{"name":"storageRecord","type":"address"}]},
	{"type":"function","name":"isOwner","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

// =============================================================================
// Eth Client
// =============================================================================

// rpcBackend is the subset of ethclient.Client the eth ledger uses,
// extracted so tests can substitute a fake node.
type rpcBackend interface {
	bind.DeployBackend
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EthClient implements Ledger against an EVM node.
type EthClient struct {
	backend        rpcBackend
	parsedABI      abi.ABI
	key            *ecdsa.PrivateKey
	signer         common.Address
	chainID        *big.Int
	confirmTimeout time.Duration
	logger         *slog.Logger
}

// Config holds ledger client configuration.
type Config struct {
	// RPCURL is the EVM node endpoint, e.g. "http://127.0.0.1:8545".
	RPCURL string
	// PrivateKeyHex is the signing key of the deploying identity.
	PrivateKeyHex string
	// ChainID of the target network.
	ChainID int64
	// ConfirmTimeout bounds the wait for a transaction to be mined.
	ConfirmTimeout time.Duration
}

// NewEthClient connects to the node and prepares the signing identity.
func NewEthClient(cfg Config, logger *slog.Logger) (*EthClient, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, NewLedgerError("NewEthClient", "", "failed to connect to node", ErrNetwork)
	}

	return newEthClient(client, cfg, logger)
}

func newEthClient(backend rpcBackend, cfg Config, logger *slog.Logger) (*EthClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, NewLedgerError("NewEthClient", "", "invalid private key", err)
	}

	parsed, err := abi.JSON(strings.NewReader(projectABI))
	if err != nil {
		return nil, NewLedgerError("NewEthClient", "", "invalid contract ABI", err)
	}

	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout == 0 {
		confirmTimeout = 2 * time.Minute
	}

	return &EthClient{
		backend:        backend,
		parsedABI:      parsed,
		key:            key,
		signer:         crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(cfg.ChainID),
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}, nil
}

// SignerAddress returns the account this client signs with.
func (c *EthClient) SignerAddress() string {
	return c.signer.Hex()
}

// =============================================================================
// Read-Only Calls
// =============================================================================

// IsOwner reports whether the account owns the project contract.
func (c *EthClient) IsOwner(ctx context.Context, projectAddress, account string) (bool, error) {
	out, err := c.call(ctx, projectAddress, "isOwner", common.HexToAddress(account))
	if err != nil {
		return false, NewLedgerError("IsOwner", projectAddress, err.Error(), categorize(err))
	}
	if len(out) != 1 {
		return false, NewLedgerError("IsOwner", projectAddress, "unexpected return arity", ErrNetwork)
	}
	owner, ok := out[0].(bool)
	if !ok {
		return false, NewLedgerError("IsOwner", projectAddress, "unexpected return type", ErrNetwork)
	}
	return owner, nil
}

// GetExtensionAddresses returns the linked extension contracts, or nil when
// none are deployed yet.
func (c *EthClient) GetExtensionAddresses(ctx context.Context, projectAddress string) (*ExtensionAddresses, error) {
	out, err := c.call(ctx, projectAddress, "getExtensionAddresses")
	if err != nil {
		return nil, NewLedgerError("GetExtensionAddresses", projectAddress, err.Error(), categorize(err))
	}
	if len(out) != 2 {
		return nil, NewLedgerError("GetExtensionAddresses", projectAddress, "unexpected return arity", ErrNetwork)
	}
	voting, okV := out[0].(common.Address)
	storageRecord, okS := out[1].(common.Address)
	if !okV || !okS {
		return nil, NewLedgerError("GetExtensionAddresses", projectAddress, "unexpected return type", ErrNetwork)
	}

	zero := common.Address{}
	if voting == zero && storageRecord == zero {
		return nil, nil
	}
	return &ExtensionAddresses{Voting: voting.Hex(), Storage: storageRecord.Hex()}, nil
}

// =============================================================================
// State-Changing Calls
// =============================================================================

// UpdateContentHash records the bundle hash on the project contract.
// Success requires the transaction to be mined without revert.
func (c *EthClient) UpdateContentHash(ctx context.Context, projectAddress, hash string) (*TxReceipt, error) {
	if err := c.guardOwner(ctx, "UpdateContentHash", projectAddress); err != nil {
		return nil, err
	}

	data, err := c.parsedABI.Pack("updateContentHash", hash)
	if err != nil {
		return nil, NewLedgerError("UpdateContentHash", projectAddress, "encode call", err)
	}

	receipt, err := c.sendAndWait(ctx, projectAddress, data)
	if err != nil {
		return nil, NewLedgerError("UpdateContentHash", projectAddress, err.Error(), categorize(err))
	}

	c.logger.Info("content hash recorded on ledger",
		"project_address", projectAddress,
		"tx_hash", receipt.TxHash,
		"gas_used", receipt.GasUsed,
	)
	return receipt, nil
}

// DeployExtensionContracts deploys and links the extension records. The
// pre-write existence check keeps the call idempotent: re-deploying would
// burn gas and orphan the previous contracts.
func (c *EthClient) DeployExtensionContracts(ctx context.Context, req DeployExtensionRequest) (*ExtensionAddresses, error) {
	if err := c.guardOwner(ctx, "DeployExtensionContracts", req.ProjectAddress); err != nil {
		return nil, err
	}

	existing, err := c.GetExtensionAddresses(ctx, req.ProjectAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, NewLedgerError("DeployExtensionContracts", req.ProjectAddress,
			"extension contracts exist", ErrAlreadyDeployed)
	}

	contributors := make([]common.Address, 0, len(req.Contributors))
	for _, addr := range req.Contributors {
		contributors = append(contributors, common.HexToAddress(addr))
	}

	data, err := c.parsedABI.Pack("deployExtension",
		req.ExtensionConfig, req.BundleHash, contributors, new(big.Int).SetUint64(req.Nonce))
	if err != nil {
		return nil, NewLedgerError("DeployExtensionContracts", req.ProjectAddress, "encode call", err)
	}

	receipt, err := c.sendAndWait(ctx, req.ProjectAddress, data)
	if err != nil {
		return nil, NewLedgerError("DeployExtensionContracts", req.ProjectAddress, err.Error(), categorize(err))
	}

	deployed, err := c.GetExtensionAddresses(ctx, req.ProjectAddress)
	if err != nil {
		return nil, err
	}
	if deployed == nil {
		return nil, NewLedgerError("DeployExtensionContracts", req.ProjectAddress,
			"transaction mined but no addresses linked", ErrReverted)
	}

	c.logger.Info("extension contracts deployed",
		"project_address", req.ProjectAddress,
		"voting", deployed.Voting,
		"storage", deployed.Storage,
		"tx_hash", receipt.TxHash,
	)
	return deployed, nil
}

// =============================================================================
// Internals
// =============================================================================

// guardOwner fails fast with an authorization error before any gas is
// spent. The ownership read is the only network traffic on the failure path.
func (c *EthClient) guardOwner(ctx context.Context, op, projectAddress string) error {
	if projectAddress == "" {
		return NewLedgerError(op, "", "missing project contract", ErrNoChainAddress)
	}
	owner, err := c.IsOwner(ctx, projectAddress, c.signer.Hex())
	if err != nil {
		return err
	}
	if !owner {
		return NewLedgerError(op, projectAddress,
			fmt.Sprintf("signer %s is not the owner", c.signer.Hex()), ErrNotAuthorized)
	}
	return nil
}

func (c *EthClient) call(ctx context.Context, projectAddress, method string, args ...any) ([]any, error) {
	to := common.HexToAddress(projectAddress)

	data, err := c.parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s call: %w", method, err)
	}

	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	out, err := c.parsedABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return out, nil
}

// sendAndWait signs, submits, and waits for the transaction to be mined.
// Once the transaction is submitted the wait deliberately ignores caller
// cancellation: a submitted transaction cannot be un-submitted, so
// abandoning the wait would lose the receipt while the state change lands
// anyway.
func (c *EthClient) sendAndWait(ctx context.Context, projectAddress string, data []byte) (*TxReceipt, error) {
	to := common.HexToAddress(projectAddress)

	nonce, err := c.backend.PendingNonceAt(ctx, c.signer)
	if err != nil {
		return nil, err
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: c.signer,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, err
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.backend, signed)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, ErrReverted
	}

	return &TxReceipt{
		TxHash:      signed.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

// categorize maps raw node errors onto the package's failure classes. Any
// revert, whether caught at gas estimation or after mining, is a contract
// rejection rather than a transport problem.
func categorize(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotAuthorized),
		errors.Is(err, ErrAlreadyDeployed),
		errors.Is(err, ErrReverted),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrNetwork):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case strings.Contains(err.Error(), "revert"):
		return ErrReverted
	default:
		return ErrNetwork
	}
}
