package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
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
	"github.com/rs/zerolog"

	"github.com/paysplit/paysplit"
	"github.com/paysplit/paysplit/internal/logger"
)

// Config configures the EVM ledger client.
type Config struct {
	// RPCURL is the chain's JSON-RPC endpoint.
	RPCURL string
	// ChainID must match the endpoint's chain.
	ChainID int64
	// Registry is the invoice registry contract address.
	Registry string
	// Token is the ERC-20 settlement token address.
	Token string
	// TokenSymbol is the display symbol reported for the token.
	TokenSymbol string
	// PrivateKey is the payer's hex-encoded signing key.
	PrivateKey string
	// GasLimit bounds write transactions; DefaultGasLimit when zero.
	GasLimit uint64
	// ReceiptTimeout bounds the wait for a transaction receipt.
	ReceiptTimeout time.Duration
}

// ethBackend is the ethclient surface the ledger uses, split out so tests
// can substitute a fake chain.
type ethBackend interface {
	bind.DeployBackend
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Client implements the invoice ledger over an EVM chain. It owns the
// payer's signing key: Authorize and PayInvoice submit transactions on the
// payer's behalf and only report success after the receipt confirms it.
type Client struct {
	backend     ethBackend
	registry    common.Address
	token       common.Address
	tokenSymbol string
	registryABI abi.ABI
	tokenABI    abi.ABI
	chainID     *big.Int
	privateKey  *ecdsa.PrivateKey
	payer       common.Address
	gasLimit    uint64
	timeout     time.Duration
	log         zerolog.Logger
}

// NewClient dials the RPC endpoint and prepares the contract bindings.
func NewClient(cfg Config) (*Client, error) {
	backend, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}
	return NewClientWithBackend(cfg, backend)
}

// NewClientWithBackend is NewClient with an injected backend.
func NewClientWithBackend(cfg Config, backend ethBackend) (*Client, error) {
	if !common.IsHexAddress(cfg.Registry) {
		return nil, fmt.Errorf("invalid registry address %q", cfg.Registry)
	}
	if !common.IsHexAddress(cfg.Token) {
		return nil, fmt.Errorf("invalid token address %q", cfg.Token)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	regABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}
	tokABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	timeout := cfg.ReceiptTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		backend:     backend,
		registry:    common.HexToAddress(cfg.Registry),
		token:       common.HexToAddress(cfg.Token),
		tokenSymbol: cfg.TokenSymbol,
		registryABI: regABI,
		tokenABI:    tokABI,
		chainID:     big.NewInt(cfg.ChainID),
		privateKey:  privateKey,
		payer:       crypto.PubkeyToAddress(privateKey.PublicKey),
		gasLimit:    gasLimit,
		timeout:     timeout,
		log:         logger.WithComponent("ledger"),
	}, nil
}

// Payer returns the address derived from the signing key.
func (c *Client) Payer() string {
	return c.payer.Hex()
}

// GetInvoice reads the stored invoice record. Unknown ids come back as
// exists=false from the registry and are mapped to ErrInvoiceNotFound.
func (c *Client) GetInvoice(ctx context.Context, id string) (*paysplit.LedgerInvoice, error) {
	invoiceID, err := ParseInvoiceID(id)
	if err != nil {
		return nil, err
	}

	out, err := c.call(ctx, c.registry, c.registryABI, "getInvoice", invoiceID)
	if err != nil {
		return nil, err
	}

	exists := out[0].(bool)
	if !exists {
		return nil, paysplit.ErrInvoiceNotFound
	}

	tokenAddr := out[3].(common.Address)
	inv := &paysplit.LedgerInvoice{
		ID:          id,
		Creator:     out[1].(common.Address).Hex(),
		Amount:      out[2].(*big.Int),
		Token:       c.symbolFor(tokenAddr),
		Description: out[4].(string),
		Paid:        out[5].(bool),
		CreatedAt:   unixTime(out[6].(*big.Int)),
		PaidAt:      unixTime(out[7].(*big.Int)),
		PaidBy:      out[8].(common.Address).Hex(),
	}
	if !inv.Paid {
		inv.PaidBy = ""
	}
	return inv, nil
}

// GetSplits reads the stored split configuration, in storage order.
func (c *Client) GetSplits(ctx context.Context, id string) ([]paysplit.LedgerSplit, error) {
	invoiceID, err := ParseInvoiceID(id)
	if err != nil {
		return nil, err
	}

	out, err := c.call(ctx, c.registry, c.registryABI, "getInvoiceSplits", invoiceID)
	if err != nil {
		return nil, err
	}

	type rawSplit struct {
		Recipient   common.Address
		BasisPoints *big.Int
	}
	raw := *abi.ConvertType(out[0], new([]rawSplit)).(*[]rawSplit)

	splits := make([]paysplit.LedgerSplit, len(raw))
	for i, s := range raw {
		splits[i] = paysplit.LedgerSplit{
			Recipient:   s.Recipient.Hex(),
			BasisPoints: s.BasisPoints.Int64(),
		}
	}
	return splits, nil
}

// Allowance reads how much the registry may currently move from the payer.
func (c *Client) Allowance(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, c.token, c.tokenABI, "allowance", c.payer, c.registry)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// BalanceOf reads the payer's token balance.
func (c *Client) BalanceOf(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, c.token, c.tokenABI, "balanceOf", c.payer)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Authorize approves the registry to move amount of the token. The approval
// is re-readable via Allowance once the transaction is mined.
func (c *Client) Authorize(ctx context.Context, amount *big.Int) (string, error) {
	receipt, err := c.transact(ctx, c.token, c.tokenABI, "approve", c.registry, amount)
	if err != nil {
		return "", err
	}
	c.log.Info().
		Str("tx", receipt.TxHash.Hex()).
		Str("amount", amount.String()).
		Msg("allowance granted")
	return receipt.TxHash.Hex(), nil
}

// PayInvoice settles an invoice through the registry. The registry reverts
// when the invoice is already paid or the allowance does not cover it; the
// caller is expected to re-read state first and treat a paid record as a
// no-op.
func (c *Client) PayInvoice(ctx context.Context, id string) (string, error) {
	invoiceID, err := ParseInvoiceID(id)
	if err != nil {
		return "", err
	}

	receipt, err := c.transact(ctx, c.registry, c.registryABI, "payInvoice", invoiceID)
	if err != nil {
		return "", err
	}
	c.log.Info().
		Str("tx", receipt.TxHash.Hex()).
		Str("invoice", id).
		Msg("invoice settled")
	return receipt.TxHash.Hex(), nil
}

// CreateInvoice records a validated invoice on the registry and returns the
// assigned id, read from the InvoiceCreated event.
func (c *Client) CreateInvoice(ctx context.Context, invoice *paysplit.Invoice) (string, error) {
	recipients := make([]common.Address, len(invoice.Splits))
	basisPoints := make([]*big.Int, len(invoice.Splits))
	for i, s := range invoice.Splits {
		if s.Address == "" {
			return "", paysplit.NewInputError(paysplit.CodeInvalidIdentity,
				fmt.Sprintf("splits[%d].address", i), s.Name,
				"all recipients must carry resolved addresses before on-chain creation")
		}
		recipients[i] = common.HexToAddress(s.Address)
		basisPoints[i] = big.NewInt(s.BasisPoints)
	}

	receipt, err := c.transact(ctx, c.registry, c.registryABI, "createInvoice",
		big.NewInt(invoice.Amount), c.token, invoice.Description, recipients, basisPoints)
	if err != nil {
		return "", err
	}

	eventID := c.registryABI.Events["InvoiceCreated"].ID
	for _, lg := range receipt.Logs {
		if lg.Address == c.registry && len(lg.Topics) > 1 && lg.Topics[0] == eventID {
			id := lg.Topics[1].Hex()
			c.log.Info().
				Str("tx", receipt.TxHash.Hex()).
				Str("invoice", id).
				Msg("invoice created")
			return id, nil
		}
	}
	return "", fmt.Errorf("transaction %s mined without an InvoiceCreated event", receipt.TxHash.Hex())
}

func (c *Client) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

func (c *Client) transact(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.payer)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), c.gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send %s transaction: %w", method, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.backend, signedTx)
	if err != nil {
		return nil, fmt.Errorf("%s transaction %s not mined: %w", method, signedTx.Hash().Hex(), err)
	}
	if receipt.Status != TxStatusSuccess {
		return nil, fmt.Errorf("%s transaction %s reverted", method, signedTx.Hash().Hex())
	}
	return receipt, nil
}

func (c *Client) symbolFor(token common.Address) string {
	if c.tokenSymbol != "" && token == c.token {
		return c.tokenSymbol
	}
	return token.Hex()
}

// ParseInvoiceID parses and normalizes a 32-byte hex invoice id.
func ParseInvoiceID(id string) (common.Hash, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(id), "0x")
	if len(trimmed) != common.HashLength*2 {
		return common.Hash{}, paysplit.NewInputError(paysplit.CodeInvoiceNotFound, "invoiceId", id, "invoice id must be a 32-byte hex string")
	}
	for _, r := range trimmed {
		if !isHexDigit(r) {
			return common.Hash{}, paysplit.NewInputError(paysplit.CodeInvoiceNotFound, "invoiceId", id, "invoice id must be a 32-byte hex string")
		}
	}
	return common.HexToHash(id), nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func unixTime(v *big.Int) time.Time {
	if v == nil || v.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
