// Package evm implements the invoice ledger against an EVM chain: an
// invoice registry contract for storage and settlement, and an ERC-20
// token for the two-phase approve/pay flow.
package evm

import (
	"math/big"
)

const (
	// DefaultGasLimit bounds registry and token transactions.
	DefaultGasLimit = 300000

	// TxStatusSuccess is the receipt status of a mined, non-reverted
	// transaction.
	TxStatusSuccess = 1
)

// registryABI is the invoice registry contract interface. getInvoice
// returns exists=false rather than reverting for unknown ids; payInvoice
// pulls the approved amount from the caller and distributes it per the
// stored basis points.
const registryABI = `[
  {
    "inputs": [
      {"name": "amount", "type": "uint256"},
      {"name": "token", "type": "address"},
      {"name": "description", "type": "string"},
      {"name": "recipients", "type": "address[]"},
      {"name": "basisPoints", "type": "uint256[]"}
    ],
    "name": "createInvoice",
    "outputs": [{"name": "invoiceId", "type": "bytes32"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"name": "invoiceId", "type": "bytes32"}],
    "name": "payInvoice",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"name": "invoiceId", "type": "bytes32"}],
    "name": "getInvoice",
    "outputs": [
      {"name": "exists", "type": "bool"},
      {"name": "creator", "type": "address"},
      {"name": "amount", "type": "uint256"},
      {"name": "token", "type": "address"},
      {"name": "description", "type": "string"},
      {"name": "paid", "type": "bool"},
      {"name": "createdAt", "type": "uint256"},
      {"name": "paidAt", "type": "uint256"},
      {"name": "paidBy", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "invoiceId", "type": "bytes32"}],
    "name": "getInvoiceSplits",
    "outputs": [
      {
        "name": "splits",
        "type": "tuple[]",
        "components": [
          {"name": "recipient", "type": "address"},
          {"name": "basisPoints", "type": "uint256"}
        ]
      }
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "invoiceId", "type": "bytes32"},
      {"indexed": true, "name": "creator", "type": "address"},
      {"indexed": false, "name": "amount", "type": "uint256"}
    ],
    "name": "InvoiceCreated",
    "type": "event"
  }
]`

// erc20ABI covers the token functions the two-phase flow needs.
const erc20ABI = `[
  {
    "inputs": [
      {"name": "spender", "type": "address"},
      {"name": "amount", "type": "uint256"}
    ],
    "name": "approve",
    "outputs": [{"name": "", "type": "bool"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"name": "owner", "type": "address"},
      {"name": "spender", "type": "address"}
    ],
    "name": "allowance",
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "account", "type": "address"}],
    "name": "balanceOf",
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

// AssetInfo describes a settlement token on a network.
type AssetInfo struct {
	Address  string
	Symbol   string
	Decimals int32
}

// NetworkConfig describes a supported chain.
type NetworkConfig struct {
	ChainID      *big.Int
	RPCURL       string
	DefaultAsset AssetInfo
}

var (
	// ChainIDMonadTestnet is the Monad testnet chain id.
	ChainIDMonadTestnet = big.NewInt(10143)

	// NetworkConfigs maps network names to their chain parameters and
	// default settlement asset.
	NetworkConfigs = map[string]NetworkConfig{
		"monad-testnet": {
			ChainID: ChainIDMonadTestnet,
			RPCURL:  "https://testnet-rpc.monad.xyz",
			DefaultAsset: AssetInfo{
				Address:  "0xf817257fed379853cDe0fa4F97AB987181B1E5Ea", // USDC on Monad Testnet
				Symbol:   "USDC",
				Decimals: 6,
			},
		},
	}
)
