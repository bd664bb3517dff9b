package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Minimal ERC-20 surface: approve, balanceOf, allowance.
const erc20ABI = `
[
  {
    "name": "approve",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "spender", "type": "address" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "name": "", "type": "bool" }]
  },
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "account", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "allowance",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "owner", "type": "address" },
      { "name": "spender", "type": "address" }
    ],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]
`

// Minimal xReserve surface. The contract is an ERC1967 proxy; calls go to
// the proxy address with the implementation ABI.
const xReserveABI = `
[
  {
    "name": "depositToRemote",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "value", "type": "uint256" },
      { "name": "remoteDomain", "type": "uint32" },
      { "name": "remoteRecipient", "type": "bytes32" },
      { "name": "localToken", "type": "address" },
      { "name": "maxFee", "type": "uint256" },
      { "name": "hookData", "type": "bytes" }
    ],
    "outputs": []
  },
  {
    "name": "quoteDeposit",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "remoteDomain", "type": "uint32" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "name": "fee", "type": "uint256" }]
  }
]
`

const (
	// Explicit gas limits; the bridge deposit needs headroom for the
	// proxy dispatch and message emission.
	approveGasLimit = 80_000
	depositGasLimit = 500_000

	defaultReceiptPollInterval = 2 * time.Second
)

// EVMClient talks to the USDC token and xReserve bridge contracts over a
// JSON-RPC endpoint.
type EVMClient struct {
	rpcURL  string
	client  *ethclient.Client
	chainID *big.Int

	token  common.Address
	bridge common.Address

	tokenABI  abi.ABI
	bridgeABI abi.ABI

	receiptPollInterval time.Duration
}

var _ Client = (*EVMClient)(nil)

// NewEVMClient connects to rpcURL and binds the token and bridge
// addresses.
func NewEVMClient(rpcURL string, token, bridge common.Address) (*EVMClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}

	tokenABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}
	bridgeABI, err := abi.JSON(strings.NewReader(xReserveABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse xReserve ABI: %w", err)
	}

	return &EVMClient{
		rpcURL:              rpcURL,
		client:              client,
		chainID:             chainID,
		token:               token,
		bridge:              bridge,
		tokenABI:            tokenABI,
		bridgeABI:           bridgeABI,
		receiptPollInterval: defaultReceiptPollInterval,
	}, nil
}

// ChainID returns the connected chain's id.
func (e *EVMClient) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

func (e *EVMClient) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return e.readUint256(ctx, e.token, e.tokenABI, "balanceOf", account)
}

func (e *EVMClient) Allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return e.readUint256(ctx, e.token, e.tokenABI, "allowance", owner, e.bridge)
}

func (e *EVMClient) QuoteDeposit(ctx context.Context, remoteDomain uint32, value *big.Int) (*big.Int, error) {
	return e.readUint256(ctx, e.bridge, e.bridgeABI, "quoteDeposit", remoteDomain, value)
}

func (e *EVMClient) Approve(ctx context.Context, payer *Account, value *big.Int) (common.Hash, error) {
	callData, err := e.tokenABI.Pack("approve", e.bridge, value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack approve: %w", err)
	}
	return e.sendTransaction(ctx, payer, e.token, callData, approveGasLimit)
}

func (e *EVMClient) DepositToRemote(ctx context.Context, payer *Account, params DepositParams) (common.Hash, error) {
	maxFee := params.MaxFee
	if maxFee == nil {
		maxFee = big.NewInt(0)
	}
	hookData := params.HookData
	if hookData == nil {
		hookData = []byte{}
	}

	callData, err := e.bridgeABI.Pack("depositToRemote",
		params.Value,
		params.RemoteDomain,
		params.RemoteRecipient,
		params.LocalToken,
		maxFee,
		hookData,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack depositToRemote: %w", err)
	}
	return e.sendTransaction(ctx, payer, e.bridge, callData, depositGasLimit)
}

// WaitForReceipt polls until the transaction is mined.
func (e *EVMClient) WaitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(e.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return &Receipt{
				TxHash:      txHash,
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber.Uint64(),
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *EVMClient) Confirmations(ctx context.Context, txHash common.Hash) (uint64, bool, error) {
	receipt, err := e.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to fetch receipt: %w", err)
	}

	reverted := receipt.Status != ethtypes.ReceiptStatusSuccessful

	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return 0, reverted, fmt.Errorf("failed to fetch block number: %w", err)
	}

	txBlock := receipt.BlockNumber.Uint64()
	if head < txBlock {
		return 0, reverted, nil
	}
	return head - txBlock + 1, reverted, nil
}

func (e *EVMClient) Close() {
	e.client.Close()
}

// readUint256 performs an eth_call and decodes a single uint256 result.
func (e *EVMClient) readUint256(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	callData, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{
		To:   &contract,
		Data: callData,
	}
	out, err := e.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	results, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("unexpected %s result arity %d", method, len(results))
	}

	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, results[0])
	}
	return value, nil
}

// sendTransaction builds, signs and submits a legacy transaction.
func (e *EVMClient) sendTransaction(ctx context.Context, payer *Account, to common.Address, callData []byte, gasLimit uint64) (common.Hash, error) {
	nonce, err := e.client.PendingNonceAt(ctx, payer.Address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := ethtypes.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, callData)
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(e.chainID), payer.PrivateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signed.Hash(), nil
}
