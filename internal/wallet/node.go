package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// RPCCaller is the JSON-RPC surface the node wallet needs; *rpc.Client
// satisfies it.
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Node uses accounts unlocked on the node itself (ganache, anvil,
// geth --dev) and asks the node to sign through eth_signTransaction.
type Node struct {
	rpc RPCCaller
}

// NewNode wraps a JSON-RPC connection.
func NewNode(rpc RPCCaller) *Node {
	return &Node{rpc: rpc}
}

// Accounts implements Wallet via eth_accounts.
func (w *Node) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := w.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Transactor implements Wallet. The sender must be one of eth_accounts.
func (w *Node) Transactor(ctx context.Context, from common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	accounts, err := w.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	known := false
	for _, account := range accounts {
		if account == from {
			known = true
			break
		}
	}
	if !known {
		return nil, unknownAccount(from)
	}

	signer := types.LatestSignerForChainID(chainID)
	return &bind.TransactOpts{
		From:    from,
		Context: ctx,
		Signer: func(address common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if address != from {
				return nil, unknownAccount(address)
			}
			signed, err := w.sign(ctx, address, chainID, tx)
			if err != nil {
				return nil, err
			}
			sender, err := types.Sender(signer, signed)
			if err != nil {
				return nil, fmt.Errorf("节点签名无效: %w", err)
			}
			if sender != from {
				return nil, fmt.Errorf("节点使用了错误的签名账户 %s", sender.Hex())
			}
			return signed, nil
		},
	}, nil
}

// signArgs mirrors the transaction object accepted by eth_signTransaction.
type signArgs struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	Data                 hexutil.Bytes   `json:"data"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
}

func newSignArgs(from common.Address, chainID *big.Int, tx *types.Transaction) signArgs {
	args := signArgs{
		From:    from,
		To:      tx.To(),
		Gas:     hexutil.Uint64(tx.Gas()),
		Value:   (*hexutil.Big)(tx.Value()),
		Nonce:   hexutil.Uint64(tx.Nonce()),
		Data:    tx.Data(),
		ChainID: (*hexutil.Big)(chainID),
	}
	if tx.Type() == types.DynamicFeeTxType {
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
	} else {
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	}
	return args
}

func (w *Node) sign(ctx context.Context, from common.Address, chainID *big.Int, tx *types.Transaction) (*types.Transaction, error) {
	var result json.RawMessage
	if err := w.rpc.CallContext(ctx, &result, "eth_signTransaction", newSignArgs(from, chainID, tx)); err != nil {
		return nil, err
	}
	raw, err := decodeSignResult(result)
	if err != nil {
		return nil, err
	}
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("解析节点签名交易失败: %w", err)
	}
	return signed, nil
}

// decodeSignResult accepts both the geth shape {"raw": "0x..", "tx": {..}}
// and a bare hex string as returned by ganache.
func decodeSignResult(result json.RawMessage) ([]byte, error) {
	trimmed := strings.TrimSpace(string(result))
	if strings.HasPrefix(trimmed, `"`) {
		var raw hexutil.Bytes
		if err := json.Unmarshal(result, &raw); err != nil {
			return nil, fmt.Errorf("解析节点签名结果失败: %w", err)
		}
		return raw, nil
	}
	var envelope struct {
		Raw hexutil.Bytes `json:"raw"`
	}
	if err := json.Unmarshal(result, &envelope); err != nil {
		return nil, fmt.Errorf("解析节点签名结果失败: %w", err)
	}
	if len(envelope.Raw) == 0 {
		return nil, fmt.Errorf("节点签名结果为空")
	}
	return envelope.Raw, nil
}
