package session

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"ProjectSubmission-Chain/internal/contract"
	xerrors "ProjectSubmission-Chain/internal/errors"
	"ProjectSubmission-Chain/internal/journal"
	"ProjectSubmission-Chain/internal/units"
	"ProjectSubmission-Chain/internal/wallet"
	"ProjectSubmission-Chain/internal/web3"
	"ProjectSubmission-Chain/pkg/logger"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrNotInitialized 表示在 Initialize 完成之前调用了会话操作。
	ErrNotInitialized = xerrors.New(xerrors.CodeNotInitialized, "会话尚未初始化")
	// ErrNoAccounts 表示钱包中没有可用账户。
	ErrNoAccounts = xerrors.New(xerrors.CodeNotFound, "没有可用的账户")
	// ErrTransactionReverted 表示交易已上链但执行失败。
	ErrTransactionReverted = xerrors.New(xerrors.CodeTxReverted, "交易执行回滚")
)

// TxResult 汇总一次状态变更调用的交易与回执。
type TxResult struct {
	Transaction *types.Transaction
	Receipt     *types.Receipt
}

// Session 持有与 ProjectSubmission 合约交互所需的全部状态。
type Session struct {
	client       web3.Client
	resolver     contract.Resolver
	wallet       wallet.Wallet
	recorder     journal.Recorder
	logger       *slog.Logger
	gasLimit     uint64
	pollInterval time.Duration

	mu          sync.RWMutex
	initialized bool
	networkID   *big.Int
	chainID     *big.Int
	contract    *contract.ProjectSubmission
	active      common.Address
	owner       common.Address
}

// New 创建一个尚未初始化的 Session。
func New(client web3.Client, resolver contract.Resolver, w wallet.Wallet, opts ...Option) *Session {
	s := &Session{
		client:       client,
		resolver:     resolver,
		wallet:       w,
		logger:       logger.Named("session"),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize 解析网络标识、链 ID 以及已部署的合约实例。重复调用会覆盖之前的状态。
func (s *Session) Initialize(ctx context.Context) error {
	if s.client == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "缺少链客户端")
	}
	if s.resolver == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "缺少合约解析器")
	}
	networkID, err := s.client.NetworkID(ctx)
	if err != nil {
		return err
	}
	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return err
	}
	bound, err := s.resolver.Deployed(ctx, networkID, s.client.Backend())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.networkID = networkID
	s.chainID = chainID
	s.contract = bound
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("会话初始化完成",
		slog.String("network_id", networkID.String()),
		slog.String("chain_id", chainID.String()),
		slog.String("contract", bound.Address().Hex()))
	return nil
}

// SelectActiveAccount 将钱包中的第一个账户记录为当前账户。
func (s *Session) SelectActiveAccount(ctx context.Context) (common.Address, error) {
	if !s.Initialized() {
		return common.Address{}, ErrNotInitialized
	}
	if s.wallet == nil {
		return common.Address{}, xerrors.New(xerrors.CodeInvalidArgument, "缺少钱包")
	}
	accounts, err := s.wallet.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, ErrNoAccounts
	}
	s.mu.Lock()
	s.active = accounts[0]
	s.mu.Unlock()
	return accounts[0], nil
}

// ReadOwnerAddress 查询合约 owner 并缓存结果。
func (s *Session) ReadOwnerAddress(ctx context.Context) (common.Address, error) {
	c, err := s.bound()
	if err != nil {
		return common.Address{}, err
	}
	owner, err := c.Owner(s.callOpts(ctx))
	if err != nil {
		return common.Address{}, err
	}
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
	return owner, nil
}

// ReadOwnerBalance 查询合约 owner 可提取的余额（wei）。
func (s *Session) ReadOwnerBalance(ctx context.Context) (*big.Int, error) {
	c, err := s.bound()
	if err != nil {
		return nil, err
	}
	return c.OwnerBalance(s.callOpts(ctx))
}

// ReadUniversityState 查询大学记录。
func (s *Session) ReadUniversityState(ctx context.Context, university common.Address) (contract.University, error) {
	c, err := s.bound()
	if err != nil {
		return contract.University{}, err
	}
	return c.Universities(s.callOpts(ctx), university)
}

// ReadProjectState 查询项目记录。
func (s *Session) ReadProjectState(ctx context.Context, projectHash common.Hash) (contract.Project, error) {
	c, err := s.bound()
	if err != nil {
		return contract.Project{}, err
	}
	return c.Projects(s.callOpts(ctx), projectHash)
}

// RegisterUniversity 由 from 发送 registerUniversity(address)。
func (s *Session) RegisterUniversity(ctx context.Context, from, university common.Address) (*TxResult, error) {
	return s.send(ctx, "registerUniversity", from, nil, func(c *contract.ProjectSubmission, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.RegisterUniversity(opts, university)
	})
}

// DisableUniversity 由 from 发送 disableUniversity(address)。
func (s *Session) DisableUniversity(ctx context.Context, from, university common.Address) (*TxResult, error) {
	return s.send(ctx, "disableUniversity", from, nil, func(c *contract.ProjectSubmission, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.DisableUniversity(opts, university)
	})
}

// SubmitProject 将十进制 ether 金额换算为 wei 并作为提交费用附带在交易中。
func (s *Session) SubmitProject(ctx context.Context, from common.Address, projectHash common.Hash, university common.Address, amount string) (*TxResult, error) {
	if !s.Initialized() {
		return nil, ErrNotInitialized
	}
	value, err := units.ParseEther(amount)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, "submitProject", from, value, func(c *contract.ProjectSubmission, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.SubmitProject(opts, projectHash, university)
	})
}

// ReviewProject 由 from 发送 reviewProject(bytes32,uint8)。
func (s *Session) ReviewProject(ctx context.Context, from common.Address, projectHash common.Hash, status contract.ProjectStatus) (*TxResult, error) {
	return s.send(ctx, "reviewProject", from, nil, func(c *contract.ProjectSubmission, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.ReviewProject(opts, projectHash, status)
	})
}

// Donate 向项目捐赠。amount 已经是 wei，不做单位换算。
func (s *Session) Donate(ctx context.Context, from common.Address, projectHash common.Hash, amount *big.Int) (*TxResult, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "捐赠金额不能为负数")
	}
	return s.send(ctx, "donate", from, new(big.Int).Set(amount), func(c *contract.ProjectSubmission, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.Donate(opts, projectHash)
	})
}

// Withdraw 通过 withdraw() 提取 owner 或大学的余额。
func (s *Session) Withdraw(ctx context.Context, from common.Address) (*TxResult, error) {
	return s.send(ctx, "withdraw", from, nil, func(c *contract.ProjectSubmission, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.WithdrawOwnerOrUniversity(opts)
	})
}

// AuthorWithdraw 通过 withdraw(bytes32) 提取项目作者的余额。
func (s *Session) AuthorWithdraw(ctx context.Context, from common.Address, projectHash common.Hash) (*TxResult, error) {
	return s.send(ctx, "authorWithdraw", from, nil, func(c *contract.ProjectSubmission, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.WithdrawAuthor(opts, projectHash)
	})
}

// Initialized 报告 Initialize 是否已成功完成。
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// NetworkID 返回初始化时解析到的网络标识。
func (s *Session) NetworkID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.networkID == nil {
		return nil
	}
	return new(big.Int).Set(s.networkID)
}

// ChainID 返回用于 EIP-155 签名的链 ID。
func (s *Session) ChainID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chainID == nil {
		return nil
	}
	return new(big.Int).Set(s.chainID)
}

// ContractAddress 返回已解析的合约地址。
func (s *Session) ContractAddress() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.contract == nil {
		return common.Address{}
	}
	return s.contract.Address()
}

// ActiveAccount 返回 SelectActiveAccount 记录的账户。
func (s *Session) ActiveAccount() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ContractOwner 返回最近一次 ReadOwnerAddress 的结果。
func (s *Session) ContractOwner() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *Session) bound() (*contract.ProjectSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized || s.contract == nil {
		return nil, ErrNotInitialized
	}
	return s.contract, nil
}

func (s *Session) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: s.ActiveAccount()}
}

type transactFunc func(c *contract.ProjectSubmission, opts *bind.TransactOpts) (*types.Transaction, error)

// Deploy 由 from 部署一份新的合约实例，不要求会话已初始化。部署同样写入交易日志，
// 回执失败时返回 CodeTxReverted 错误与交易结果。
func (s *Session) Deploy(ctx context.Context, from common.Address, parsed abi.ABI, bytecode []byte) (*TxResult, common.Address, error) {
	if s.client == nil {
		return nil, common.Address{}, xerrors.New(xerrors.CodeInvalidArgument, "缺少链客户端")
	}
	if s.wallet == nil {
		return nil, common.Address{}, xerrors.New(xerrors.CodeInvalidArgument, "缺少钱包")
	}
	networkID, err := s.client.NetworkID(ctx)
	if err != nil {
		return nil, common.Address{}, err
	}
	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, common.Address{}, err
	}

	entry := journal.Entry{
		Operation: "deploy",
		Sender:    from.Hex(),
		NetworkID: networkID.String(),
	}
	var address common.Address
	result, err := s.transact(ctx, chainID, from, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		bound, tx, err := contract.Deploy(opts, parsed, bytecode, s.client.Backend())
		if err != nil {
			return nil, err
		}
		address = bound.Address()
		return tx, nil
	})
	if address != (common.Address{}) {
		entry.Contract = address.Hex()
	}
	s.finish(ctx, entry, result, err)
	return result, address, err
}

// send 签名并发送交易，等待回执后记录交易日志。
func (s *Session) send(ctx context.Context, operation string, from common.Address, value *big.Int, fn transactFunc) (*TxResult, error) {
	s.mu.RLock()
	c, chainID, networkID := s.contract, s.chainID, s.networkID
	ready := s.initialized && c != nil
	s.mu.RUnlock()
	if !ready {
		return nil, ErrNotInitialized
	}
	if s.wallet == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "缺少钱包")
	}

	entry := journal.Entry{
		Operation: operation,
		Sender:    from.Hex(),
		Contract:  c.Address().Hex(),
		NetworkID: networkID.String(),
	}
	if value != nil {
		entry.Value = value.String()
	}

	result, err := s.transact(ctx, chainID, from, value, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return fn(c, opts)
	})
	s.finish(ctx, entry, result, err)
	return result, err
}

// finish 根据发送结果补全日志记录并写入。
func (s *Session) finish(ctx context.Context, entry journal.Entry, result *TxResult, err error) {
	switch {
	case err == nil:
		entry.Status = journal.StatusMined
	case xerrors.HasCode(err, xerrors.CodeTxReverted):
		entry.Status = journal.StatusReverted
		entry.Error = err.Error()
	default:
		entry.Status = journal.StatusFailed
		entry.Error = describe(err)
	}
	if result != nil {
		entry.TxHash = result.Transaction.Hash().Hex()
		if result.Receipt != nil {
			entry.GasUsed = result.Receipt.GasUsed
			if result.Receipt.BlockNumber != nil {
				entry.BlockNumber = result.Receipt.BlockNumber.Uint64()
			}
		}
	}
	s.observe(ctx, entry)
}

func (s *Session) transact(ctx context.Context, chainID *big.Int, from common.Address, value *big.Int, build func(opts *bind.TransactOpts) (*types.Transaction, error)) (*TxResult, error) {
	opts, err := s.wallet.Transactor(ctx, from, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.Value = value
	if s.gasLimit > 0 {
		opts.GasLimit = s.gasLimit
	}

	tx, err := build(opts)
	if err != nil {
		return nil, err
	}
	result := &TxResult{Transaction: tx}
	receipt, err := WaitMined(ctx, s.client.Backend(), tx.Hash(), s.pollInterval)
	if err != nil {
		return result, err
	}
	result.Receipt = receipt
	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, xerrors.New(xerrors.CodeTxReverted, "交易执行回滚 "+tx.Hash().Hex(),
			xerrors.WithMetadata("tx_hash", tx.Hash().Hex()))
	}
	return result, nil
}

// WaitMined 轮询交易回执直到交易上链或 ctx 结束。
func WaitMined(ctx context.Context, backend bind.DeployBackend, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !stdErrors.Is(err, gethcore.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) observe(ctx context.Context, entry journal.Entry) {
	attrs := []any{
		slog.String("operation", entry.Operation),
		slog.String("sender", entry.Sender),
		slog.String("status", string(entry.Status)),
	}
	if entry.TxHash != "" {
		attrs = append(attrs, slog.String("tx_hash", entry.TxHash))
	}
	if entry.Error != "" {
		attrs = append(attrs, slog.String("error", entry.Error))
	}
	s.logger.Debug("合约调用完成", attrs...)
	logger.Audit().Info("transaction", append(attrs,
		slog.String("contract", entry.Contract),
		slog.String("value", entry.Value))...)

	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("记录交易日志失败", slog.String("operation", entry.Operation), slog.Any("error", err))
	}
}

func describe(err error) string {
	if reason, ok := contract.RevertReason(err); ok {
		return fmt.Sprintf("execution reverted: %s", reason)
	}
	return err.Error()
}
