package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ProjectSubmission-Chain/internal/config"
	"ProjectSubmission-Chain/internal/contract"
	xerrors "ProjectSubmission-Chain/internal/errors"
	"ProjectSubmission-Chain/internal/journal"
	"ProjectSubmission-Chain/internal/session"
	"ProjectSubmission-Chain/internal/wallet"
	"ProjectSubmission-Chain/internal/web3"
	"ProjectSubmission-Chain/internal/web3/provider"
	"ProjectSubmission-Chain/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// app 汇总一条命令执行期间需要的全部依赖。
type app struct {
	cfg      *config.Config
	registry *provider.Registry
	chain    *provider.Chain
	wallet   wallet.Wallet
	journal  *journal.Fanout
	session  *session.Session
}

// openApp 加载配置并连接链节点。initialize 为 true 时同时解析已部署的合约。
func openApp(ctx context.Context, initialize bool) (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	if err := logger.Init(loggerConfig(cfg.Log)); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	a.registry, err = provider.NewRegistry(cfg.Web3)
	if err != nil {
		return nil, err
	}
	a.chain, err = a.registry.Chain(ctx, flags.chain)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.wallet, err = buildWallet(cfg.Wallet, a.chain.Client)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.journal, err = buildJournal(ctx, cfg.Journal)
	if err != nil {
		a.Close()
		return nil, err
	}

	var resolver contract.Resolver
	if initialize {
		resolver, err = buildResolver(cfg.Contract, a.chain.Definition)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	opts := []session.Option{
		session.WithRecorder(a.journal),
		session.WithLogger(logger.Named("session").With(slog.String("chain", a.chain.Name))),
	}
	if flags.gasLimit > 0 {
		opts = append(opts, session.WithGasLimit(flags.gasLimit))
	}
	a.session = session.New(a.chain.Client, resolver, a.wallet, opts...)
	if initialize {
		if err := a.session.Initialize(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Close 释放链客户端与交易日志资源。
func (a *app) Close() {
	if a == nil {
		return
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.L().Warn("关闭交易日志失败", slog.Any("error", err))
		}
	}
	if a.registry != nil {
		a.registry.Close()
	}
	_ = logger.Sync()
}

// sender 返回 --from 指定的账户，否则返回钱包中的第一个账户。
func (a *app) sender(ctx context.Context) (common.Address, error) {
	if flags.from != "" {
		return parseAddress("--from", flags.from)
	}
	if a.session.Initialized() {
		return a.session.SelectActiveAccount(ctx)
	}
	accounts, err := a.wallet.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, session.ErrNoAccounts
	}
	return accounts[0], nil
}

func configPath() string {
	if flags.configPath != "" {
		return flags.configPath
	}
	if path := os.Getenv("PROJSUB_CONFIG"); path != "" {
		return path
	}
	return filepath.Join("configs", "projectsubmission.json")
}

func loggerConfig(cfg config.LogConfig) logger.Config {
	return logger.Config{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Audit.Enabled,
			Path:       cfg.Audit.Path,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
			Compress:   cfg.Audit.Compress,
		},
	}
}

// rpcProvider 暴露底层 JSON-RPC 连接，节点托管钱包通过它签名。
type rpcProvider interface {
	RPC() *gethrpc.Client
}

func buildWallet(cfg config.WalletConfig, client rpcProvider) (wallet.Wallet, error) {
	switch cfg.Driver {
	case "keys":
		keys := cfg.ResolvePrivateKeys()
		if len(keys) == 0 {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "keys 钱包未配置私钥")
		}
		return wallet.ParseKeys(keys)
	case "keystore":
		if cfg.KeystoreDir == "" {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "keystore 钱包未配置目录")
		}
		return wallet.OpenKeystore(cfg.KeystoreDir, cfg.ResolvePassphrase())
	case "node":
		if client == nil || client.RPC() == nil {
			return nil, errors.New("当前链客户端不支持节点托管账户")
		}
		return wallet.NewNode(client.RPC()), nil
	default:
		return nil, fmt.Errorf("不支持的钱包驱动 %q", cfg.Driver)
	}
}

func buildResolver(cfg config.ContractConfig, def web3.ChainDefinition) (contract.Resolver, error) {
	for _, candidate := range []string{cfg.Address, def.Contract} {
		if candidate = strings.TrimSpace(candidate); candidate == "" {
			continue
		}
		address, err := parseAddress("contract", candidate)
		if err != nil {
			return nil, err
		}
		return contract.AddressResolver{Address: address}, nil
	}
	if cfg.Artifact == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未配置合约地址或构建产物")
	}
	artifact, err := contract.LoadArtifact(cfg.Artifact)
	if err != nil {
		return nil, err
	}
	return contract.ArtifactResolver{Artifact: artifact}, nil
}

func buildJournal(ctx context.Context, cfg config.JournalConfig) (*journal.Fanout, error) {
	var store journal.Store
	switch cfg.Store.Driver {
	case "", "memory":
		store = journal.NewMemoryStore()
	case "mysql":
		mysqlStore, err := journal.NewMySQLStore(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		store = mysqlStore
	default:
		return nil, fmt.Errorf("不支持的交易日志存储驱动 %q", cfg.Store.Driver)
	}

	var publishers []journal.Publisher
	switch cfg.Publisher.Driver {
	case "", "none":
	case "redis":
		publisher, err := journal.NewRedisPublisher(ctx, journal.RedisPublisherConfig{
			Address:  cfg.Publisher.Redis.Address,
			Password: cfg.Publisher.Redis.Password,
			DB:       cfg.Publisher.Redis.DB,
			List:     cfg.Publisher.Redis.List,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publishers = append(publishers, publisher)
	case "rabbitmq":
		publisher, err := journal.NewRabbitMQPublisher(journal.RabbitMQPublisherConfig{
			URL:     cfg.Publisher.RabbitMQ.URL,
			Queue:   cfg.Publisher.RabbitMQ.Queue,
			Durable: cfg.Publisher.RabbitMQ.Durable,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publishers = append(publishers, publisher)
	default:
		_ = store.Close()
		return nil, fmt.Errorf("不支持的交易日志投递驱动 %q", cfg.Publisher.Driver)
	}
	return journal.NewFanout(store, publishers...), nil
}

func parseAddress(name, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("%s 不是合法的地址: %q", name, value))
	}
	return common.HexToAddress(value), nil
}

func parseHash(value string) (common.Hash, error) {
	value = strings.TrimSpace(value)
	text := value
	if !strings.HasPrefix(text, "0x") && !strings.HasPrefix(text, "0X") {
		text = "0x" + text
	}
	raw, err := hexutil.Decode(text)
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("项目哈希必须是 32 字节十六进制: %q", value))
	}
	return common.BytesToHash(raw), nil
}
