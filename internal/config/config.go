package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	xerrors "ProjectSubmission-Chain/internal/errors"
)

// Config 描述了客户端在启动阶段需要加载的核心配置。
type Config struct {
	Web3     Web3Config     `json:"web3"`
	Contract ContractConfig `json:"contract"`
	Wallet   WalletConfig   `json:"wallet"`
	Journal  JournalConfig  `json:"journal"`
	Log      LogConfig      `json:"log"`
}

// Web3Config 包含访问区块链节点所需的 RPC 地址。
type Web3Config struct {
	RPCURL       string `json:"rpc_url"`
	ChainConfig  string `json:"chain_config"`
	DefaultChain string `json:"default_chain"`
}

// ContractConfig 指定 ProjectSubmission 合约的来源。
// Artifact 为 truffle 构建产物路径，Address 为固定地址，两者同时配置时以 Address 为准。
type ContractConfig struct {
	Artifact string `json:"artifact"`
	Address  string `json:"address"`
}

// WalletConfig 描述交易签名账户的来源。
type WalletConfig struct {
	Driver         string   `json:"driver"`
	PrivateKeys    []string `json:"private_keys"`
	PrivateKeysEnv string   `json:"private_keys_env"`
	KeystoreDir    string   `json:"keystore_dir"`
	Passphrase     string   `json:"passphrase"`
	PassphraseEnv  string   `json:"passphrase_env"`
}

// JournalConfig 控制交易日志的持久化与投递。
type JournalConfig struct {
	Store     JournalStoreConfig     `json:"store"`
	Publisher JournalPublisherConfig `json:"publisher"`
}

// JournalStoreConfig 支持 memory 与 mysql 两种驱动。
type JournalStoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// JournalPublisherConfig 支持 none、redis 与 rabbitmq 三种驱动。
type JournalPublisherConfig struct {
	Driver   string         `json:"driver"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig 描述 Redis 连接参数。
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	List     string `json:"list"`
}

// RabbitMQConfig 描述 RabbitMQ 连接参数。
type RabbitMQConfig struct {
	URL     string `json:"url"`
	Queue   string `json:"queue"`
	Durable bool   `json:"durable"`
}

// LogConfig 对应 pkg/logger 的配置。
type LogConfig struct {
	Level       string         `json:"level"`
	Format      string         `json:"format"`
	OutputPaths []string       `json:"output_paths"`
	Audit       LogAuditConfig `json:"audit"`
}

// LogAuditConfig 控制审计日志输出。
type LogAuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// 环境变量覆盖项，便于在 CI 或容器中切换节点与存储而不修改配置文件。
const (
	EnvRPCURL     = "PROJSUB_RPC_URL"
	EnvChain      = "PROJSUB_CHAIN"
	EnvContract   = "PROJSUB_CONTRACT"
	EnvJournalDSN = "PROJSUB_JOURNAL_DSN"
)

// Load 读取 JSON 配置文件，依次应用环境变量覆盖、默认值与校验。
// 配置中出现未知字段时直接报错，避免拼写错误被静默忽略。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "配置文件路径为空")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "读取配置文件失败")
	}

	cfg := &Config{}
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析配置失败",
			xerrors.WithMetadata("path", path))
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvRPCURL, &c.Web3.RPCURL},
		{EnvChain, &c.Web3.DefaultChain},
		{EnvContract, &c.Contract.Address},
		{EnvJournalDSN, &c.Journal.Store.DSN},
	}
	for _, o := range overrides {
		if value, ok := lookup(o.env); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
}

// Validate 检查驱动名称与驱动所需参数是否齐全。
func (c *Config) Validate() error {
	if c.Web3.RPCURL == "" && c.Web3.ChainConfig == "" {
		return invalid("web3.rpc_url 与 web3.chain_config 至少需要配置一项")
	}
	switch c.Wallet.Driver {
	case "keys", "node":
	case "keystore":
		if c.Wallet.KeystoreDir == "" {
			return invalid("keystore 钱包需要配置 wallet.keystore_dir")
		}
	default:
		return invalid(fmt.Sprintf("不支持的钱包驱动 %q", c.Wallet.Driver))
	}
	switch c.Journal.Store.Driver {
	case "memory":
	case "mysql":
		if c.Journal.Store.DSN == "" {
			return invalid("mysql 交易日志需要配置 journal.store.dsn")
		}
	default:
		return invalid(fmt.Sprintf("不支持的交易日志存储驱动 %q", c.Journal.Store.Driver))
	}
	switch c.Journal.Publisher.Driver {
	case "none":
	case "redis":
		if c.Journal.Publisher.Redis.Address == "" {
			return invalid("redis 投递需要配置 journal.publisher.redis.address")
		}
	case "rabbitmq":
		if c.Journal.Publisher.RabbitMQ.URL == "" {
			return invalid("rabbitmq 投递需要配置 journal.publisher.rabbitmq.url")
		}
	default:
		return invalid(fmt.Sprintf("不支持的交易日志投递驱动 %q", c.Journal.Publisher.Driver))
	}
	if c.Log.Audit.Enabled && c.Log.Audit.Path == "" {
		return invalid("启用审计日志时需要配置 log.audit.path")
	}
	return nil
}

func invalid(message string) error {
	return xerrors.New(xerrors.CodeInvalidArgument, message)
}

// ResolvePrivateKeys 返回配置文件与环境变量中声明的私钥，环境变量以逗号分隔。
func (w WalletConfig) ResolvePrivateKeys() []string {
	keys := make([]string, 0, len(w.PrivateKeys))
	for _, key := range w.PrivateKeys {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if w.PrivateKeysEnv != "" {
		for _, key := range strings.Split(os.Getenv(w.PrivateKeysEnv), ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// ResolvePassphrase 优先使用环境变量中的口令。
func (w WalletConfig) ResolvePassphrase() string {
	if w.PassphraseEnv != "" {
		if value := os.Getenv(w.PassphraseEnv); value != "" {
			return value
		}
	}
	return w.Passphrase
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Wallet.Driver == "" {
		if len(c.Wallet.PrivateKeys) > 0 || c.Wallet.PrivateKeysEnv != "" {
			c.Wallet.Driver = "keys"
		} else {
			c.Wallet.Driver = "node"
		}
	}

	if c.Journal.Store.Driver == "" {
		c.Journal.Store.Driver = "memory"
	}
	if c.Journal.Publisher.Driver == "" {
		c.Journal.Publisher.Driver = "none"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	c.Web3.ChainConfig = resolvePath(baseDir, c.Web3.ChainConfig)
	c.Contract.Artifact = resolvePath(baseDir, c.Contract.Artifact)
	c.Wallet.KeystoreDir = resolvePath(baseDir, c.Wallet.KeystoreDir)
	c.Log.Audit.Path = resolvePath(baseDir, c.Log.Audit.Path)
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
