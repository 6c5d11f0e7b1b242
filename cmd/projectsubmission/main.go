package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/spf13/cobra"
)

// globalFlags 保存所有子命令共享的参数。
type globalFlags struct {
	configPath string
	chain      string
	from       string
	gasLimit   uint64
	timeout    time.Duration
	output     string
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:           "projectsubmission",
	Short:         "ProjectSubmission 合约命令行客户端",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "配置文件路径，默认读取 $PROJSUB_CONFIG 或 configs/projectsubmission.json")
	pf.StringVar(&flags.chain, "chain", "", "使用的链名称，默认取配置中的 default_chain")
	pf.StringVar(&flags.from, "from", "", "发送交易的账户，默认使用钱包中的第一个账户")
	pf.Uint64Var(&flags.gasLimit, "gas-limit", 0, "固定 gas 上限，0 表示由节点估算")
	pf.DurationVar(&flags.timeout, "timeout", 2*time.Minute, "单条命令的超时时间")
	pf.StringVarP(&flags.output, "output", "o", "text", "输出格式：text 或 json")

	rootCmd.AddCommand(
		statusCmd(),
		chainsCmd(),
		accountsCmd(),
		ownerCmd(),
		ownerBalanceCmd(),
		universityCmd(),
		projectCmd(),
		withdrawCmd(),
		deployCmd(),
		journalCmd(),
	)
}

// main 是 ProjectSubmission 客户端的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(xerrors.ExitCode(err))
}
