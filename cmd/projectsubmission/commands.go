package main

import (
	"context"
	"fmt"
	"math/big"
	"text/tabwriter"
	"time"

	"ProjectSubmission-Chain/internal/config"
	"ProjectSubmission-Chain/internal/contract"
	xerrors "ProjectSubmission-Chain/internal/errors"
	"ProjectSubmission-Chain/internal/journal"
	"ProjectSubmission-Chain/internal/session"
	"ProjectSubmission-Chain/internal/units"
	"ProjectSubmission-Chain/internal/web3/provider"
	"ProjectSubmission-Chain/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// withApp 打开应用依赖并在命令结束后释放。
func withApp(initialize bool, fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
		defer cancel()
		a, err := openApp(ctx, initialize)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a, args)
	}
}

// transact 执行一次状态变更调用，回滚时同样输出交易信息。
func transact(cmd *cobra.Command, result *session.TxResult, err error, extra ...field) error {
	if fields := append(extra, txFields(result)...); len(fields) > 0 {
		if renderErr := render(cmd.OutOrStdout(), fields); renderErr != nil {
			return renderErr
		}
	}
	if err != nil {
		if reason, ok := contract.RevertReason(err); ok {
			return fmt.Errorf("%w (revert: %s)", err, reason)
		}
	}
	return err
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "显示当前链与合约状态",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			status, err := a.chain.Client.Status(ctx)
			if err != nil {
				return err
			}
			fields := []field{
				{"chain", status.Chain},
				{"endpoint", status.Endpoint},
				{"network_id", status.NetworkID.String()},
				{"chain_id", status.ChainID.String()},
				{"block", status.BlockNumber},
				{"gas_price_wei", status.GasPrice.String()},
			}
			if status.Description != "" {
				fields = append(fields, field{"description", status.Description})
			}
			if resolver, err := buildResolver(a.cfg.Contract, a.chain.Definition); err == nil {
				s := session.New(a.chain.Client, resolver, a.wallet)
				if err := s.Initialize(ctx); err != nil {
					fields = append(fields, field{"contract", "unavailable: " + err.Error()})
				} else {
					fields = append(fields, field{"contract", s.ContractAddress().Hex()})
				}
			}
			return render(cmd.OutOrStdout(), fields)
		}),
	}
}

func chainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "列出配置中的链，不连接节点",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			registry, err := provider.NewRegistry(cfg.Web3)
			if err != nil {
				return err
			}
			defer registry.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tENDPOINT\tCONTRACT\tDESCRIPTION")
			for _, name := range registry.Names() {
				def, _ := registry.Definition(name)
				marker := name
				if name == registry.DefaultName() {
					marker += " *"
				}
				pinned := "-"
				if addr, ok := def.ContractAddress(); ok {
					pinned = addr.Hex()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, def.Endpoint(), pinned, def.Description)
			}
			return tw.Flush()
		},
	}
}

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "列出钱包账户及其余额",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			accounts, err := a.wallet.Accounts(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tADDRESS\tBALANCE (ETH)")
			for i, account := range accounts {
				balance, err := a.chain.Client.Balance(ctx, account)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i, account.Hex(), units.FormatEther(balance))
			}
			return tw.Flush()
		}),
	}
}

func ownerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "owner",
		Short: "查询合约 owner",
		Args:  cobra.NoArgs,
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			owner, err := a.session.ReadOwnerAddress(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), []field{{"owner", owner.Hex()}})
		}),
	}
}

func ownerBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "owner-balance",
		Short: "查询 owner 可提取余额",
		Args:  cobra.NoArgs,
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			balance, err := a.session.ReadOwnerBalance(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), []field{
				{"balance_wei", balance.String()},
				{"balance_ether", units.FormatEther(balance)},
			})
		}),
	}
}

func universityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "university",
		Short: "大学相关操作",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <address>",
			Short: "查询大学记录",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
				university, err := parseAddress("university", args[0])
				if err != nil {
					return err
				}
				state, err := a.session.ReadUniversityState(ctx, university)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), universityFields(state))
			}),
		},
		&cobra.Command{
			Use:   "register <address>",
			Short: "注册大学（仅 owner）",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
				university, err := parseAddress("university", args[0])
				if err != nil {
					return err
				}
				from, err := a.sender(ctx)
				if err != nil {
					return err
				}
				result, err := a.session.RegisterUniversity(ctx, from, university)
				return transact(cmd, result, err)
			}),
		},
		&cobra.Command{
			Use:   "disable <address>",
			Short: "停用大学（仅 owner）",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
				university, err := parseAddress("university", args[0])
				if err != nil {
					return err
				}
				from, err := a.sender(ctx)
				if err != nil {
					return err
				}
				result, err := a.session.DisableUniversity(ctx, from, university)
				return transact(cmd, result, err)
			}),
		},
	)
	return cmd
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "项目相关操作",
	}

	submit := &cobra.Command{
		Use:   "submit <project-hash> <university>",
		Short: "提交项目并支付提交费用",
		Args:  cobra.ExactArgs(2),
	}
	amount := submit.Flags().String("amount", "1", "提交费用，单位 ether")
	submit.RunE = withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		hash, err := parseHash(args[0])
		if err != nil {
			return err
		}
		university, err := parseAddress("university", args[1])
		if err != nil {
			return err
		}
		from, err := a.sender(ctx)
		if err != nil {
			return err
		}
		result, err := a.session.SubmitProject(ctx, from, hash, university, *amount)
		return transact(cmd, result, err)
	})

	review := &cobra.Command{
		Use:   "review <project-hash> <status>",
		Short: "审核项目（仅 owner），status 可为 waiting|rejected|approved|disabled 或数字",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			status, err := contract.ParseProjectStatus(args[1])
			if err != nil {
				return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "项目状态不合法")
			}
			from, err := a.sender(ctx)
			if err != nil {
				return err
			}
			result, err := a.session.ReviewProject(ctx, from, hash, status)
			return transact(cmd, result, err)
		}),
	}

	get := &cobra.Command{
		Use:   "get <project-hash>",
		Short: "查询项目记录",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			project, err := a.session.ReadProjectState(ctx, hash)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), projectFields(project))
		}),
	}

	donate := &cobra.Command{
		Use:   "donate <project-hash> <amount-wei>",
		Short: "向已通过审核的项目捐赠，金额单位为 wei",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			amount, ok := new(big.Int).SetString(args[1], 10)
			if !ok {
				return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("捐赠金额必须是十进制 wei: %q", args[1]))
			}
			from, err := a.sender(ctx)
			if err != nil {
				return err
			}
			result, err := a.session.Donate(ctx, from, hash, amount)
			return transact(cmd, result, err)
		}),
	}

	withdraw := &cobra.Command{
		Use:   "withdraw <project-hash>",
		Short: "项目作者提取捐赠余额",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			from, err := a.sender(ctx)
			if err != nil {
				return err
			}
			result, err := a.session.AuthorWithdraw(ctx, from, hash)
			return transact(cmd, result, err)
		}),
	}

	cmd.AddCommand(submit, review, get, donate, withdraw)
	return cmd
}

func withdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw",
		Short: "owner 或大学提取余额",
		Args:  cobra.NoArgs,
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			from, err := a.sender(ctx)
			if err != nil {
				return err
			}
			result, err := a.session.Withdraw(ctx, from)
			return transact(cmd, result, err)
		}),
	}
}

func deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "使用构建产物中的字节码部署 ProjectSubmission",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if a.cfg.Contract.Artifact == "" {
				return xerrors.New(xerrors.CodeInvalidArgument, "部署需要配置 contract.artifact")
			}
			artifact, err := contract.LoadArtifact(a.cfg.Contract.Artifact)
			if err != nil {
				return err
			}
			parsed, err := artifact.ParsedABI()
			if err != nil {
				return err
			}
			from, err := a.sender(ctx)
			if err != nil {
				return err
			}
			result, address, err := a.session.Deploy(ctx, from, parsed, artifact.Code())
			var extra []field
			if address != (common.Address{}) {
				extra = append(extra, field{"contract", address.Hex()})
			}
			return transact(cmd, result, err, extra...)
		}),
	}
}

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "查询交易日志",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "按时间倒序列出交易日志",
		Args:  cobra.NoArgs,
	}
	var opts journal.ListOptions
	var statuses []string
	list.Flags().IntVar(&opts.Limit, "limit", 20, "最多返回的条数")
	list.Flags().StringVar(&opts.Sender, "sender", "", "只显示该账户发送的交易")
	list.Flags().StringVar(&opts.Operation, "operation", "", "只显示该操作，例如 submitProject")
	list.Flags().StringSliceVar(&statuses, "status", nil, "只显示这些状态：mined,reverted,failed")
	list.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
		defer cancel()

		cfg, err := config.Load(configPath())
		if err != nil {
			return err
		}
		if err := logger.Init(loggerConfig(cfg.Log)); err != nil {
			return err
		}
		recorder, err := buildJournal(ctx, journalStoreOnly(cfg.Journal))
		if err != nil {
			return err
		}
		defer recorder.Close()

		for _, status := range statuses {
			opts.Statuses = append(opts.Statuses, journal.Status(status))
		}
		entries, err := recorder.Store().List(ctx, opts)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tOPERATION\tSENDER\tSTATUS\tVALUE (WEI)\tTX")
		for _, entry := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				time.Unix(entry.CreatedAt, 0).Format("2006-01-02 15:04:05"),
				entry.Operation, entry.Sender, entry.Status, entry.Value, entry.TxHash)
		}
		return tw.Flush()
	}
	cmd.AddCommand(list)
	return cmd
}

// journalStoreOnly 查询日志时不需要连接消息队列。
func journalStoreOnly(cfg config.JournalConfig) config.JournalConfig {
	cfg.Publisher = config.JournalPublisherConfig{Driver: "none"}
	return cfg
}
