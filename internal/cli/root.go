package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/apk-analysis/apk-fingerprint-go/internal/fingerprint"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// 构建信息，由 cmd/apkscan 注入
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// errUsage 参数错误，用法已经打印过
var errUsage = errors.New("usage")

type rootOptions struct {
	ConfigPath string
	LogLevel   string
	RulesFile  string
	Workers    int
}

// Execute 运行 CLI，返回进程退出码
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	scanOpts := &scanOptions{}

	rootCmd := &cobra.Command{
		Use:   "apkscan <APK>",
		Short: "Fingerprint cross-platform frameworks and security SDKs inside an APK",
		Long: `Fingerprint cross-platform frameworks and security SDKs inside an APK.

An argument that matches a subcommand name (serve, watch, rules, migrate) runs
that subcommand. To scan an APK file with one of those names, give it a path,
for example "apkscan ./rules".`,
		Example: `  apkscan app.apk
  apkscan app.apk -o report.json
  apkscan ./rules`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				cmd.SetOut(cmd.ErrOrStderr())
				cmd.Usage()
				return errUsage
			}
			return runScan(cmd, opts, scanOpts, args[0])
		},
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("apkscan version {{.Version}} (commit %s, built %s)\n", GitCommit, BuildTime))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Path to config.yaml (default "+config.DefaultPath+" if present)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.RulesFile, "rules", "", "YAML file with extra fingerprint rules")
	flags.IntVar(&opts.Workers, "workers", 0, "Number of rules evaluated in parallel")

	rootCmd.Flags().StringVarP(&scanOpts.Output, "output", "o", "", "Write the JSON report to FILE")
	rootCmd.Flags().BoolVar(&scanOpts.Save, "save", false, "Persist the scan to the configured database")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newWatchCmd(opts),
		newRulesCmd(opts),
		newMigrateCmd(opts),
	)

	return rootCmd
}

// loadConfig 读取配置并应用命令行覆盖。CLI 模式日志写到 stderr。
func loadConfig(cmd *cobra.Command, opts *rootOptions, cliMode bool) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	} else if cliMode {
		cfg.Log.Level = "warn"
	}
	if cliMode {
		cfg.Log.Output = "stderr"
	}
	if opts.RulesFile != "" {
		cfg.Scan.RulesFile = opts.RulesFile
	}
	if cmd.Flags().Changed("workers") {
		cfg.Scan.Workers = opts.Workers
	}

	logger := config.InitLogger(&cfg.Log)
	if cliMode {
		logger.SetOutput(cmd.ErrOrStderr())
	}
	return cfg, logger, nil
}

func loadCatalogue(cfg *config.Config, logger *logrus.Logger) (*fingerprint.Catalogue, error) {
	catalogue, err := fingerprint.LoadCatalogue(cfg.Scan.RulesFile)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"rules":      catalogue.Len(),
		"rules_file": cfg.Scan.RulesFile,
	}).Debug("Fingerprint catalogue loaded")
	return catalogue, nil
}
