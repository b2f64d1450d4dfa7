package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chisel/store/internal/server"
	"chisel/store/pkg/cluster/rpc"
	"chisel/store/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	name = "chisel"
)

var (
	cfgFile string
	options = server.DefaultOptions()
	rootCmd = &cobra.Command{
		Use:   name,
		Short: "chisel, a replicated SQL store over multi-paxos.",
		Long:  `chisel, a replicated SQL store over multi-paxos.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	executeTo      uint64
	executeTimeout time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config.yml", "config file path")
	cobra.OnInitialize(initConfig)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a node's consensus transport.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	executeCmd := &cobra.Command{
		Use:   "execute <sql>",
		Short: "Execute a SQL statement on a cluster node.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), args[0])
		},
	}
	executeCmd.Flags().Uint64Var(&executeTo, "to", 1, "id of the node to query")
	executeCmd.Flags().DurationVar(&executeTimeout, "timeout", 10*time.Second, "request timeout")

	rootCmd.AddCommand(serveCmd, executeCmd)
}

func initConfig() {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
	}
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		logger.Warn("No valid config found: Applying default values.", zap.Error(err))
	}
	if err := options.ConfigureWithViper(v); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logger.InitWithConfig(&logger.LogOptions{
		Name:     name,
		LogLevel: options.Logger.Level,
		LogDir:   options.Logger.Dir,
		LineNum:  options.Logger.LineNum,
		Encoding: options.Logger.Encoding,
	})
}

func serve() error {
	s := server.New(options, nil)
	if err := s.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logger.Info("shutting down", zap.String("signal", sig.String()))
	s.Stop()
	_ = logger.Sync()
	return nil
}

func execute(ctx context.Context, sql string) error {
	if options.AddrOf(executeTo) == "" {
		return fmt.Errorf("node %d is not in cluster.nodes", executeTo)
	}
	tr := rpc.NewTransport(options.AddrFunc(), rpc.WithNodeId(options.NodeId), rpc.WithConnectTimeout(options.Cluster.ConnectTimeout))
	defer tr.Stop()

	ctx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()
	results, err := tr.Execute(ctx, executeTo, sql)
	if err != nil {
		return err
	}
	for _, row := range results.Rows {
		fmt.Println(strings.Join(row.Values, "\t"))
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
