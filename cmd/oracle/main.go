package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "oracle",
		Short:        "Trusted oracle question engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the event log and list questions by category",
		RunE:  runScan,
	}
	addChainFlags(scanCmd)
	scanCmd.Flags().String("category", "LATEST", "list category (LATEST, CLOSING_SOON, HIGH_REWARD, RESOLVED)")
	scanCmd.Flags().Int("first", 20, "page size, 0 means all")
	scanCmd.Flags().String("out", "./data/questions.jsonl", "question snapshot JSONL path")
	scanCmd.Flags().String("state", "./data/scan_state.json", "scan state file path, empty disables")
	scanCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for snapshots and scan state")
	root.AddCommand(scanCmd)

	questionCmd := &cobra.Command{
		Use:   "question <question-id>",
		Short: "Reconstruct one question and print it",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuestion,
	}
	addChainFlags(questionCmd)
	root.AddCommand(questionCmd)

	claimsCmd := &cobra.Command{
		Use:   "claims",
		Short: "Compute the claimable balance for an account",
		RunE:  runClaims,
	}
	addChainFlags(claimsCmd)
	claimsCmd.Flags().String("account", "", "account address")
	root.AddCommand(claimsCmd)

	notificationsCmd := &cobra.Command{
		Use:   "notifications",
		Short: "Build the notification feed for an account",
		RunE:  runNotifications,
	}
	addChainFlags(notificationsCmd)
	notificationsCmd.Flags().String("account", "", "account address")
	notificationsCmd.Flags().String("currency", "TRST", "token unit shown in amounts")
	root.AddCommand(notificationsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Ethereum RPC URL")
	cmd.Flags().String("contract", "", "oracle contract address")
	cmd.Flags().Int64("initial-block", -1, "scan start block, -1 uses the network table")
	cmd.Flags().Int("concurrency", 8, "parallel reconstructions")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
