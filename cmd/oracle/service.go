package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oraclescope/internal/chain"
	"oraclescope/internal/config"
	"oraclescope/internal/oracle"
	"oraclescope/internal/realitio"
)

// service wires the chain client, contract, reconstructor and cache for one
// command invocation.
type service struct {
	cfg          config.Config
	logger       *zap.Logger
	chain        *chain.Client
	contract     *realitio.Contract
	cache        *oracle.Cache
	initialBlock uint64
}

func newService(ctx context.Context, cmd *cobra.Command) (*service, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("valid contract address is required")
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	initialBlock := cfg.ResolveInitialBlock(chainID.Uint64())

	contract, err := realitio.NewContract(chainClient, common.HexToAddress(cfg.Contract), logger)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	reconstructor := oracle.NewReconstructor(contract, initialBlock, oracle.ReconstructorConfig{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	cache := oracle.NewCache(reconstructor.Reconstruct, cfg.Concurrency, logger)

	logger.Info("service ready",
		zap.String("contract", cfg.Contract),
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Uint64("initial_block", initialBlock),
	)

	return &service{
		cfg:          cfg,
		logger:       logger,
		chain:        chainClient,
		contract:     contract,
		cache:        cache,
		initialBlock: initialBlock,
	}, nil
}

func (s *service) Close() {
	s.cache.Close()
	s.chain.Close()
	s.logger.Sync()
}

func parseAccount(account string) (common.Address, error) {
	if !common.IsHexAddress(account) {
		return common.Address{}, fmt.Errorf("valid account address is required")
	}
	return common.HexToAddress(account), nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
