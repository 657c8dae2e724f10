package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oraclescope/internal/oracle"
	"oraclescope/internal/storage"
	"oraclescope/internal/storage/postgres"
)

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	svc, err := newService(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	category, _ := cmd.Flags().GetString("category")
	first, _ := cmd.Flags().GetInt("first")

	latest, err := svc.chain.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	scanner := oracle.NewScanner(svc.contract, svc.cache, svc.initialBlock, latest, svc.logger)
	contractKey := fmt.Sprintf("scanner:%s", svc.contract.Address().Hex())

	var store *postgres.Store
	if svc.cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, svc.cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
	}

	stateFile := oracle.NewScanStateFile(svc.cfg.StatePath, svc.cfg.StatePath != "")
	cursor, resumed, err := stateFile.Load()
	if err != nil {
		return err
	}
	if !resumed && store != nil {
		toBlock, windowIndex, ok, err := store.LoadScanState(ctx, contractKey)
		if err != nil {
			return fmt.Errorf("load scan state: %w", err)
		}
		if ok {
			cursor = oracle.ScanCursor{ToBlock: toBlock, WindowIndex: windowIndex}
			resumed = true
		}
	}
	if resumed {
		scanner.Resume(cursor)
		svc.logger.Info("resume scan",
			zap.Uint64("to_block", cursor.ToBlock),
			zap.Int("window_index", cursor.WindowIndex))
	}

	svc.logger.Info("scan start",
		zap.Uint64("latest", latest),
		zap.Uint64("initial_block", svc.initialBlock),
		zap.String("category", category),
	)

	for !scanner.Exhausted() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := scanner.Tick(ctx); err != nil {
			return err
		}
		if err := stateFile.Save(scanner.Cursor()); err != nil {
			return err
		}
	}

	result := scanner.List(oracle.Category(category), first)
	svc.logger.Info("scan complete",
		zap.Int("discovered", svc.cache.Len()),
		zap.Int("in_category", result.Total),
	)

	if err := persistSnapshots(ctx, svc, store, contractKey, scanner.Cursor()); err != nil {
		return err
	}

	return printJSON(result.Questions)
}

func persistSnapshots(ctx context.Context, svc *service, store *postgres.Store, contractKey string, cursor oracle.ScanCursor) error {
	questions := svc.cache.Questions()

	if svc.cfg.Out != "" {
		sink := storage.NewJsonlStorage(svc.cfg.Out)
		if err := sink.PutQuestionBatch(questions); err != nil {
			return err
		}
		svc.logger.Info("snapshots written", zap.String("out", svc.cfg.Out), zap.Int("questions", len(questions)))
	}

	if store == nil {
		return nil
	}
	if err := store.UpsertQuestions(ctx, questions); err != nil {
		return fmt.Errorf("upsert questions: %w", err)
	}
	if err := store.SaveScanState(ctx, contractKey, cursor.ToBlock, cursor.WindowIndex); err != nil {
		return fmt.Errorf("save scan state: %w", err)
	}
	svc.logger.Info("snapshots upserted", zap.String("pg_dsn", redactDSN(svc.cfg.PGDSN)), zap.Int("questions", len(questions)))
	return nil
}

func runQuestion(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	svc, err := newService(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	id := common.HexToHash(args[0])
	question, err := svc.cache.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(question)
}

func runClaims(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	svc, err := newService(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	account, err := parseAccount(svc.cfg.Account)
	if err != nil {
		return err
	}

	view := oracle.NewAccountView(svc.contract, svc.cache, svc.initialBlock)
	claim, err := view.Claimable(ctx, account, time.Now().UTC())
	if err != nil {
		return err
	}
	if claim == nil {
		svc.logger.Info("nothing claimable", zap.String("account", account.Hex()))
		return printJSON(struct{}{})
	}

	return printJSON(struct {
		Total     string                `json:"total"`
		GasLimit  uint64                `json:"gas_limit"`
		Arguments oracle.ClaimArguments `json:"arguments"`
	}{
		Total:     claim.Total.String(),
		GasLimit:  claim.GasLimit(),
		Arguments: claim.Arguments,
	})
}

func runNotifications(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	svc, err := newService(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	account, err := parseAccount(svc.cfg.Account)
	if err != nil {
		return err
	}

	builder := oracle.NewFeedBuilder(svc.contract, svc.cache, svc.initialBlock, svc.cfg.Currency, svc.logger)
	notifications, err := builder.Build(ctx, account)
	if err != nil {
		return err
	}
	return printJSON(notifications)
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
