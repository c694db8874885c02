// finman-reconcile verifies that every account's incrementally maintained
// balance agrees with a full recompute from its transaction history, and
// optionally repairs the drifted ones.
//
// Without flags it only reports; -apply persists the recomputed balances.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finman/internal/config"
	"finman/internal/core"
	"finman/internal/events"
	"finman/internal/log"
	"finman/internal/services"
	"finman/internal/storage"
)

func main() {
	apply := flag.Bool("apply", false, "persist recomputed balances for drifted accounts")
	flag.Parse()

	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: "finman-reconcile",
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *apply); err != nil {
		logger.Error("Reconcile failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, apply bool) error {
	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect AMQP: %w", err)
		}
		defer publisher.Close()
		logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, balance events will not be published")
	}

	accountSvc := services.NewAccountService(repo, publisher)

	accounts, err := repo.Queries().ListAllAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	logger.Info("Checking accounts", "count", len(accounts), "apply", apply)

	var checked, drifted, repaired atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.ReconcileWorkers)
	for _, acc := range accounts {
		acc := acc
		g.Go(func() error {
			recomputed, err := recompute(gctx, repo.Queries(), acc)
			if err != nil {
				return fmt.Errorf("account %s: %w", acc.ID, err)
			}
			checked.Add(1)

			if recomputed.Equal(acc.Balance) {
				logger.Debug("Account balance consistent", log.FieldAccountID, acc.ID, log.FieldBalance, acc.Balance)
				return nil
			}

			drifted.Add(1)
			logger.Warn("Account balance drift detected",
				log.FieldAccountID, acc.ID,
				log.FieldUserID, acc.UserID,
				"stored", acc.Balance,
				"recomputed", recomputed,
				"drift", acc.Balance.Sub(recomputed))

			if !apply {
				return nil
			}
			if _, err := accountSvc.Recalculate(gctx, acc.UserID, acc.ID); err != nil {
				return fmt.Errorf("recalculate account %s: %w", acc.ID, err)
			}
			repaired.Add(1)
			logger.Info("Account balance repaired", log.FieldAccountID, acc.ID, log.FieldBalance, recomputed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Reconcile finished",
		"checked", checked.Load(),
		"drifted", drifted.Load(),
		"repaired", repaired.Load())
	return nil
}

// recompute derives the account balance from its full history without
// writing anything.
func recompute(ctx context.Context, q *storage.Queries, acc core.Account) (decimal.Decimal, error) {
	expenses, err := q.ListExpensesByAccount(ctx, acc.ID)
	if err != nil {
		return decimal.Zero, err
	}
	incomes, err := q.ListIncomesByAccount(ctx, acc.ID)
	if err != nil {
		return decimal.Zero, err
	}

	totalExpenses := decimal.Zero
	for _, e := range expenses {
		totalExpenses = totalExpenses.Add(e.Amount)
	}
	totalIncomes := decimal.Zero
	for _, in := range incomes {
		totalIncomes = totalIncomes.Add(in.Amount)
	}
	return core.RecomputedBalance(acc.Type, totalExpenses, totalIncomes), nil
}
