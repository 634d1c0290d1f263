// Command penmarket runs the terminal storefront against a local chain node
// and the catalog backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	penmarket "github.com/penmarket/penmarket-go"
	"github.com/penmarket/penmarket-go/catalog"
	"github.com/penmarket/penmarket-go/chain"
	"github.com/penmarket/penmarket-go/internal/config"
	"github.com/penmarket/penmarket-go/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "penmarket: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	logger := slog.Default()

	if os.Getenv("PENMARKET_DEBUG") != "" {
		f, err := tea.LogToFile("penmarket-debug.log", "debug")
		if err != nil {
			return fmt.Errorf("failed to open debug log: %w", err)
		}
		defer f.Close()
	}

	chainClient, err := chain.Dial(context.Background(), cfg.ChainRPCURL)
	if err != nil {
		return fmt.Errorf("failed to reach chain node at %s: %w", cfg.ChainRPCURL, err)
	}
	defer chainClient.Close()

	catalogClient := catalog.NewClient(&catalog.Config{
		BaseURL: cfg.CatalogURL,
		Timeout: cfg.HTTPTimeout,
	})

	notifier := penmarket.NewNotifier(cfg.NotificationTTL)
	flow := penmarket.NewPurchaseFlow(chainClient, notifier,
		penmarket.WithTransferGas(cfg.TransferGas),
		penmarket.WithHooks(buildHooks(cfg, catalogClient, logger)),
	)

	// Warm up both collaborators concurrently. Neither is fatal: the UI
	// reports an empty catalog or a failing chain per interaction.
	warmup(context.Background(), chainClient, catalogClient, logger)

	program := tea.NewProgram(tui.New(flow, notifier, catalogClient), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("storefront exited: %w", err)
	}
	return nil
}

// buildHooks records completed purchases against the catalog backend when a
// buyer identity is configured, and logs every settlement either way.
func buildHooks(cfg config.Config, catalogClient *catalog.Client, logger *slog.Logger) penmarket.PurchaseHooks {
	hooks := penmarket.PurchaseHooks{
		AfterSuccess: []penmarket.AfterPurchaseSuccessHook{
			func(pc penmarket.PurchaseSuccessContext) error {
				logger.Info("purchase settled",
					"item_id", pc.Session.Item.ID,
					"item", pc.Session.Item.Name,
					"receipt", pc.Receipt,
					"took", pc.Duration,
				)
				return nil
			},
		},
		AfterFailure: []penmarket.AfterPurchaseFailureHook{
			func(pc penmarket.PurchaseFailureContext) error {
				logger.Warn("purchase failed",
					"item_id", pc.Session.Item.ID,
					"reason", pc.Reason,
					"took", pc.Duration,
				)
				return nil
			},
		},
	}

	if cfg.BuyerID > 0 {
		hooks.AfterSuccess = append(hooks.AfterSuccess,
			func(pc penmarket.PurchaseSuccessContext) error {
				purchaseID, err := catalogClient.BuyPen(pc.Ctx, pc.Session.Item.ID, cfg.BuyerID, pc.Receipt)
				if err != nil {
					return fmt.Errorf("failed to record purchase: %w", err)
				}
				logger.Info("purchase recorded", "purchase_id", purchaseID)
				return nil
			},
		)
	}
	return hooks
}

// warmup probes the chain node and the catalog backend concurrently so
// obvious misconfiguration shows up in the log before the UI takes over.
func warmup(ctx context.Context, chainClient *chain.Client, catalogClient *catalog.Client, logger *slog.Logger) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		accounts, err := chainClient.Accounts(ctx)
		if err != nil {
			logger.Warn("chain node not responding", "error", err)
			return nil
		}
		logger.Info("chain node ready", "accounts", len(accounts))
		return nil
	})
	g.Go(func() error {
		pens, err := catalogClient.AllPens(ctx)
		if err != nil {
			logger.Warn("catalog backend not responding", "error", err)
			return nil
		}
		logger.Info("catalog ready", "pens", len(pens))
		return nil
	})

	g.Wait()
}
