package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"agri-market/internal/dto"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch today's market prices once and reconcile them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithServices(func(ctx context.Context, appDep *AppDependency) (interface{}, error) {
			return appDep.Services().MarketPriceService.Ingest(ctx)
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print the trend report for the two newest history dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithServices(func(ctx context.Context, appDep *AppDependency) (interface{}, error) {
			report, err := appDep.Services().MarketAnalysisService.AnalyzeTrends(ctx)
			var insufficient *dto.InsufficientHistoryError
			if errors.As(err, &insufficient) {
				fmt.Fprintln(os.Stderr, insufficient.Error())
				return nil, nil
			}
			return report, err
		})
	},
}

// runWithServices builds the dependencies, runs fn and prints its result as JSON.
func runWithServices(fn func(ctx context.Context, appDep *AppDependency) (interface{}, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return fmt.Errorf("failed to create app dependency: %w", err)
	}
	defer appDep.Close()

	result, err := fn(ctx, appDep)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
