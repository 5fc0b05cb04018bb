package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the scoring service is up",
	Run: func(_ *cobra.Command, _ []string) {
		health()
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func health() {
	logger, config := setup()

	client, err := newClient(config, logger)
	if err != nil {
		logger.Fatal("creating scoring client", zap.Error(err))
	}

	ctx, cancel := withTimeout(context.Background(), config.Estimate.Timeout)
	defer cancel()

	status, err := client.Health(ctx)
	if err != nil {
		logger.Fatal("checking health", zap.String("api_url", client.APIURL), zap.Error(err))
	}

	fmt.Printf("%s: %s\n", client.APIURL, status)
}
