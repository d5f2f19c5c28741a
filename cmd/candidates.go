package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/logger"
	"github.com/spigell/hiresense/internal/memory"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List candidates stored by the last run",
	Run: func(cmd *cobra.Command, _ []string) {
		listCandidates(cmd)
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)

	candidatesCmd.Flags().Float64("min-score", memory.DefaultThreshold, "minimum updated score")
	candidatesCmd.Flags().Bool("all", false, "list every stored candidate regardless of score")
	candidatesCmd.Flags().StringP("format", "f", "table", "output format: table, csv, json or yaml")
}

func listCandidates(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.Build(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := memory.Open(ctx, &config.Memory, logger)
	if err != nil {
		logger.Fatal("opening memory store", zap.Error(err))
	}
	defer store.Close()

	minScore, _ := cmd.Flags().GetFloat64("min-score")
	all, _ := cmd.Flags().GetBool("all")
	format, _ := cmd.Flags().GetString("format")

	var candidates *hiring.Candidates
	if all {
		candidates, err = store.All(ctx)
	} else {
		candidates, err = store.Selected(ctx, minScore)
	}
	if err != nil {
		logger.Fatal("querying candidates", zap.Error(err),
			zap.String("hint", "run 'hiresense run' first to populate the memory store"),
		)
	}

	if format == "table" {
		fmt.Println(renderScorecards(candidates.Scorecards()))
		return
	}

	if err := hiring.Export(os.Stdout, hiring.Format(format), candidates); err != nil {
		logger.Fatal("printing candidates", zap.Error(err))
	}
}
