// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/supplement-engine/internal/pipeline"
	"github.com/pdiddy/supplement-engine/internal/report"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis for one supplement",
	Long: `Analyze searches for studies on a supplement, curates the most relevant
ones for the given age and goal, and prints a cited summary.

Output formats: text (default), json, yaml, and csl (the bibliography as
CSL-YAML for Pandoc and reference managers).`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("supplement", "", "supplement to research (e.g. creatine)")
	analyzeCmd.Flags().Int("age", 0, "age of the reader in years (1-120)")
	analyzeCmd.Flags().String("goal", types.DefaultGoal, "reader's goal (e.g. muscle gain, sleep)")
	analyzeCmd.Flags().String("format", string(report.FormatText), "output format: text, json, yaml, csl")
	_ = analyzeCmd.MarkFlagRequired("supplement")
	_ = analyzeCmd.MarkFlagRequired("age")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	supplement, _ := cmd.Flags().GetString("supplement")
	age, _ := cmd.Flags().GetInt("age")
	goal, _ := cmd.Flags().GetString("goal")
	formatName, _ := cmd.Flags().GetString("format")

	if age < 1 || age > 120 {
		return fmt.Errorf("--age must be between 1 and 120")
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	req := types.AnalysisRequest{Supplement: supplement, Age: age, Goal: goal}
	final, err := p.Run(cmd.Context(), req)
	if err != nil {
		fmt.Fprintln(os.Stderr, pipeline.UserMessage(err))
		return err
	}
	return report.Write(format, req, final, os.Stdout)
}
