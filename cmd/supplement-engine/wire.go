// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/pdiddy/supplement-engine/internal/curate"
	"github.com/pdiddy/supplement-engine/internal/llm"
	"github.com/pdiddy/supplement-engine/internal/pipeline"
	"github.com/pdiddy/supplement-engine/internal/source"
	"github.com/pdiddy/supplement-engine/internal/synth"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

// newSource builds the configured study source.
func newSource(cfg types.SourceConfig) (source.Source, error) {
	return source.New(cfg, &http.Client{Timeout: cfg.Timeout})
}

// newPipeline builds the full analysis pipeline from cfg.
func newPipeline(cfg types.AppConfig) (*pipeline.Pipeline, error) {
	src, err := newSource(cfg.Source)
	if err != nil {
		return nil, err
	}

	selModel, err := llm.New(cfg.Curation.AIConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("curation model: %w", err)
	}
	synModel, err := llm.New(cfg.Synthesis.AIConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("synthesis model: %w", err)
	}

	cur := curate.NewCurator(
		&curate.LLMSelector{Completer: selModel, Temperature: cfg.Curation.Temperature},
		curate.Options{MaxSelections: cfg.Curation.MaxSelections, AbstractLimit: cfg.Curation.AbstractLimit},
	)
	syn := &synth.LLMSynthesizer{
		Completer:     synModel,
		Temperature:   cfg.Synthesis.Temperature,
		AbstractLimit: cfg.Synthesis.AbstractLimit,
	}
	return pipeline.New(src, cur, syn, cfg.Source.MaxResults), nil
}
