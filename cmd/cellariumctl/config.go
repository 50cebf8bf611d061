package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cellarium/pkg/cellarium"
)

// simulateFileConfig mirrors SimulateRequest for YAML run configs.
type simulateFileConfig struct {
	GridSize    int     `yaml:"grid_size"`
	Rule        string  `yaml:"rule"`
	Custom      bool    `yaml:"custom"`
	SurvivalMin int     `yaml:"survival_min"`
	SurvivalMax int     `yaml:"survival_max"`
	Birth       int     `yaml:"birth"`
	Generations int     `yaml:"generations"`
	Seed        int64   `yaml:"seed"`
	Density     float64 `yaml:"density"`
	Pattern     string  `yaml:"pattern"`
	PatternRow  int     `yaml:"pattern_row"`
	PatternCol  int     `yaml:"pattern_col"`
}

type raceFileConfig struct {
	Rules       []string `yaml:"rules"`
	GridSize    int      `yaml:"grid_size"`
	Generations int      `yaml:"generations"`
	Seed        int64    `yaml:"seed"`
	Density     float64  `yaml:"density"`
	Workers     int      `yaml:"workers"`
}

func loadSimulateRequest(path string) (cellarium.SimulateRequest, error) {
	var cfg simulateFileConfig
	if err := loadYAML(path, &cfg); err != nil {
		return cellarium.SimulateRequest{}, err
	}
	return cellarium.SimulateRequest{
		GridSize:    cfg.GridSize,
		Rule:        cfg.Rule,
		Custom:      cfg.Custom,
		SurvivalMin: cfg.SurvivalMin,
		SurvivalMax: cfg.SurvivalMax,
		Birth:       cfg.Birth,
		Generations: cfg.Generations,
		Seed:        cfg.Seed,
		Density:     cfg.Density,
		Pattern:     cfg.Pattern,
		PatternRow:  cfg.PatternRow,
		PatternCol:  cfg.PatternCol,
	}, nil
}

func loadRaceRequest(path string) (cellarium.RaceRequest, error) {
	var cfg raceFileConfig
	if err := loadYAML(path, &cfg); err != nil {
		return cellarium.RaceRequest{}, err
	}
	return cellarium.RaceRequest{
		Rules:       cfg.Rules,
		GridSize:    cfg.GridSize,
		Generations: cfg.Generations,
		Seed:        cfg.Seed,
		Density:     cfg.Density,
		Workers:     cfg.Workers,
	}, nil
}

// loadYAML decodes a config file strictly, rejecting unknown keys.
func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
