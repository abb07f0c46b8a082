package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Status keys every branch may define.
const (
	StatusToday     = "today"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// BranchConfig ties a venue to its CRM pipeline, status ids and zone tables.
type BranchConfig struct {
	Name       string           `yaml:"name" validate:"required"`
	PipelineID int64            `yaml:"pipeline_id" validate:"required,gt=0"`
	Aliases    []string         `yaml:"aliases" validate:"dive,required"`
	Statuses   map[string]int64 `yaml:"statuses" validate:"dive,keys,required,endkeys,gt=0"`
	Zones      ZoneConfig       `yaml:"zones"`
}

// ZoneConfig describes the zone label -> table id table of a branch:
// Prefix+" 1" .. Prefix+" Count" map to 1..Count, Extra adds named zones.
type ZoneConfig struct {
	Prefix string         `yaml:"prefix"`
	Count  int            `yaml:"count" validate:"gte=0,lte=1000"`
	Extra  map[string]int `yaml:"extra" validate:"dive,keys,required,endkeys,gte=1"`
}

type branchesFile struct {
	Branches []BranchConfig `yaml:"branches"`
}

func DefaultBranches() []BranchConfig {
	return []BranchConfig{
		{
			Name:       "МСК",
			PipelineID: 5096620,
			Aliases:    []string{"Московское", "Москва", "MSK"},
			Statuses: map[string]int64{
				StatusToday:     45762658,
				StatusConfirmed: 45762659,
				StatusCompleted: 45762660,
				StatusCancelled: 45762661,
			},
			Zones: ZoneConfig{Prefix: "Зона", Count: 22},
		},
		{
			Name:       "Полевая",
			PipelineID: 5998579,
			Aliases:    []string{"Полевая"},
			Statuses: map[string]int64{
				StatusToday:     52167655,
				StatusConfirmed: 52167656,
				StatusCompleted: 52167657,
				StatusCancelled: 52167658,
			},
			Zones: ZoneConfig{Prefix: "Зона", Count: 20},
		},
	}
}

// LoadBranches reads the branch table from a YAML file. An empty path yields
// the built-in defaults.
func LoadBranches(path string) ([]BranchConfig, error) {
	if path == "" {
		return DefaultBranches(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read branches file: %w", err)
	}
	return ParseBranches(data)
}

func ParseBranches(data []byte) ([]BranchConfig, error) {
	var file branchesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse branches file: %w", err)
	}
	if len(file.Branches) == 0 {
		return nil, fmt.Errorf("branches file defines no branches")
	}
	return file.Branches, nil
}
