// Package branches resolves venues by name, alias or CRM pipeline.
package branches

import (
	"errors"
	"fmt"
	"strings"

	"amokanban/internal/normalizer"
	"amokanban/pkg/config"

	"github.com/go-playground/validator/v10"
)

// UnknownBranch is reported for pipelines that belong to no configured branch.
const UnknownBranch = "unknown"

var (
	ErrNoBranches        = errors.New("no branches configured")
	ErrDuplicateBranch   = errors.New("duplicate branch name")
	ErrDuplicatePipeline = errors.New("pipeline assigned to more than one branch")
	ErrUnknownDefault    = errors.New("default branch is not configured")
)

type Registry struct {
	branches   []config.BranchConfig
	byName     map[string]int
	byPipeline map[int64]int
	def        string
}

// NewRegistry validates the branch table and indexes it. defaultBranch must
// be one of the configured names.
func NewRegistry(branches []config.BranchConfig, defaultBranch string) (*Registry, error) {
	if len(branches) == 0 {
		return nil, ErrNoBranches
	}

	validate := validator.New()
	r := &Registry{
		branches:   make([]config.BranchConfig, len(branches)),
		byName:     make(map[string]int, len(branches)),
		byPipeline: make(map[int64]int, len(branches)),
		def:        defaultBranch,
	}

	for i, b := range branches {
		if err := validate.Struct(b); err != nil {
			return nil, fmt.Errorf("branch %q: %w", b.Name, err)
		}
		if _, dup := r.byName[b.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBranch, b.Name)
		}
		if _, dup := r.byPipeline[b.PipelineID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePipeline, b.PipelineID)
		}
		r.branches[i] = b
		r.byName[b.Name] = i
		r.byPipeline[b.PipelineID] = i
	}

	if _, ok := r.byName[defaultBranch]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefault, defaultBranch)
	}
	return r, nil
}

// Names lists branches in configuration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.branches))
	for i, b := range r.branches {
		names[i] = b.Name
	}
	return names
}

func (r *Registry) ByName(name string) (config.BranchConfig, bool) {
	i, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return config.BranchConfig{}, false
	}
	return r.branches[i], true
}

func (r *Registry) ByPipeline(pipelineID int64) (config.BranchConfig, bool) {
	i, ok := r.byPipeline[pipelineID]
	if !ok {
		return config.BranchConfig{}, false
	}
	return r.branches[i], true
}

// NameForPipeline returns UnknownBranch when no branch owns the pipeline.
func (r *Registry) NameForPipeline(pipelineID int64) string {
	if b, ok := r.ByPipeline(pipelineID); ok {
		return b.Name
	}
	return UnknownBranch
}

// Lookup returns the named branch or the default one, and whether the name
// was known.
func (r *Registry) Lookup(name string) (config.BranchConfig, bool) {
	if b, ok := r.ByName(name); ok {
		return b, true
	}
	return r.branches[r.byName[r.def]], false
}

// Resolve maps free text, typically the lead's branch field, to a branch
// name: exact name first, then the first alias or name contained in the
// text, else the default branch.
func (r *Registry) Resolve(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return r.def
	}
	if _, ok := r.byName[text]; ok {
		return text
	}

	lower := strings.ToLower(text)
	for _, b := range r.branches {
		if strings.Contains(lower, strings.ToLower(b.Name)) {
			return b.Name
		}
		for _, alias := range b.Aliases {
			if strings.Contains(lower, strings.ToLower(alias)) {
				return b.Name
			}
		}
	}
	return r.def
}

// StatusID returns the status id stored under key for the branch, 0 when
// the branch or the key is unknown.
func (r *Registry) StatusID(branch, key string) int64 {
	b, ok := r.ByName(branch)
	if !ok {
		return 0
	}
	return b.Statuses[key]
}

// ZoneTables builds the zone label -> table id tables for the normalizer.
func (r *Registry) ZoneTables() map[string]map[string]int {
	tables := make(map[string]map[string]int, len(r.branches))
	for _, b := range r.branches {
		prefix := b.Zones.Prefix
		if prefix == "" {
			prefix = "Зона"
		}
		table := normalizer.SequentialZones(prefix, b.Zones.Count)
		for label, id := range b.Zones.Extra {
			table[label] = id
		}
		tables[b.Name] = table
	}
	return tables
}

// ZoneMapper is a normalizer.ZoneMapper over ZoneTables.
func (r *Registry) ZoneMapper() *normalizer.ZoneMapper {
	return normalizer.NewZoneMapper(r.ZoneTables())
}
