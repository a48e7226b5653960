// Package commands indexes the slash commands and skills available to a
// provider, ranks them by usage and fuzzy-matches them against typed text.
package commands

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
)

// FrequentLimit is how many commands the frequent view lists
const FrequentLimit = 5

// Resolver caches command catalogs and usage history for one application
// session. Built-in commands are fetched once; skills are cached per provider.
type Resolver struct {
	catalog ports.CommandCatalog
	kv      ports.KVStore

	mu       sync.Mutex
	builtIns []domain.SlashCommand
	custom   []domain.SlashCommand
	loaded   bool
	merged   []domain.SlashCommand
	project  domain.Project
	provider domain.Provider
	skills   map[domain.Provider][]domain.SlashCommand
	usage    map[string]int
}

// NewResolver creates a resolver over the listing/execution collaborator and the KV store
func NewResolver(catalog ports.CommandCatalog, kv ports.KVStore) *Resolver {
	return &Resolver{
		catalog: catalog,
		kv:      kv,
		skills:  map[domain.Provider][]domain.SlashCommand{},
		usage:   map[string]int{},
	}
}

// Load fetches the catalog for project and provider. forceReloadSkills
// bypasses the skill cache; the built-in cache is never bypassed.
func (r *Resolver) Load(ctx context.Context, project domain.Project, provider domain.Provider, forceReloadSkills bool) error {
	if r.catalog == nil {
		return domain.ErrNoCatalog
	}
	r.mu.Lock()
	_, haveSkills := r.skills[provider]
	needBuiltIns := r.builtIns == nil
	r.mu.Unlock()

	includeSkills := forceReloadSkills || !haveSkills
	listing, err := r.catalog.List(ctx, ports.ListCommandsRequest{
		ForceReloadSkills: forceReloadSkills,
		IncludeSkills:     includeSkills,
		ProjectPath:       project.WorkingDir(),
		Provider:          provider,
	})
	if err != nil {
		return fmt.Errorf("failed to list commands: %w", err)
	}

	usage := r.readUsage(ctx, project, provider)

	r.mu.Lock()
	defer r.mu.Unlock()

	if needBuiltIns {
		r.builtIns = withType(listing.BuiltIn, domain.CommandBuiltIn)
	}
	if includeSkills {
		r.skills[provider] = withType(listing.Skills, domain.CommandSkill)
	}
	r.custom = withType(listing.Custom, domain.CommandCustom)
	r.project = project
	r.provider = provider
	r.usage = usage
	r.loaded = true
	r.rebuild()

	logging.Logger.Debug("Commands loaded",
		"provider", provider,
		"built_in", len(r.builtIns),
		"custom", len(r.custom),
		"skills", len(r.skills[provider]),
		"skills_from_cache", !includeSkills)
	return nil
}

func withType(cmds []domain.SlashCommand, t domain.CommandType) []domain.SlashCommand {
	out := make([]domain.SlashCommand, len(cmds))
	for i, c := range cmds {
		if c.Type == "" {
			c.Type = t
		}
		out[i] = c
	}
	return out
}

// rebuild merges built-ins, custom commands and skills, dropping duplicate
// names, and sorts by usage. Callers hold r.mu.
func (r *Resolver) rebuild() {
	seen := map[string]bool{}
	var merged []domain.SlashCommand
	for _, group := range [][]domain.SlashCommand{r.builtIns, r.custom, r.skills[r.provider]} {
		for _, c := range group {
			if c.Name == "" || seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			merged = append(merged, c)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return r.usage[merged[i].Name] > r.usage[merged[j].Name]
	})
	r.merged = merged
}

// Loaded reports whether a catalog has been fetched
func (r *Resolver) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Commands returns the merged catalog, most used first
func (r *Resolver) Commands() []domain.SlashCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.merged)
}

// Lookup returns the catalog entry named name
func (r *Resolver) Lookup(name string) (domain.SlashCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.merged {
		if c.Name == name {
			return c, true
		}
	}
	return domain.SlashCommand{}, false
}

// Skills returns the skills of the current provider
func (r *Resolver) Skills() []domain.SlashCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.skills[r.provider])
}

// Frequent lists the most used non-skill commands
func (r *Resolver) Frequent() []domain.SlashCommand {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.SlashCommand
	for _, c := range r.merged {
		if c.IsSkill() || r.usage[c.Name] == 0 {
			continue
		}
		out = append(out, c)
		if len(out) == FrequentLimit {
			break
		}
	}
	return out
}

// Usage returns how many times name was run
func (r *Resolver) Usage(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage[name]
}

// RecordUsage counts one run of name and persists the history
func (r *Resolver) RecordUsage(ctx context.Context, name string) {
	r.mu.Lock()
	r.usage[name]++
	usage := make(map[string]int, len(r.usage))
	for k, v := range r.usage {
		usage[k] = v
	}
	key := ports.CommandHistoryKey(r.project.Name, string(r.provider))
	r.rebuild()
	r.mu.Unlock()

	if r.kv == nil {
		return
	}
	if err := r.kv.Set(ctx, key, usage); err != nil {
		logging.Logger.Warn("Failed to persist command history", "key", key, "error", err)
	}
}

func (r *Resolver) readUsage(ctx context.Context, project domain.Project, provider domain.Provider) map[string]int {
	usage := map[string]int{}
	if r.kv == nil {
		return usage
	}
	key := ports.CommandHistoryKey(project.Name, string(provider))
	if _, err := r.kv.Get(ctx, key, &usage); err != nil {
		logging.Logger.Warn("Failed to read command history", "key", key, "error", err)
		return map[string]int{}
	}
	return usage
}

// Search returns the commands matching query, best first. An empty query
// returns the whole ranked catalog.
func (r *Resolver) Search(query string) []domain.SlashCommand {
	r.mu.Lock()
	defer r.mu.Unlock()

	if query == "" {
		return slices.Clone(r.merged)
	}

	type hit struct {
		cmd   domain.SlashCommand
		index int
		score float64
	}
	var hits []hit
	for i, c := range r.merged {
		score, ok := Score(query, c)
		if !ok {
			continue
		}
		hits = append(hits, hit{cmd: c, index: i, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		ui, uj := r.usage[hits[i].cmd.Name], r.usage[hits[j].cmd.Name]
		if ui != uj {
			return ui > uj
		}
		return hits[i].index < hits[j].index
	})

	out := make([]domain.SlashCommand, len(hits))
	for i, h := range hits {
		out[i] = h.cmd
	}
	return out
}
