// Package extract implements spec.md §4.8's common-bundle extractor: given
// every bundle produced for a build and a list of extraction rules, hoist
// modules shared across bundles into new "common" bundles so a browser
// fetches shared code once instead of once per entry.
//
// Step 2 of the algorithm ("key each candidate module by the set of
// bundles that contain it") is the same idea esbuild's linker uses to
// decide chunk membership: internal/bundler/linker.go's bitSet marks,
// per entry point, which chunk a symbol belongs to, then groups symbols
// that share an identical bit pattern into one chunk. Here the "bits"
// are bundle pointers rather than entry indices, so a plain
// map[*graph.Bundle]bool key (rendered to a sorted, deterministic string)
// stands in for esbuild's fixed-width bitSet — this core has no symbol
// table to pack tightly against, so there's nothing for a real bitSet to
// buy over a sorted ID string.
package extract

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tpack-go/tpack/internal/graph"
	"github.com/tpack-go/tpack/internal/module"
)

// Rule is one entry in spec.md §4.8's extraction rule list.
type Rule struct {
	// Matcher restricts candidate modules to those whose path it
	// accepts. Nil matches every module.
	Matcher func(path string) bool

	// MinUseCount drops any combination shared by fewer bundles than
	// this.
	MinUseCount int

	// MinSize aborts the whole rule when the candidate set's total
	// size falls short.
	MinSize int64

	// MaxSize bounds the combined size of every module the rule moves
	// into common bundles (all of its OutPath bundles together); the
	// running total is kept strictly below it. 0 means unlimited.
	MaxSize int64

	// MaxInitialRequests/MaxAsyncRequests cap how many parent bundles a
	// bundle may already have and still take part in the rule: a bundle
	// is admissible only while len(ParentBundles) is below its limit; 0
	// means unlimited. A graph.Bundle with Async == true is checked
	// against MaxAsyncRequests, every other bundle against
	// MaxInitialRequests.
	MaxInitialRequests int
	MaxAsyncRequests   int

	// OutPath names the resulting common bundle. When a rule accepts
	// more than one combination, later ones get OutPath plus a
	// "-2", "-3", ... suffix.
	OutPath string

	// Global marks the common bundle as eligible for every page rather
	// than only the pages whose bundles fed it. internal/build decides
	// what that means at emit time; extract only carries the flag.
	Global bool
}

// Combination is spec.md §4.8 step 2's record: the set of modules shared
// by exactly the same set of bundles.
type Combination struct {
	ID      string
	Bundles []*graph.Bundle
	Modules []*module.Module
	Size    int64

	moduleSizes map[*module.Module]int64
}

// Extract runs every rule in order against bundles, mutating bundles in
// place (removing hoisted modules, wiring ParentBundles) and returning the
// new common bundles created along the way. Rules run in sequence, so a
// later rule sees the bundle set as the previous rule left it.
func Extract(bundles []*graph.Bundle, rules []Rule, sizeOf func(*module.Module) (int64, error)) ([]*graph.Bundle, error) {
	var result []*graph.Bundle
	for _, rule := range rules {
		created, err := applyRule(bundles, rule, sizeOf)
		if err != nil {
			return nil, err
		}
		result = append(result, created...)
	}
	return result, nil
}

func applyRule(bundles []*graph.Bundle, rule Rule, sizeOf func(*module.Module) (int64, error)) ([]*graph.Bundle, error) {
	moduleBundles := bundlesByModule(bundles)

	candidates := map[*module.Module]bool{}
	visited := map[*module.Module]bool{}
	for m := range moduleBundles {
		if rule.Matcher == nil || rule.Matcher(m.Path.String()) {
			addWithStaticDeps(m, candidates, visited)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sizes := map[*module.Module]int64{}
	var totalSize int64
	for m := range candidates {
		size, err := sizeOf(m)
		if err != nil {
			return nil, err
		}
		sizes[m] = size
		totalSize += size
	}
	if totalSize < rule.MinSize {
		return nil, nil
	}

	combos := buildCombinations(candidates, moduleBundles, sizes, rule)
	if len(combos) == 0 {
		return nil, nil
	}

	accepted := selectCombinations(combos, rule)
	if len(accepted) == 0 {
		return nil, nil
	}

	var created []*graph.Bundle
	for _, c := range accepted {
		// Admissibility was computed statically in buildCombinations
		// against each bundle's ParentBundles count at that time, but
		// committing an earlier accepted combination adds a parent to
		// every bundle it touches — so a bundle shared by several
		// accepted combinations can cross maxInitialRequests/
		// maxAsyncRequests partway through this loop (spec.md §4.8 step
		// 3: "eligible for one more parent"; invariant #4). Re-check
		// against the live count as each combination is about to commit,
		// and skip it entirely if any of its bundles is now saturated,
		// rather than trusting the stale pre-computed filter.
		saturated := false
		for _, b := range c.Bundles {
			if !isAdmissible(b, rule) {
				saturated = true
				break
			}
		}
		if saturated {
			continue
		}

		outPath := rule.OutPath
		if len(created) > 0 {
			outPath = rule.OutPath + "-" + strconv.Itoa(len(created)+1)
		}
		common := graph.NewCommonBundle(outPath, c.Modules, rule.Global)
		for _, b := range c.Bundles {
			for _, m := range c.Modules {
				b.Remove(m)
			}
			b.AddParent(common)
		}
		created = append(created, common)
	}
	return created, nil
}

// bundlesByModule inverts the bundle list into, for every module, the set
// of bundles that currently contain it.
func bundlesByModule(bundles []*graph.Bundle) map[*module.Module]map[*graph.Bundle]bool {
	out := map[*module.Module]map[*graph.Bundle]bool{}
	for _, b := range bundles {
		for _, m := range b.Modules {
			set := out[m]
			if set == nil {
				set = map[*graph.Bundle]bool{}
				out[m] = set
			}
			set[b] = true
		}
	}
	return out
}

// addWithStaticDeps adds m and everything it statically imports
// (transitively) into set (spec.md §4.8 step 1: a matched module drags
// its static dependency chain along as a candidate even when those
// dependencies don't themselves match).
func addWithStaticDeps(m *module.Module, set, visited map[*module.Module]bool) {
	if visited[m] {
		return
	}
	visited[m] = true
	set[m] = true
	for _, dep := range m.DependenciesOfType(module.StaticImport) {
		if dep.Module != nil {
			addWithStaticDeps(dep.Module, set, visited)
		}
	}
}

func isAdmissible(b *graph.Bundle, rule Rule) bool {
	limit := rule.MaxInitialRequests
	if b.Async {
		limit = rule.MaxAsyncRequests
	}
	if limit <= 0 {
		return true
	}
	return len(b.ParentBundles) < limit
}

// buildCombinations groups candidates by the set of admissible bundles
// that contain them, dropping any group with fewer bundles than
// rule.MinUseCount.
func buildCombinations(candidates map[*module.Module]bool, moduleBundles map[*module.Module]map[*graph.Bundle]bool, sizes map[*module.Module]int64, rule Rule) []*Combination {
	byKey := map[string]*Combination{}
	var keys []string

	for m := range candidates {
		containing := moduleBundles[m]
		var admissible []*graph.Bundle
		for b := range containing {
			if isAdmissible(b, rule) {
				admissible = append(admissible, b)
			}
		}
		if len(admissible) < rule.MinUseCount {
			continue
		}
		sort.Slice(admissible, func(i, j int) bool { return admissible[i].ID < admissible[j].ID })

		key := combinationKey(admissible)
		c, ok := byKey[key]
		if !ok {
			c = &Combination{ID: key, Bundles: admissible, moduleSizes: map[*module.Module]int64{}}
			byKey[key] = c
			keys = append(keys, key)
		}
		c.Modules = append(c.Modules, m)
		c.moduleSizes[m] = sizes[m]
		c.Size += sizes[m]
	}

	sort.Strings(keys)
	combos := make([]*Combination, 0, len(keys))
	for _, k := range keys {
		c := byKey[k]
		sort.Slice(c.Modules, func(i, j int) bool {
			return c.Modules[i].Path.String() < c.Modules[j].Path.String()
		})
		combos = append(combos, c)
	}
	return combos
}

func combinationKey(bundles []*graph.Bundle) string {
	ids := make([]string, len(bundles))
	for i, b := range bundles {
		ids[i] = b.ID
	}
	return strings.Join(ids, "\x00")
}

// selectCombinations applies spec.md §4.8 step 5's greedy budget: with no
// MaxSize, accept every combination that survived buildCombinations'
// MinUseCount filter. With a MaxSize, rank combinations by how broadly
// shared they are and accept whole combinations until one would overflow
// the budget, then split that one combination module-by-module (largest
// first) so the budget is used as fully as possible without exceeding it.
func selectCombinations(combos []*Combination, rule Rule) []*Combination {
	if rule.MaxSize <= 0 {
		return combos
	}

	ranked := append([]*Combination(nil), combos...)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if len(a.Bundles) != len(b.Bundles) {
			return len(a.Bundles) > len(b.Bundles)
		}
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		if len(a.Modules) != len(b.Modules) {
			return len(a.Modules) > len(b.Modules)
		}
		return a.ID < b.ID
	})

	var accepted []*Combination
	var running int64
	for _, c := range ranked {
		if running+c.Size < rule.MaxSize {
			accepted = append(accepted, c)
			running += c.Size
			continue
		}

		mods := append([]*module.Module(nil), c.Modules...)
		sort.Slice(mods, func(i, j int) bool {
			return c.moduleSizes[mods[i]] > c.moduleSizes[mods[j]]
		})

		var partial []*module.Module
		var partialSize int64
		for _, m := range mods {
			s := c.moduleSizes[m]
			if running+partialSize+s < rule.MaxSize {
				partial = append(partial, m)
				partialSize += s
			}
		}
		if len(partial) > 0 {
			accepted = append(accepted, &Combination{
				ID:      c.ID,
				Bundles: c.Bundles,
				Modules: partial,
				Size:    partialSize,
			})
		}
		break
	}
	return accepted
}

