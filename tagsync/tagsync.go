// Package tagsync keeps the lifecycle tags of remote keys in line with how
// the keys are used in the application source.
//
// Every remote key in a project namespace is evaluated on its own:
//
//   - a used key of the shared namespace carries the shared tag, an unused one
//     loses it;
//   - an unused key left without tags is tagged deprecated, together with the
//     ticket id of the current change when one is known;
//   - a used key that carries the deprecated tag is revived: the deprecated
//     tag and every ticket tag are removed.
package tagsync

import (
	"context"
	"regexp"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/ophjod/catalogkit/extract"
	"github.com/ophjod/catalogkit/tms"
)

// Rules configures Plan.
type Rules struct {
	// ProjectNamespaces are the namespaces owned by this project; keys in
	// other namespaces are left alone.
	ProjectNamespaces []string
	// SharedNamespace is the namespace whose used keys carry SharedTag.
	SharedNamespace string
	SharedTag       string
	DeprecatedTag   string
	// Ticket is added next to DeprecatedTag when not empty.
	Ticket string
	// TicketPattern matches the ticket tags purged when a key is revived.
	TicketPattern *regexp.Regexp
}

// Delta is the tag change of one remote key. Add and Remove are disjoint.
type Delta struct {
	Key    tms.Key
	Add    []string
	Remove []tms.Tag
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// Plan computes the tag deltas of keys. Keys whose tags are already right are
// not returned.
func Plan(keys []tms.Key, usage *extract.UsageMap, rules Rules) []Delta {
	scoped := make(map[string]*extract.UsageMap)
	var deltas []Delta

	for _, key := range keys {
		if !slices.Contains(rules.ProjectNamespaces, key.Namespace) {
			continue
		}
		nsUsage, ok := scoped[key.Namespace]
		if !ok {
			nsUsage = usage.Namespace(key.Namespace)
			scoped[key.Namespace] = nsUsage
		}

		current := key.TagNames()
		desired := desiredTags(current, key.Namespace, nsUsage.IsUsed(key.Canonical()), rules)

		d := Delta{Key: key, Add: lo.Without(desired, current...)}
		for _, t := range key.Tags {
			if !slices.Contains(desired, t.Name) {
				d.Remove = append(d.Remove, t)
			}
		}
		if !d.Empty() {
			deltas = append(deltas, d)
		}
	}
	return deltas
}

func desiredTags(current []string, ns string, used bool, rules Rules) []string {
	tags := slices.Clone(current)

	if ns == rules.SharedNamespace && rules.SharedTag != "" {
		has := slices.Contains(tags, rules.SharedTag)
		switch {
		case used && !has:
			tags = append(tags, rules.SharedTag)
		case !used && has:
			tags = lo.Without(tags, rules.SharedTag)
		}
	}

	if !used && len(tags) == 0 {
		tags = append(tags, rules.DeprecatedTag)
		if rules.Ticket != "" {
			tags = append(tags, rules.Ticket)
		}
	}

	if used && slices.Contains(tags, rules.DeprecatedTag) {
		tags = lo.Reject(tags, func(t string, _ int) bool {
			return t == rules.DeprecatedTag || (rules.TicketPattern != nil && rules.TicketPattern.MatchString(t))
		})
	}

	return tags
}

// Options configures Apply.
type Options struct {
	// Workers bounds the number of keys updated concurrently.
	Workers int
	// DryRun logs the deltas without calling the client.
	DryRun bool
	// OnProgress is called after each key with the number of keys done.
	OnProgress func(done, total int)
}

// Summary counts what Apply changed.
type Summary struct {
	Keys    int
	Added   int
	Removed int
}

// Apply sends the deltas to client. Different keys run concurrently; the
// calls of one key run in order. The first failure cancels the remaining
// work and is returned together with what was applied before it.
func Apply(ctx context.Context, client tms.Client, deltas []Delta, opts Options) (Summary, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		mu      sync.Mutex
		summary Summary
		done    int
	)
	finish := func(added, removed int) {
		mu.Lock()
		defer mu.Unlock()
		summary.Keys++
		summary.Added += added
		summary.Removed += removed
		done++
		if opts.OnProgress != nil {
			opts.OnProgress(done, len(deltas))
		}
	}

	if opts.DryRun {
		for _, d := range deltas {
			logDelta(d, true)
			finish(len(d.Add), len(d.Remove))
		}
		return summary, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, d := range deltas {
		d := d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			logDelta(d, false)
			added, removed := 0, 0
			for _, name := range d.Add {
				if err := client.AddTag(gctx, d.Key.ID, name); err != nil {
					return err
				}
				added++
			}
			for _, t := range d.Remove {
				if err := client.RemoveTag(gctx, d.Key.ID, t.ID); err != nil {
					return err
				}
				removed++
			}
			finish(added, removed)
			return nil
		})
	}

	err := g.Wait()
	return summary, err
}

func logDelta(d Delta, dryRun bool) {
	log.Info().
		Str("sys", "tagsync").
		Str("key", d.Key.Canonical()).
		Strs("add", d.Add).
		Strs("remove", lo.Map(d.Remove, func(t tms.Tag, _ int) string { return t.Name })).
		Bool("dryRun", dryRun).
		Msg("Tag delta")
}
