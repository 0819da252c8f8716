package resolve

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
)

// DefaultExclusiveGroups are the suite keywords that must never be mixed up.
var DefaultExclusiveGroups = []ExclusiveGroup{
	{"regression", "smoke"},
}

// DefaultAliases maps legacy display names to target names or path fragments.
var DefaultAliases = map[string][]string{
	"ux regression":   {"core ux regression", "core-ux-regression"},
	"ux smoke":        {"core ux smoke", "core-ux-smoke"},
	"sanity":          {"smoke e2e", "smoke"},
	"nightly":         {"nightly regression", "nightly"},
	"full regression": {"full regression", "regression-full"},
}

// DefaultKeywords is the vocabulary used by the last-resort keyword tier:
// environment codes, platform/region codes and suite codes.
var DefaultKeywords = []string{
	"qa", "prod", "staging", "stage", "dev", "uat",
	"us", "eu", "uk", "ca", "au", "web", "ios", "android", "mobile", "desktop",
	"regression", "smoke", "e2e", "sanity", "api", "ui", "core", "ux", "integration", "performance",
}

const defaultMaxSuggestions = 5

// Resolver resolves workflow references through an ordered cascade of tiers.
// It holds only read-only configuration and is safe for concurrent use.
type Resolver struct {
	aliases        map[string][]string
	exclusive      []ExclusiveGroup
	keywords       []string
	maxSuggestions int
	logger         *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAliases replaces the alias table. Keys are normalized.
func WithAliases(aliases map[string][]string) Option {
	return func(r *Resolver) {
		r.aliases = make(map[string][]string, len(aliases))
		for k, targets := range aliases {
			norm := make([]string, 0, len(targets))
			for _, t := range targets {
				if t = Normalize(t); t != "" {
					norm = append(norm, t)
				}
			}
			r.aliases[Normalize(k)] = norm
		}
	}
}

// WithExclusiveGroups replaces the mutually exclusive keyword groups.
func WithExclusiveGroups(groups ...ExclusiveGroup) Option {
	return func(r *Resolver) {
		r.exclusive = make([]ExclusiveGroup, 0, len(groups))
		for _, g := range groups {
			ng := make(ExclusiveGroup, 0, len(g))
			for _, k := range g {
				if k = Normalize(k); k != "" {
					ng = append(ng, k)
				}
			}
			if len(ng) > 1 {
				r.exclusive = append(r.exclusive, ng)
			}
		}
	}
}

// WithKeywords replaces the keyword-tier vocabulary.
func WithKeywords(keywords []string) Option {
	return func(r *Resolver) {
		r.keywords = make([]string, 0, len(keywords))
		for _, k := range keywords {
			if k = Normalize(k); k != "" {
				r.keywords = append(r.keywords, k)
			}
		}
	}
}

// WithLogger sets the logger used for tier decisions.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver with the default tables, overridden by opts.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		maxSuggestions: defaultMaxSuggestions,
		logger:         zap.NewNop(),
	}
	WithAliases(DefaultAliases)(r)
	WithExclusiveGroups(DefaultExclusiveGroups...)(r)
	WithKeywords(DefaultKeywords)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves query with a default Resolver.
func Resolve(query string, catalog []Workflow) (Result, error) {
	return New().Resolve(query, catalog)
}

// Resolve maps query onto exactly one workflow of catalog. The first tier
// that yields any candidate decides the outcome: one survivor resolves,
// several survivors are ambiguous. It returns *NotFoundError or
// *AmbiguousError on failure and never panics on odd input.
func (r *Resolver) Resolve(query string, catalog []Workflow) (Result, error) {
	q := Normalize(query)
	if q == "" {
		return Result{}, &NotFoundError{Query: query, Suggestions: r.suggest(q, catalog)}
	}

	var rejected []string
	survivors, tier := r.exact(query, q, catalog)

	if len(survivors) == 0 {
		var rej []string
		survivors, rej = r.tokenOverlap(query, q, catalog)
		rejected = append(rejected, rej...)
		tier = TierTokenOverlap
	}
	if len(survivors) == 0 {
		var rej []string
		survivors, rej = r.alias(query, q, catalog)
		rejected = append(rejected, rej...)
		tier = TierAlias
	}
	if len(survivors) == 0 {
		var rej []string
		survivors, rej = r.keyword(query, q, catalog)
		rejected = append(rejected, rej...)
		tier = TierKeyword
	}
	rejected = dedupe(rejected)

	switch {
	case len(survivors) == 0:
		r.logger.Debug("workflow not resolved",
			zap.String("query", query), zap.Strings("rejected", rejected))
		return Result{}, &NotFoundError{
			Query:       query,
			Suggestions: r.suggest(q, catalog),
			Rejected:    rejected,
		}
	case len(survivors) > 1:
		names := make([]string, len(survivors))
		for i, w := range survivors {
			names[i] = w.Name
		}
		r.logger.Debug("workflow reference ambiguous",
			zap.String("query", query), zap.Stringer("tier", tier), zap.Strings("candidates", names))
		return Result{}, &AmbiguousError{Query: query, Tier: tier, Candidates: names, Rejected: rejected}
	}

	w := survivors[0]
	if r.excluded(query, w) {
		r.logger.Debug("sole survivor vetoed by exclusion guard",
			zap.String("query", query), zap.String("workflow", w.Name))
		return Result{}, &AmbiguousError{Query: query, Tier: tier, Rejected: dedupe(append(rejected, w.Name))}
	}

	r.logger.Debug("workflow resolved",
		zap.String("query", query), zap.String("workflow", w.Name),
		zap.Int64("workflow_id", w.ID), zap.Stringer("tier", tier))
	return Result{
		Workflow: w,
		Tier:     tier,
		Rejected: rejected,
		Disabled: w.IsDisabled(),
	}, nil
}

// exact matches raw name, path or id verbatim first, then in normalized form.
func (r *Resolver) exact(raw, q string, catalog []Workflow) ([]Workflow, Tier) {
	var verbatim []Workflow
	for _, w := range catalog {
		if w.Name == raw || (w.Path != "" && w.Path == raw) || w.idString() == raw {
			verbatim = appendUnique(verbatim, w)
		}
	}
	if len(verbatim) > 0 {
		return verbatim, TierExact
	}

	var normalized []Workflow
	for _, w := range catalog {
		if Normalize(w.Name) == q || (w.Path != "" && Normalize(w.Path) == q) || w.idString() == q {
			normalized = appendUnique(normalized, w)
		}
	}
	return normalized, TierNormalized
}

func (r *Resolver) tokenOverlap(raw, q string, catalog []Workflow) (survivors []Workflow, rejected []string) {
	qt := tokens(q)
	for _, w := range catalog {
		if !overlaps(q, qt, Normalize(w.Name), w.Path) {
			continue
		}
		if r.excluded(raw, w) {
			rejected = append(rejected, w.Name)
			continue
		}
		survivors = appendUnique(survivors, w)
	}
	return survivors, rejected
}

func overlaps(q string, qt []string, name, path string) bool {
	if len(qt) > 0 {
		nt := tokens(name)
		covered := true
		for _, t := range qt {
			if !tokenCovered(t, nt) {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	if name != "" && (strings.Contains(name, q) || strings.Contains(q, name)) {
		return true
	}
	return pathSlugMatch(qt, path)
}

func pathSlugMatch(qt []string, path string) bool {
	if len(qt) == 0 || path == "" {
		return false
	}
	p := strings.ToLower(path)
	return strings.Contains(p, strings.Join(qt, "_")) || strings.Contains(p, strings.Join(qt, "-"))
}

func (r *Resolver) alias(raw, q string, catalog []Workflow) (survivors []Workflow, rejected []string) {
	targets, ok := r.aliases[q]
	if !ok {
		return nil, nil
	}
	for _, target := range targets {
		for _, w := range catalog {
			name := Normalize(w.Name)
			path := strings.ToLower(w.Path)
			hit := strings.Contains(name, target) ||
				(name != "" && strings.Contains(target, name)) ||
				(path != "" && strings.Contains(path, target))
			if !hit {
				continue
			}
			if r.excluded(raw, w) || r.excluded(target, w) {
				rejected = append(rejected, w.Name)
				continue
			}
			survivors = appendUnique(survivors, w)
		}
	}
	return survivors, rejected
}

func (r *Resolver) keyword(raw, q string, catalog []Workflow) (survivors []Workflow, rejected []string) {
	words := wordTokens(q)
	var matched []string
	for _, k := range r.keywords {
		if containsToken(words, k) && !containsToken(matched, k) {
			matched = append(matched, k)
		}
	}
	if len(matched) < 2 {
		return nil, nil
	}

	for _, w := range catalog {
		candidate := append(wordTokens(Normalize(w.Name)), pathTokens(w.Path)...)
		all := true
		for _, k := range matched {
			if !containsToken(candidate, k) {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		if r.excluded(raw, w) {
			rejected = append(rejected, w.Name)
			continue
		}
		survivors = appendUnique(survivors, w)
	}
	return survivors, rejected
}

// excluded reports whether query and w disagree on any exclusive group:
// the query names a keyword of the group and w names only other keywords
// of the same group. The display name decides w's keywords; the path only
// counts when the name carries none of the group.
func (r *Resolver) excluded(query string, w Workflow) bool {
	q := Normalize(query)
	name := Normalize(w.Name)
	path := strings.ToLower(w.Path)
	for _, g := range r.exclusive {
		qk := present(q, g)
		if len(qk) == 0 {
			continue
		}
		ck := present(name, g)
		if len(ck) == 0 {
			ck = present(path, g)
		}
		if len(ck) == 0 {
			continue
		}
		if !intersects(qk, ck) {
			return true
		}
	}
	return false
}

// Excluded exposes the exclusion guard for callers that pre-filter lists.
func (r *Resolver) Excluded(query string, w Workflow) bool {
	return r.excluded(query, w)
}

func (r *Resolver) suggest(q string, catalog []Workflow) []string {
	if len(catalog) == 0 {
		return nil
	}
	names := make([]string, len(catalog))
	for i, w := range catalog {
		names[i] = Normalize(w.Name)
	}

	var out []string
	if q != "" {
		for _, m := range fuzzy.Find(q, names) {
			out = appendName(out, catalog[m.Index].Name)
			if len(out) == r.maxSuggestions {
				return out
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	qt := tokens(q)
	for i, w := range catalog {
		for _, t := range qt {
			if containsToken(tokens(names[i]), t) {
				out = appendName(out, w.Name)
				break
			}
		}
		if len(out) == r.maxSuggestions {
			break
		}
	}
	return out
}

func present(text string, group ExclusiveGroup) []string {
	var out []string
	for _, k := range group {
		if strings.Contains(text, k) {
			out = append(out, k)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if containsToken(b, x) {
			return true
		}
	}
	return false
}

func appendUnique(list []Workflow, w Workflow) []Workflow {
	for _, existing := range list {
		if existing.ID == w.ID && existing.Name == w.Name && existing.Path == w.Path {
			return list
		}
	}
	return append(list, w)
}

func appendName(list []string, name string) []string {
	if containsToken(list, name) {
		return list
	}
	return append(list, name)
}

func dedupe(names []string) []string {
	var out []string
	for _, n := range names {
		out = appendName(out, n)
	}
	return out
}
