// Package companies links embedded company references to canonical company entities
package companies

import (
	"context"
	"slices"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/metrics"
	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/normalizers"
	"github.com/Ramsey-B/nettle/pkg/similarity"
)

// Tier identifies the strategy that resolved a reference
type Tier int

const (
	TierUnresolved Tier = iota
	TierExactKey
	TierTokenSet
	TierEditDistance
)

// String implements fmt.Stringer
func (t Tier) String() string {
	switch t {
	case TierExactKey:
		return "exact_key"
	case TierTokenSet:
		return "token_set"
	case TierEditDistance:
		return "edit_distance"
	default:
		return "unresolved"
	}
}

// MarshalText encodes the tier by name
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

const (
	rawJaccardThreshold      = 70.0
	strippedJaccardThreshold = 66.0
	containmentThreshold     = 70.0
	editDistanceThreshold    = 90.0
)

// Resolution records how one reference name was resolved
type Resolution struct {
	Reference string `json:"reference"`
	EntityID  int64  `json:"entity_id"`
	Tier      Tier   `json:"tier"`
	Rule      string `json:"rule,omitempty"`
}

// Report summarizes a resolution pass. Unresolved references are a normal outcome.
type Report struct {
	References      int          `json:"references"`
	AlreadyResolved int          `json:"already_resolved"`
	Resolutions     []Resolution `json:"resolutions"`
	Unresolved      []string     `json:"unresolved"`
}

// CountByTier returns how many references each tier resolved
func (r *Report) CountByTier(tier Tier) int {
	count := 0
	for _, res := range r.Resolutions {
		if res.Tier == tier {
			count++
		}
	}
	return count
}

// Resolver runs the four tier cascade: exact name key, token set overlap,
// edit distance, then report whatever is left.
type Resolver struct {
	logger      ectologger.Logger
	levenshtein similarity.Algorithm
}

// NewResolver creates a new company reference resolver
func NewResolver(logger ectologger.Logger) *Resolver {
	return &Resolver{
		logger:      logger,
		levenshtein: similarity.NewLevenshtein(),
	}
}

// company is a Company entity with its names precomputed for every tier
type company struct {
	entity *models.Entity
	names  []companyName
}

type companyName struct {
	folded   string
	words    map[string]struct{}
	stripped map[string]struct{}
}

// pending groups every reference instance sharing a name across entities
type pending struct {
	name string
	refs []*models.CompanyReference
}

func (p *pending) resolve(id int64) {
	for _, ref := range p.refs {
		ref.Resolve(id)
	}
}

// Resolve sets ResolvedEntityID on every company reference embedded in the
// entities that one of the tiers can link to a Company entity.
func (r *Resolver) Resolve(ctx context.Context, entities []*models.Entity) *Report {
	ctx, span := tracing.StartSpan(ctx, "companies.Resolver.Resolve")
	defer span.End()

	index, companies := buildIndex(entities)
	unmatched, report := collectReferences(entities)

	unmatched = r.resolveTier(unmatched, report, TierExactKey, func(p *pending) (*models.Entity, string) {
		if c, ok := index[normalizers.NameKey(p.name)]; ok {
			return c, "name_key"
		}
		return nil, ""
	})
	unmatched = r.resolveTier(unmatched, report, TierTokenSet, func(p *pending) (*models.Entity, string) {
		return matchTokenSets(p.name, companies)
	})
	unmatched = r.resolveTier(unmatched, report, TierEditDistance, func(p *pending) (*models.Entity, string) {
		return r.matchEditDistance(p.name, companies)
	})

	for _, p := range unmatched {
		report.Unresolved = append(report.Unresolved, p.name)
		metrics.CompanyResolutions.WithLabelValues(TierUnresolved.String()).Inc()
		r.logger.WithContext(ctx).WithField("reference", p.name).Debug("Company reference left unresolved")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"references":       report.References,
		"already_resolved": report.AlreadyResolved,
		"exact_key":        report.CountByTier(TierExactKey),
		"token_set":        report.CountByTier(TierTokenSet),
		"edit_distance":    report.CountByTier(TierEditDistance),
		"unresolved":       len(report.Unresolved),
	}).Info("Company reference resolution complete")

	return report
}

// resolveTier applies match to every pending reference and returns those it could not resolve
func (r *Resolver) resolveTier(unmatched []*pending, report *Report, tier Tier, match func(*pending) (*models.Entity, string)) []*pending {
	remaining := unmatched[:0]
	for _, p := range unmatched {
		c, rule := match(p)
		if c == nil {
			remaining = append(remaining, p)
			continue
		}
		p.resolve(c.ID)
		report.Resolutions = append(report.Resolutions, Resolution{
			Reference: p.name,
			EntityID:  c.ID,
			Tier:      tier,
			Rule:      rule,
		})
		metrics.CompanyResolutions.WithLabelValues(tier.String()).Inc()
	}
	return remaining
}

// buildIndex maps every company name key to its entity and precomputes word sets.
// When two companies share a key the first one in working set order wins.
func buildIndex(entities []*models.Entity) (map[string]*models.Entity, []company) {
	index := make(map[string]*models.Entity)
	var companies []company
	for _, e := range entities {
		if e.Kind != models.KindCompany {
			continue
		}
		c := company{entity: e}
		for _, name := range e.Names.Values() {
			key := normalizers.NameKey(name)
			if key == "" {
				continue
			}
			if _, ok := index[key]; !ok {
				index[key] = e
			}
			c.names = append(c.names, companyName{
				folded:   normalizers.Fold(name),
				words:    normalizers.Words(name),
				stripped: normalizers.StrippedWords(name),
			})
		}
		companies = append(companies, c)
	}
	return index, companies
}

// collectReferences gathers unresolved references deduplicated by name, in
// entity order and then name order.
func collectReferences(entities []*models.Entity) ([]*pending, *Report) {
	report := &Report{}
	byName := make(map[string]*pending)
	var unmatched []*pending
	seen := make(map[*models.CompanyReference]bool)
	for _, e := range entities {
		for _, ref := range e.CompanyReferences.Values() {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			if ref.IsResolved() {
				report.AlreadyResolved++
				continue
			}
			p, ok := byName[ref.Name]
			if !ok {
				p = &pending{name: ref.Name}
				byName[ref.Name] = p
				unmatched = append(unmatched, p)
			}
			p.refs = append(p.refs, ref)
		}
	}
	report.References = len(unmatched) + report.AlreadyResolved
	return unmatched, report
}

// matchTokenSets applies the word set rules in order against every company
// name; the first company with a qualifying name wins.
func matchTokenSets(reference string, companies []company) (*models.Entity, string) {
	words := normalizers.Words(reference)
	stripped := normalizers.StrippedWords(reference)
	if len(words) == 0 {
		return nil, ""
	}

	for _, c := range companies {
		for _, name := range c.names {
			if jaccard(words, name.words) > rawJaccardThreshold {
				return c.entity, "jaccard"
			}
			if len(stripped) > 0 && jaccard(stripped, name.stripped) > strippedJaccardThreshold {
				return c.entity, "jaccard_stripped"
			}
			if containment(stripped, name.stripped) > containmentThreshold {
				return c.entity, "containment"
			}
		}
	}
	return nil, ""
}

func (r *Resolver) matchEditDistance(reference string, companies []company) (*models.Entity, string) {
	folded := normalizers.Fold(reference)
	for _, c := range companies {
		for _, name := range c.names {
			if r.levenshtein.PercentualMatch(folded, name.folded) > editDistanceThreshold {
				return c.entity, similarity.Levenshtein
			}
		}
	}
	return nil, ""
}

// jaccard is |a ∩ b| / |a ∪ b| as a percentage
func jaccard(a, b map[string]struct{}) float64 {
	union := len(a) + len(b)
	if union == 0 {
		return 0
	}
	shared := intersection(a, b)
	return float64(shared) / float64(union-shared) * 100
}

// containment applies only when the reference words are a subset of the
// company words; it is then |reference| / |intersection| as a percentage.
func containment(reference, company map[string]struct{}) float64 {
	shared := intersection(reference, company)
	if shared == 0 || shared < len(reference) {
		return 0
	}
	return float64(len(reference)) / float64(shared) * 100
}

func intersection(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return shared
}

// UnresolvedNames returns the unresolved reference names sorted
func (r *Report) UnresolvedNames() []string {
	names := append([]string(nil), r.Unresolved...)
	slices.Sort(names)
	return names
}
