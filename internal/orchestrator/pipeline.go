// Package orchestrator implements the Pipeline Orchestrator (spec §4.J):
// it sequences every other component, accumulates records and labels,
// runs the Rebalancer, and owns the atomic artifact writers.
package orchestrator

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rgonzalez12/posthist/internal/clerk"
	"github.com/rgonzalez12/posthist/internal/config"
	"github.com/rgonzalez12/posthist/internal/difficulty"
	"github.com/rgonzalez12/posthist/internal/extraction"
	"github.com/rgonzalez12/posthist/internal/familiarity"
	"github.com/rgonzalez12/posthist/internal/generrors"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/idgen"
	"github.com/rgonzalez12/posthist/internal/log"
	"github.com/rgonzalez12/posthist/internal/render"
	"github.com/rgonzalez12/posthist/internal/situation"
	"github.com/rgonzalez12/posthist/internal/soldier"
	"github.com/rgonzalez12/posthist/internal/source"
	"github.com/rgonzalez12/posthist/internal/vocab"
)

// clerksPerArchetype is how many persistent clerk instances the pipeline
// mints per archetype. Each instance keeps its own fatigue seed and may
// back dozens of sources, per spec.md §3.
const clerksPerArchetype = 3

// Record is one rendered record plus its synthetic metadata, the unit the
// "Raw records" and "Per-record synthetic metadata" artifacts are built
// from.
type Record struct {
	SourceID         string
	SoldierID        string
	StateID          string
	ClerkID          string
	SituationID      string
	QualityTier      int
	FamiliarityLevel string
	PositionInSource int
	RawText          string
}

// Summary is the "tidy summary" spec.md §7 requires on success.
type Summary struct {
	SoldierCount           int
	SourceCount            int
	RecordCount            int
	CollisionCoverage      float64
	TransitionDistribution map[soldier.TransitionType]float64
	TierCounts             map[difficulty.Tier]int
	RebalancePasses        int
}

// Pipeline holds the loaded, read-only catalogs a run needs.
type Pipeline struct {
	Config     config.RunConfig
	Hierarchy  *hierarchy.Hierarchy
	Clerks     *clerk.Registry
	Situations *situation.Registry
}

// Load builds a Pipeline by reading the three configuration documents
// named in spec.md §6.
func Load(cfg config.RunConfig) (*Pipeline, error) {
	h, err := hierarchy.LoadFile(cfg.HierarchyPath)
	if err != nil {
		return nil, err
	}

	clerks, err := clerk.LoadRegistry(cfg.ArchetypePath)
	if err != nil {
		return nil, err
	}

	knownBranches := make(map[string]bool, len(h.Branches))
	for name := range h.Branches {
		knownBranches[name] = true
	}
	situations, err := situation.LoadFile(cfg.SituationPath, knownBranches)
	if err != nil {
		return nil, err
	}

	return &Pipeline{Config: cfg, Hierarchy: h, Clerks: clerks, Situations: situations}, nil
}

// Run executes generate-corpus: A–J, K, and L (if enabled), per §6's
// "Process surface". It returns the full artifact set plus a summary;
// the caller (cmd/posthistgen) owns writing them to disk.
func (p *Pipeline) Run(rootSeed int64) ([]Record, []*soldier.Soldier, []*source.Source, []difficulty.Assessment, Summary, error) {
	clerkInstances := p.instantiateClerks(rootSeed)
	clerksByID := make(map[string]*clerk.Instance, len(clerkInstances))
	for _, inst := range clerkInstances {
		clerksByID[inst.ClerkID] = inst
	}

	log.GenerationContext("soldiers", p.Config.SoldierCount).Info("generation started")

	soldierFactory := soldier.NewFactory(p.Hierarchy, p.soldierTargets())
	soldiers := p.buildSoldiers(soldierFactory, rootSeed, p.Config.SoldierCount)

	sourceFactory := source.NewFactory(p.Hierarchy, clerkInstances, p.Situations, source.DefaultTargets())
	sources, err := p.buildSources(sourceFactory, rootSeed, p.Config.SourceCount)
	if err != nil {
		return nil, nil, nil, nil, Summary{}, err
	}

	assigner := source.NewAssigner(source.AssignerTargets{
		MeanRecordsPerSoldier: p.Config.AssignerMeanRecordsPerSoldier,
		MinSourceSize:         p.Config.AssignerMinSourceSize,
		MaxSourceSize:         p.Config.AssignerMaxSourceSize,
		MaxDrawRetries:        64,
	})
	pairings, err := assigner.Assign(rootSeed, soldiers, sources)
	if err != nil {
		return nil, nil, nil, nil, Summary{}, err
	}

	records, extractionTable, err := p.render(rootSeed, clerksByID, soldiers, sources, pairings)
	if err != nil {
		return nil, nil, nil, nil, Summary{}, err
	}

	assessments := p.assess(soldiers, extractionTable)

	passes := 0
	if p.Config.EnableRebalancer {
		records, assessments, passes, err = p.rebalance(rootSeed, soldierFactory, assigner, clerksByID, soldiers, sources, records, assessments)
		if err != nil {
			return nil, nil, nil, nil, Summary{}, err
		}
	}

	summary := p.summarize(soldiers, sources, records, assessments, passes)
	log.GenerationContext("complete", len(soldiers)).Info("generation finished",
		"source_count", len(sources), "record_count", len(records), "rebalance_passes", passes)
	return records, soldiers, sources, assessments, summary, nil
}

func (p *Pipeline) instantiateClerks(rootSeed int64) []*clerk.Instance {
	ids := p.Clerks.IDs()
	instances := make([]*clerk.Instance, 0, len(ids)*clerksPerArchetype)
	idx := 0
	for _, id := range ids {
		a, _ := p.Clerks.Get(id)
		for i := 0; i < clerksPerArchetype; i++ {
			instances = append(instances, clerk.NewInstance(rootSeed, idx, a))
			idx++
		}
	}
	return instances
}

func (p *Pipeline) soldierTargets() soldier.Targets {
	t := soldier.DefaultTargets()
	if p.Config.MaxCollisionRetries > 0 {
		t.MaxStateRetries = p.Config.MaxCollisionRetries
	}
	return t
}

// buildSoldiers biases the first Config.CollisionCoverageTarget fraction
// of soldiers toward a colliding first post, per SPEC_FULL.md's
// "Collision coverage target knob" decision.
func (p *Pipeline) buildSoldiers(f *soldier.Factory, rootSeed int64, count int) []*soldier.Soldier {
	biasedCount := int(p.Config.CollisionCoverageTarget * float64(count))
	out := make([]*soldier.Soldier, 0, count)
	for i := 0; i < count; i++ {
		s, err := f.New(rootSeed, i, i < biasedCount)
		if err != nil {
			log.Warn("soldier generation fell back after retries", "index", i, "error", err.Error())
			continue
		}
		out = append(out, s)
	}
	return out
}

func (p *Pipeline) buildSources(f *source.Factory, rootSeed int64, count int) ([]*source.Source, error) {
	out := make([]*source.Source, 0, count)
	for i := 0; i < count; i++ {
		s, err := f.New(rootSeed, i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// render renders every pairing in parallel, partitioned by source_id so
// within-source fatigue ordering is preserved, per spec.md §5's
// "Rendering parallelism" seam. It also derives a self-extraction table
// from exactly the designators each record exposed, since the real
// extraction step (pattern matching over raw_text) is an external,
// downstream concern the difficulty computer is agnostic to.
func (p *Pipeline) render(rootSeed int64, clerksByID map[string]*clerk.Instance, soldiers []*soldier.Soldier, sources []*source.Source, pairings []source.Pairing) ([]Record, extraction.Table, error) {
	soldiersByID := make(map[string]*soldier.Soldier, len(soldiers))
	for _, s := range soldiers {
		soldiersByID[s.SoldierID] = s
	}

	sourcesByID := make(map[string]*source.Source, len(sources))
	for _, s := range sources {
		sourcesByID[s.SourceID] = s
	}

	byPosition := make(map[string][]source.Pairing)
	for _, pr := range pairings {
		byPosition[pr.SourceID] = append(byPosition[pr.SourceID], pr)
	}
	for _, list := range byPosition {
		sort.Slice(list, func(i, j int) bool { return list[i].PositionInSource < list[j].PositionInSource })
	}

	sourceIDs := make([]string, 0, len(byPosition))
	for id := range byPosition {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	results := make([][]Record, len(sourceIDs))
	extractions := make([]map[extraction.Key]extraction.Record, len(sourceIDs))

	g := new(errgroup.Group)
	for idx, sourceID := range sourceIDs {
		idx, sourceID := idx, sourceID
		g.Go(func() error {
			src := sourcesByID[sourceID]
			recs, ext, err := p.renderSource(rootSeed, clerksByID[src.ClerkID], src, byPosition[sourceID], soldiersByID)
			if err != nil {
				return err
			}
			results[idx] = recs
			extractions[idx] = ext
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var allRecords []Record
	table := make(extraction.Table)
	for i := range sourceIDs {
		allRecords = append(allRecords, results[i]...)
		for k, v := range extractions[i] {
			table[k] = v
		}
	}
	return allRecords, table, nil
}

func (p *Pipeline) renderSource(rootSeed int64, clerkInst *clerk.Instance, src *source.Source, pairs []source.Pairing, soldiersByID map[string]*soldier.Soldier) ([]Record, map[extraction.Key]extraction.Record, error) {
	log.RenderContext(src.SourceID, clerkInst.ClerkID).Debug("rendering source", "record_count", len(pairs))

	sit, _ := p.Situations.Get(src.SituationID)
	branch := p.Hierarchy.Branches[src.HomeUnit.Branch]

	injector := vocab.NewInjector(vocab.DefaultTargets())
	records := make([]Record, 0, len(pairs))
	table := make(map[extraction.Key]extraction.Record, len(pairs))
	var previousSituational []string

	for _, pr := range pairs {
		sol, ok := soldiersByID[pr.SoldierID]
		if !ok {
			continue
		}
		state, ok := findState(sol, pr.StateID)
		if !ok {
			continue
		}

		fam := familiarity.Calculate(state.Post, src.HomeUnit)
		rng := idgen.RandForPairing(rootSeed, src.SourceID, pr.SoldierID)

		injection := vocab.Inject(rng, injector, sit, branch, state.Post, clerkInst.Archetype.WorkingEnvironment, clerkInst.Archetype.ConfounderRate, previousSituational)
		previousSituational = injection.Situational

		rawText, err := render.Render(render.Input{
			Clerk:            clerkInst,
			SoldierID:        sol.SoldierID,
			State:            state.Post,
			Branch:           branch,
			Familiarity:      fam,
			Injection:        injection,
			QualityTier:      src.QualityTier,
			PositionInSource: pr.PositionInSource,
		})
		if err != nil {
			return nil, nil, err
		}

		records = append(records, Record{
			SourceID:         src.SourceID,
			SoldierID:        sol.SoldierID,
			StateID:          state.StateID,
			ClerkID:          clerkInst.ClerkID,
			SituationID:      src.SituationID,
			QualityTier:      src.QualityTier,
			FamiliarityLevel: fam.String(),
			PositionInSource: pr.PositionInSource,
			RawText:          rawText,
		})

		table[extraction.Key{SourceID: src.SourceID, SoldierID: sol.SoldierID}] = selfExtract(state.Post, branch, fam, injection)
	}
	return records, table, nil
}

func findState(s *soldier.Soldier, stateID string) (soldier.State, bool) {
	for _, st := range s.States {
		if st.StateID == stateID {
			return st, true
		}
	}
	return soldier.State{}, false
}

// selfExtract builds the extraction record an external extractor would
// plausibly produce from the record's raw text: the designators the
// renderer actually exposed are characterized; confounders look like
// bare alphabetic tokens and are uncharacterized.
func selfExtract(post hierarchy.Post, branch *hierarchy.Branch, fam familiarity.Level, injection vocab.Injection) extraction.Record {
	exposed, _, err := render.ExposedDesignators(post, branch, fam)
	var pairs []string
	if err == nil {
		for _, d := range exposed {
			pairs = append(pairs, d.Level+":"+d.Value)
		}
	}
	return extraction.Record{
		Characterized:        map[string][]string{"post": pairs},
		UncharacterizedAlpha: injection.Confounders,
	}
}

func (p *Pipeline) assess(soldiers []*soldier.Soldier, table extraction.Table) []difficulty.Assessment {
	out := make([]difficulty.Assessment, 0, len(soldiers))
	for _, s := range soldiers {
		records := table.ForSoldier(s.SoldierID)
		a := difficulty.Compute(p.Hierarchy, s.SoldierID, records)
		log.AssessmentContext(s.SoldierID).Debug("assessed", "tier", a.Tier, "complementarity", a.ComplementarityScore)
		out = append(out, a)
	}
	return out
}

// rebalance runs the Difficulty Rebalancer (§4.L): repeatedly regenerate
// over-represented, robust soldiers until tier surpluses fall within
// tolerance or the pass budget is exhausted. It returns the records and
// assessments produced by the last render/assess pass it ran, so the
// caller never hands out a record set that's stale against the final
// soldier roster.
func (p *Pipeline) rebalance(rootSeed int64, sf *soldier.Factory, asg *source.Assigner, clerksByID map[string]*clerk.Instance, soldiers []*soldier.Soldier, sources []*source.Source, records []Record, assessments []difficulty.Assessment) ([]Record, []difficulty.Assessment, int, error) {
	targets := difficulty.TierTargets{
		Easy: p.Config.TierEasy, Moderate: p.Config.TierModerate,
		Hard: p.Config.TierHard, Extreme: p.Config.TierExtreme,
	}
	rebalancer := difficulty.NewRebalancer(targets, p.Config.RebalanceTolerance, p.Config.RebalanceMaxPasses)

	soldiersByID := make(map[string]*soldier.Soldier, len(soldiers))
	for _, s := range soldiers {
		soldiersByID[s.SoldierID] = s
	}

	pass := 0
	for {
		plan, err := rebalancer.Plan(assessments, pass)
		if err != nil {
			return nil, nil, pass, err
		}
		if plan.Satisfied {
			return records, assessments, pass, nil
		}

		for _, id := range plan.Regenerate {
			idx := soldierIndex(soldiers, id)
			if idx < 0 {
				continue
			}
			regenerated, err := sf.Regenerate(rootSeed, id, idx, plan.Passes, false)
			if err != nil {
				return nil, nil, pass, err
			}
			soldiers[idx] = regenerated
			soldiersByID[id] = regenerated
		}

		pairings, err := asg.Assign(rootSeed, soldiers, sources)
		if err != nil {
			return nil, nil, pass, err
		}
		newRecords, extractionTable, err := p.render(rootSeed, clerksByID, soldiers, sources, pairings)
		if err != nil {
			return nil, nil, pass, err
		}
		records = newRecords
		assessments = p.assess(soldiers, extractionTable)
		pass = plan.Passes
	}
}

func soldierIndex(soldiers []*soldier.Soldier, id string) int {
	for i, s := range soldiers {
		if s.SoldierID == id {
			return i
		}
	}
	return -1
}

func mustAssign(asg *source.Assigner, rootSeed int64, soldiers []*soldier.Soldier, sources []*source.Source) []source.Pairing {
	pairings, err := asg.Assign(rootSeed, soldiers, sources)
	if err != nil {
		return nil
	}
	return pairings
}

func (p *Pipeline) summarize(soldiers []*soldier.Soldier, sources []*source.Source, records []Record, assessments []difficulty.Assessment, passes int) Summary {
	transitionCounts := map[soldier.TransitionType]int{}
	total := 0
	collisionHits := 0
	for _, s := range soldiers {
		for i, st := range s.States {
			if i == 0 {
				continue
			}
			transitionCounts[st.Transition]++
			total++
		}
		if len(s.States) > 0 {
			for _, d := range s.States[0].Post.Path {
				if p.Hierarchy.Collides(d.Level, d.Value) {
					collisionHits++
					break
				}
			}
		}
	}
	transitionDist := make(map[soldier.TransitionType]float64, len(transitionCounts))
	for t, c := range transitionCounts {
		if total > 0 {
			transitionDist[t] = float64(c) / float64(total)
		}
	}

	tierCounts := map[difficulty.Tier]int{}
	for _, a := range assessments {
		tierCounts[a.Tier]++
	}

	coverage := 0.0
	if len(soldiers) > 0 {
		coverage = float64(collisionHits) / float64(len(soldiers))
	}

	return Summary{
		SoldierCount:           len(soldiers),
		SourceCount:            len(sources),
		RecordCount:            len(records),
		CollisionCoverage:      coverage,
		TransitionDistribution: transitionDist,
		TierCounts:             tierCounts,
		RebalancePasses:        passes,
	}
}

// errorf wraps orchestrator-level failures consistently; the orchestrator
// never swallows an error to continue best-effort, per spec.md §7.
func errorf(component, identifier, format string, args ...any) error {
	return generrors.New(generrors.InfeasibleTargets, component, identifier, fmt.Sprintf(format, args...))
}
