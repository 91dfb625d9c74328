package orchestrator

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rgonzalez12/posthist/internal/difficulty"
	"github.com/rgonzalez12/posthist/internal/generrors"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/soldier"
	"github.com/rgonzalez12/posthist/internal/source"
)

// writeCSVAtomic writes rows to path via a temp-file-then-rename, the
// same atomicity the teacher's StatePersistence uses for circuit-breaker
// state, so a mid-write crash never leaves a half-written artifact
// observable at its final path.
func writeCSVAtomic(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		os.Remove(tmp)
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			os.Remove(tmp)
			return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}
	return nil
}

// writeJSONAtomic is writeCSVAtomic's counterpart for a whole JSON
// document. The difficulty artifact's diagnostic columns do not use it:
// WriteDifficulty stores them as JSON strings inside CSV cells.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return generrors.Wrap(generrors.InfeasibleTargets, "orchestrator", path, err)
	}
	return os.Rename(tmp, path)
}

// WriteRawRecords emits the "Raw records" artifact (§6): source_id,
// soldier_id, raw_text.
func WriteRawRecords(path string, records []Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.SourceID, r.SoldierID, r.RawText})
	}
	return writeCSVAtomic(path, []string{"source_id", "soldier_id", "raw_text"}, rows)
}

// WriteRecordMetadata emits the "Per-record synthetic metadata" artifact.
func WriteRecordMetadata(path string, records []Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.SourceID, r.SoldierID, r.StateID, r.ClerkID, r.SituationID,
			strconv.Itoa(r.QualityTier), r.FamiliarityLevel, strconv.Itoa(r.PositionInSource),
		})
	}
	return writeCSVAtomic(path, []string{
		"source_id", "soldier_id", "state_id", "clerk_id", "situation_id",
		"quality_tier", "familiarity_level", "position_in_source",
	}, rows)
}

// WriteSoldierLabels emits the "Per-soldier labels" artifact, one row per
// state, with per-level designator columns flattened across every level
// name the hierarchy defines.
func WriteSoldierLabels(path string, soldiers []*soldier.Soldier, h *hierarchy.Hierarchy) error {
	levelNames := allLevelNames(h)

	header := append([]string{"soldier_id", "state_id", "state_order", "branch", "post_path"}, levelNames...)
	var rows [][]string
	for _, s := range soldiers {
		for _, st := range s.States {
			pathStr := make([]string, len(st.Post.Path))
			for i, d := range st.Post.Path {
				pathStr[i] = d.Value
			}
			row := []string{
				s.SoldierID, st.StateID, strconv.Itoa(st.StateOrder), st.Post.Branch, strings.Join(pathStr, "/"),
			}
			for _, lvl := range levelNames {
				v, _ := st.Post.Designator(lvl)
				row = append(row, v)
			}
			rows = append(rows, row)
		}
	}
	return writeCSVAtomic(path, header, rows)
}

// allLevelNames returns every level name across every branch, in a stable
// order (branch name, then level order within branch) so the labels
// artifact's column layout doesn't vary between runs of the same config.
func allLevelNames(h *hierarchy.Hierarchy) []string {
	branchNames := make([]string, 0, len(h.Branches))
	for name := range h.Branches {
		branchNames = append(branchNames, name)
	}
	sort.Strings(branchNames)

	seen := map[string]bool{}
	var out []string
	for _, name := range branchNames {
		for _, lvl := range h.Branches[name].Levels {
			if !seen[lvl] {
				seen[lvl] = true
				out = append(out, lvl)
			}
		}
	}
	return out
}

// WriteSources emits the "Sources" artifact.
func WriteSources(path string, sources []*source.Source) error {
	var rows [][]string
	for _, s := range sources {
		homeUnit := make([]string, len(s.HomeUnit.Prefix))
		for i, d := range s.HomeUnit.Prefix {
			homeUnit[i] = d.Value
		}
		anchor := "any"
		if !s.TemporalAnchor.IsAny() {
			anchor = strconv.Itoa(s.TemporalAnchor.Ordinal)
		}
		rows = append(rows, []string{
			s.SourceID, s.ClerkID, s.SituationID,
			s.HomeUnit.Branch + "/" + strings.Join(homeUnit, "/"),
			anchor, strconv.Itoa(s.QualityTier),
		})
	}
	return writeCSVAtomic(path, []string{
		"source_id", "clerk_id", "situation_id", "home_unit", "temporal_anchor", "quality_tier",
	}, rows)
}

// WriteDifficulty emits the "Ground-truth difficulty" artifact. The three
// diagnostic array/map fields are serialized as JSON strings within their
// CSV cells, since CSV has no native list/map cell type.
func WriteDifficulty(path string, assessments []difficulty.Assessment) error {
	var rows [][]string
	for _, a := range assessments {
		candidates, _ := json.Marshal(a.CandidateBranches)
		confidences, _ := json.Marshal(a.LevelConfidences)
		constraints, _ := json.Marshal(a.EliminatingConstraints)
		rows = append(rows, []string{
			a.SoldierID,
			strconv.FormatBool(a.CollisionPosition),
			strconv.FormatFloat(a.ComplementarityScore, 'f', 4, 64),
			strconv.FormatBool(a.StructuralResolvability),
			string(a.Tier),
			string(candidates),
			string(confidences),
			string(constraints),
		})
	}
	return writeCSVAtomic(path, []string{
		"soldier_id", "collision_position", "complementarity_score", "structural_resolvability",
		"difficulty_tier", "candidate_branches", "level_confidences", "eliminating_constraints",
	}, rows)
}
