package main

import (
	"encoding/csv"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgonzalez12/posthist/internal/difficulty"
	"github.com/rgonzalez12/posthist/internal/extraction"
	"github.com/rgonzalez12/posthist/internal/generrors"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/log"
	"github.com/rgonzalez12/posthist/internal/orchestrator"
)

var (
	scoreLabelsPath     string
	scoreExtractionPath string
	scoreHierarchyPath  string
	scoreOutPath        string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute ground-truth difficulty from an external extraction table",
	Long: `score re-runs the Ground-Truth Difficulty Computer (spec §4.K)
over an extraction table produced by an external pattern-matching pass,
independent of any generation run. It never touches the generator's
random sources.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreLabelsPath, "labels", "", "per-soldier labels CSV (for the soldier id universe)")
	scoreCmd.Flags().StringVar(&scoreExtractionPath, "extraction", "", "extraction table JSON")
	scoreCmd.Flags().StringVar(&scoreHierarchyPath, "hierarchy", "", "hierarchy YAML")
	scoreCmd.Flags().StringVar(&scoreOutPath, "out", "", "difficulty CSV output path")
	scoreCmd.MarkFlagRequired("labels")
	scoreCmd.MarkFlagRequired("extraction")
	scoreCmd.MarkFlagRequired("hierarchy")
	scoreCmd.MarkFlagRequired("out")
}

func runScore(cmd *cobra.Command, args []string) error {
	h, err := hierarchy.LoadFile(scoreHierarchyPath)
	if err != nil {
		return err
	}

	table, err := extraction.LoadFile(scoreExtractionPath)
	if err != nil {
		return err
	}

	soldierIDs, err := soldierIDsFromLabels(scoreLabelsPath)
	if err != nil {
		return err
	}

	assessments := make([]difficulty.Assessment, 0, len(soldierIDs))
	tierCounts := map[difficulty.Tier]int{}
	for _, id := range soldierIDs {
		a := difficulty.Compute(h, id, table.ForSoldier(id))
		log.AssessmentContext(id).Debug("scored", "tier", a.Tier)
		tierCounts[a.Tier]++
		assessments = append(assessments, a)
	}

	if err := orchestrator.WriteDifficulty(scoreOutPath, assessments); err != nil {
		return err
	}

	log.Info("difficulty scoring complete",
		"soldier_count", len(assessments),
		"output_path", scoreOutPath,
		"tier_counts", tierCounts)
	return nil
}

// soldierIDsFromLabels reads the distinct soldier_id column from a "Per-soldier
// labels" artifact, so score can run against the soldier universe of a prior
// generate run without re-deriving it from the corpus's other artifacts.
func soldierIDsFromLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, generrors.Wrap(generrors.InfeasibleTargets, "score", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, generrors.Wrap(generrors.InfeasibleTargets, "score", path, err)
	}
	if len(rows) == 0 {
		return nil, generrors.New(generrors.InfeasibleTargets, "score", path, "labels file has no rows")
	}

	seen := map[string]bool{}
	var out []string
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		id := row[0]
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}
