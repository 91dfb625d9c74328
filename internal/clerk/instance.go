package clerk

import "github.com/rgonzalez12/posthist/internal/idgen"

// Instance is an instantiation of an archetype with a stable clerk_id. It
// retains all archetype habits for its entire lifetime and may back dozens
// of sources (spec §3, §4.E).
type Instance struct {
	ClerkID   string
	Archetype *Archetype
	// FatigueSeed derives the per-clerk imperfection draws (spacing
	// jitter, capitalization drift) deterministically, per §5's
	// reproducibility requirement.
	FatigueSeed int64
}

// NewInstance creates a clerk instance bound to archetype, deriving its id
// and fatigue seed from the run's root seed and an ordinal index.
func NewInstance(rootSeed int64, index int, archetype *Archetype) *Instance {
	return &Instance{
		ClerkID:     idgen.EntityIDString(rootSeed, "clerk", index),
		Archetype:   archetype,
		FatigueSeed: idgen.DeriveSeed(rootSeed, "clerk", index),
	}
}
