package derive

import (
	"github.com/rs/zerolog"

	"github.com/dentclaim/dentclaim/internal/platform/notes"
	"github.com/dentclaim/dentclaim/internal/platform/points"
)

// Base visit codes, resolved through CodeFallback.
const (
	InitialVisitCode  = "A000"
	FollowUpVisitCode = "A002"
)

type Engine struct {
	logger zerolog.Logger
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Derive runs the full pipeline. It never fails: missing codes are dropped
// and reported through Result.Dropped, missing data through warnings.
func (e *Engine) Derive(in Input) *Result {
	snap := in.Snapshot
	corpus := notes.Corpus(in.Note)
	teeth := notes.ExtractTeeth(corpus)
	mc := newMatchContext(corpus, teeth, in.ToothSurfaces, in.Visit.IsNew)
	b := newBuilder(snap.FeeItems)

	if in.Visit.IsNew {
		b.addItem(InitialVisitCode, 1, nil)
	} else {
		b.addItem(FollowUpVisitCode, 1, nil)
	}

	degraded := snap.PatternsUnavailable
	if degraded {
		b.applyFallback(mc)
	} else {
		b.applyPatterns(snap.Patterns, mc)
	}

	prescribed := b.applyDrugs(snap.Drugs, mc)
	b.applyProsthetic(mc)
	b.applyMaterials(snap.Materials)
	b.applyBonuses(snap.Bonuses, snap.Registered)
	b.checkAllergies(in.Allergies, prescribed)
	b.applyComments(in.Visit)

	lines := make([]points.Line, len(b.items))
	for i, it := range b.items {
		lines[i] = points.Line{Points: it.Points, Count: it.Count}
	}

	for _, code := range b.dropped {
		e.logger.Debug().Str("code", code).Str("revision", snap.Revision).Msg("no fee item for code, dropped")
	}

	return &Result{
		IsNew:    in.Visit.IsNew,
		Items:    b.items,
		Summary:  points.Summarize(lines, in.BurdenRatio),
		Warnings: b.warnings,
		Comments: b.comments,
		Teeth:    teeth,
		Dropped:  b.dropped,
		Degraded: degraded,
	}
}
