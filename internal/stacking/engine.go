// Package stacking implements the Stacking Engine (C9): the core duty
// calculator that, given an HTS code, country of origin, entry date,
// declared value, and optional material composition, determines every
// applicable tariff program and composes the cent-exact ACE filing
// output (§4.9). It is grounded on spec.md §4.9's six-step description,
// since original_source/app/services (the Python equivalent) did not
// survive the retrieval pack's size filter for this module — see
// DESIGN.md.
package stacking

import (
	"context"
	"fmt"
	"time"

	"tariffstack/internal/logging"
	"tariffstack/internal/model"
	"tariffstack/internal/section301"
)

// MeasureLookup is the subset of *store.Store the engine needs for
// Section-232 measure rows.
type MeasureLookup interface {
	LookupMeasures(ctx context.Context, programID model.ProgramID, hts string, entryDate time.Time) ([]model.TariffMeasure, error)
}

// ApplicabilityMatcher is the subset of *rules.Matcher the engine needs:
// the coarse program x country x HTS8 scope pre-filter (§4.9 Step 1).
type ApplicabilityMatcher interface {
	ApplicablePrograms(ctx context.Context, hts8, isoAlpha2 string) ([]model.ProgramID, error)
}

// Section301Evaluator is the subset of *section301.Evaluator the engine
// needs.
type Section301Evaluator interface {
	Evaluate(ctx context.Context, hts, isoAlpha2 string, entryDate time.Time) (section301.Result, error)
}

// Engine composes the full duty stack for one calculation request.
type Engine struct {
	Matcher    ApplicabilityMatcher
	Measures   MeasureLookup
	Section301 Section301Evaluator
	Programs   []model.Program
	IEEPA      IEEPAConfig
}

// NewEngine builds an Engine with the default Program registry and
// IEEPA policy table.
func NewEngine(matcher ApplicabilityMatcher, measures MeasureLookup, section301Evaluator Section301Evaluator) *Engine {
	return &Engine{
		Matcher:    matcher,
		Measures:   measures,
		Section301: section301Evaluator,
		Programs:   DefaultPrograms(),
		IEEPA:      DefaultIEEPAConfig(),
	}
}

func parseEntryDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("entry_date %q is neither RFC3339 nor YYYY-MM-DD", raw)
}

// Calculate runs the full §4.9 pipeline: applicable-program
// determination, slice construction, IEEPA unstacking, per-slice stack
// composition, and cent-exact summation.
func (e *Engine) Calculate(ctx context.Context, req model.CalculationRequest) (model.CalculationResult, error) {
	entryDate, err := parseEntryDate(req.EntryDate)
	if err != nil {
		return model.CalculationResult{}, err
	}

	normalized := model.NormalizeHTS(req.HTSCode)
	hts8 := model.HTS8(normalized)
	if hts8 == "" {
		hts8 = normalized
	}

	// Step 1 — determine applicable programs: the Mangle scope join
	// narrows candidates, then LookupMeasures confirms an actual
	// current-dated impose row exists for each Section-232 candidate.
	candidates, err := e.Matcher.ApplicablePrograms(ctx, hts8, req.Country)
	if err != nil {
		return model.CalculationResult{}, err
	}
	candidateSet := make(map[model.ProgramID]bool, len(candidates))
	for _, p := range candidates {
		candidateSet[p] = true
	}

	programsByID := make(map[model.ProgramID]model.Program, len(e.Programs))
	for _, p := range e.Programs {
		programsByID[p.ID] = p
	}

	var decisionLog []model.DecisionLogEntry

	metalMeasures := make(map[string]model.TariffMeasure) // material -> measure
	for _, material := range materialOrder {
		programID := metalProgramID(material)
		if !candidateSet[programID] {
			continue
		}
		rows, err := e.Measures.LookupMeasures(ctx, programID, req.HTSCode, entryDate)
		if err != nil {
			return model.CalculationResult{}, err
		}
		if len(rows) == 0 {
			continue
		}
		m := rows[0]
		metalMeasures[material] = m
		decisionLog = append(decisionLog, model.DecisionLogEntry{Source: model.DecisionSourceTariffMeasure, ID: m.ID})
	}

	// Step 2 — slice construction.
	slices, err := buildSlices(req.ProductValueCents, req.Materials)
	if err != nil {
		return model.CalculationResult{}, err
	}
	nonMetal := sliceByType(slices, model.SliceNonMetal)

	// Step 3 — IEEPA unstacking audit: every declared material content
	// value is recorded exactly once (Go map keys enforce this).
	audit := model.UnstackingAudit{
		InitialValueCents:   req.ProductValueCents,
		ContentDeductions:   map[string]int64{},
		RemainingValueCents: nonMetal.LineValueCents,
	}
	for _, material := range materialOrder {
		if v := req.Materials[material]; v > 0 {
			audit.ContentDeductions[material] = v
		}
	}

	// Section 301 is evaluated once per request and applied uniformly
	// across every slice (§4.9 Step 4: "applies on non-metal and metal
	// slices alike").
	var section301Result *section301.Result
	if candidateSet[model.ProgramSection301Note20] || candidateSet[model.ProgramSection301Note31] {
		res, err := e.Section301.Evaluate(ctx, req.HTSCode, req.Country, entryDate)
		if err != nil {
			return model.CalculationResult{}, err
		}
		if res.Status == section301.StatusApplies || res.Status == section301.StatusExcluded {
			section301Result = &res
			if res.Measure != nil {
				decisionLog = append(decisionLog, model.DecisionLogEntry{Source: model.DecisionSourceTariffMeasure, ID: res.Measure.ID})
			}
			if res.Exclusion != nil {
				decisionLog = append(decisionLog, model.DecisionLogEntry{Source: model.DecisionSourceExclusionClaim, ID: res.Exclusion.ExclusionID})
			}
		}
	}

	fentanylApplies := e.IEEPA.FentanylCountries[req.Country]
	reciprocalRate, reciprocalApplies := e.IEEPA.ReciprocalRates[req.Country]
	annexIIExempt := e.IEEPA.AnnexIIExemptHTS8[hts8]

	entries := make([]model.Entry, 0, len(slices))
	for _, slice := range slices {
		stack := e.composeStack(slice, programsByID, metalMeasures, section301Result, fentanylApplies, req.ProductValueCents, reciprocalApplies, reciprocalRate, annexIIExempt)
		entries = append(entries, model.Entry{SliceType: slice.SliceType, LineValueCents: slice.LineValueCents, Stack: stack})
	}

	var total int64
	for _, entry := range entries {
		total += entry.TotalCents()
	}
	var effectiveRate float64
	if req.ProductValueCents != 0 {
		effectiveRate = float64(total) / float64(req.ProductValueCents)
	}

	logging.Stacking("calculated hts=%s country=%s entries=%d total_cents=%d", req.HTSCode, req.Country, len(entries), total)

	return model.CalculationResult{
		Entries: entries,
		TotalDuty: model.TotalDuty{
			TotalDutyAmountCents: total,
			EffectiveRate:        effectiveRate,
			Unstacking:           audit,
		},
		DecisionLog: decisionLog,
	}, nil
}

// composeStack builds one slice's StackLine list, in Program.FilingSequence
// order (§4.9 Step 4): Section 232 own-slice claim / cross-slice disclaim,
// Section 301, IEEPA Fentanyl, IEEPA Reciprocal, then the base HTS line.
func (e *Engine) composeStack(
	slice model.Entry,
	programsByID map[model.ProgramID]model.Program,
	metalMeasures map[string]model.TariffMeasure,
	section301Result *section301.Result,
	fentanylApplies bool,
	productValueCents int64,
	reciprocalApplies bool,
	reciprocalRate float64,
	annexIIExempt bool,
) []model.StackLine {
	var stack []model.StackLine

	for _, material := range materialOrder {
		m, ok := metalMeasures[material]
		if !ok {
			continue
		}
		program := programsByID[m.ProgramID]
		if slice.SliceType == model.MaterialSlice(material) {
			stack = append(stack, model.StackLine{
				ProgramID: m.ProgramID, Chapter99Code: m.Ch99Heading, Action: model.ActionClaim,
				DutyRate: m.AdditionalRate, DutyAmountCents: roundCents(slice.LineValueCents, m.AdditionalRate),
			})
			continue
		}
		if program.DisclaimBehavior == model.DisclaimRequired {
			stack = append(stack, model.StackLine{
				ProgramID: m.ProgramID, Chapter99Code: m.Ch99Heading, Action: model.ActionDisclaim,
				DutyRate: m.AdditionalRate,
			})
		}
	}

	if section301Result != nil {
		if section301Result.Status == section301.StatusExcluded {
			stack = append(stack, model.StackLine{
				ProgramID: section301Result.ProgramID, Chapter99Code: section301Result.ClaimCh99, Action: model.ActionClaim,
				DutyRate: section301Result.Measure.AdditionalRate, DutyAmountCents: roundCents(slice.LineValueCents, section301Result.Measure.AdditionalRate),
			})
		} else {
			stack = append(stack, model.StackLine{
				ProgramID: section301Result.ProgramID, Chapter99Code: section301Result.ImposeCh99, Action: model.ActionApply,
				DutyRate: section301Result.Measure.AdditionalRate, DutyAmountCents: roundCents(slice.LineValueCents, section301Result.Measure.AdditionalRate),
			})
		}
	}

	// IEEPA Fentanyl books on the non_metal slice (or the single slice
	// when no material split occurred) but its base is the full entered
	// value, not just that slice's own line value.
	if fentanylApplies && slice.SliceType == model.SliceNonMetal {
		stack = append(stack, model.StackLine{
			ProgramID: model.ProgramIEEPAFentanyl, Chapter99Code: e.IEEPA.FentanylCh99, Action: model.ActionApply,
			DutyRate: e.IEEPA.FentanylRate, DutyAmountCents: roundCents(productValueCents, e.IEEPA.FentanylRate),
		})
	}

	if reciprocalApplies {
		switch {
		case annexIIExempt:
			stack = append(stack, model.StackLine{
				ProgramID: model.ProgramIEEPAReciprocal, Chapter99Code: e.IEEPA.AnnexIIExemptCh99, Action: model.ActionExempt,
			})
		case slice.SliceType == model.SliceNonMetal:
			stack = append(stack, model.StackLine{
				ProgramID: model.ProgramIEEPAReciprocal, Chapter99Code: e.IEEPA.ReciprocalCh99, Action: model.ActionPaid,
				DutyRate: reciprocalRate, DutyAmountCents: roundCents(slice.LineValueCents, reciprocalRate),
			})
		default:
			stack = append(stack, model.StackLine{
				ProgramID: model.ProgramIEEPAReciprocal, Chapter99Code: e.IEEPA.MetalExemptCh99, Action: model.ActionExempt,
			})
		}
	}

	// Base HTS line: the MFN general rate, always the final line.
	stack = append(stack, model.StackLine{Action: model.ActionApply})

	return stack
}
