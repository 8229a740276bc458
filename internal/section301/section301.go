// Package section301 implements the Section-301 Evaluator (C10): a
// deterministic, LLM-free six-step pipeline over already-ingested
// TariffMeasure and ExclusionClaim rows, grounded on spec.md §4.8 and
// original_source/app/services/section301_engine.py's step list (the
// file itself is header-only in the retrieval pack; the six steps below
// are implemented from spec.md's description of that engine).
package section301

import (
	"context"
	"time"

	"tariffstack/internal/logging"
	"tariffstack/internal/model"
)

// Store is the subset of *store.Store the evaluator needs.
type Store interface {
	IsHTSValid(ctx context.Context, hts string, entryDate time.Time) (bool, error)
	LookupMeasures(ctx context.Context, programID model.ProgramID, hts string, entryDate time.Time) ([]model.TariffMeasure, error)
	MatchExclusion(ctx context.Context, noteBucket, hts string, entryDate time.Time) (model.ExclusionClaim, bool, error)
}

// NoteBuckets maps each Section 301 program to its ExclusionClaim
// NoteBucket key.
var NoteBuckets = map[model.ProgramID]string{
	model.ProgramSection301Note20: "301_NOTE20",
	model.ProgramSection301Note31: "301_NOTE31",
}

// CandidatePrograms lists the Section 301 programs in inclusion-match
// precedence order (§4.8 Step 3): Note 20 is checked before Note 31.
var CandidatePrograms = []model.ProgramID{
	model.ProgramSection301Note20,
	model.ProgramSection301Note31,
}

// Status is the outcome of one Evaluate call.
type Status string

const (
	StatusNotApplicable      Status = "not_applicable"       // Step 1: country gate
	StatusInvalidHTS         Status = "invalid_hts"           // Step 2: not valid on entry_date
	StatusNoMeasure          Status = "no_measure"            // Step 3: no 301 measure enumerated for this HTS
	StatusExcluded           Status = "excluded"              // Step 4: exclusion claim matched
	StatusApplies            Status = "applies"               // impose measure stands
	StatusFutureDateRejected Status = "future_date_rejected"  // Step 6
)

// Result is the outcome of evaluating one (hts, country, entry_date).
type Result struct {
	Status     Status
	ProgramID  model.ProgramID
	Measure    *model.TariffMeasure
	Exclusion  *model.ExclusionClaim
	ImposeCh99 string
	ClaimCh99  string
	RateStatus model.RateStatus
	// VerificationRequired is always true when Status == StatusExcluded
	// (§3 ExclusionClaim.VerificationNeeded, §8 scenario 4).
	VerificationRequired bool
	Reason               string
}

// CountryPolicy decides which ISO alpha-2 countries route into Section
// 301's country gate. Deliberately a plain injectable table rather than
// hardcoded logic: spec.md §9 flags exact Hong Kong/Macau routing as
// policy-dependent and explicitly defers it to a table, not a constant
// (see DESIGN.md's Open Question decision).
type CountryPolicy struct {
	Section301Countries map[string]bool // ISO alpha-2 codes Section 301 applies to
}

// DefaultCountryPolicy routes only mainland China (CN); Hong Kong (HK)
// and Macau (MO) are distinct customs territories and are not routed in
// by default under current policy.
func DefaultCountryPolicy() CountryPolicy {
	return CountryPolicy{Section301Countries: map[string]bool{"CN": true}}
}

func (p CountryPolicy) covers(isoAlpha2 string) bool {
	return p.Section301Countries[isoAlpha2]
}

// Evaluator runs the six-step Section 301 pipeline.
type Evaluator struct {
	Store         Store
	CountryPolicy CountryPolicy
	FutureHorizon time.Duration
	Now           func() time.Time
}

// NewEvaluator builds an Evaluator. now defaults to time.Now if nil.
func NewEvaluator(store Store, policy CountryPolicy, futureHorizon time.Duration, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{Store: store, CountryPolicy: policy, FutureHorizon: futureHorizon, Now: now}
}

// Evaluate runs the six-step pipeline against one (hts, country,
// entry_date), in the order spec.md §4.8 documents them.
func (e *Evaluator) Evaluate(ctx context.Context, hts, isoAlpha2 string, entryDate time.Time) (Result, error) {
	// Step 1 — country gate.
	if !e.CountryPolicy.covers(isoAlpha2) {
		return Result{Status: StatusNotApplicable, Reason: "country " + isoAlpha2 + " not in Section 301 scope"}, nil
	}

	// Step 2 — HTS validity.
	valid, err := e.Store.IsHTSValid(ctx, hts, entryDate)
	if err != nil {
		return Result{}, err
	}
	if !valid {
		return Result{Status: StatusInvalidHTS, Reason: "HTS " + hts + " not valid on entry date"}, nil
	}

	// Step 3 — inclusion match, in CandidatePrograms precedence order.
	var matchedProgram model.ProgramID
	var measure *model.TariffMeasure
	for _, programID := range CandidatePrograms {
		rows, err := e.Store.LookupMeasures(ctx, programID, hts, entryDate)
		if err != nil {
			return Result{}, err
		}
		if m := bestMeasure(rows); m != nil {
			matchedProgram = programID
			measure = m
			break
		}
	}
	if measure == nil {
		return Result{Status: StatusNoMeasure, Reason: "no Section 301 measure enumerated for " + hts}, nil
	}

	// Step 4 — exclusion check.
	bucket := NoteBuckets[matchedProgram]
	exclusion, found, err := e.Store.MatchExclusion(ctx, bucket, hts, entryDate)
	if err != nil {
		return Result{}, err
	}

	// Step 5 — rate status surfaces regardless of exclusion outcome.
	result := Result{
		ProgramID:  matchedProgram,
		Measure:    measure,
		ImposeCh99: measure.Ch99Heading,
		RateStatus: measure.RateStatus,
	}

	if found {
		result.Status = StatusExcluded
		result.Exclusion = &exclusion
		result.ClaimCh99 = exclusion.ClaimCh99Heading
		result.VerificationRequired = true
	} else {
		result.Status = StatusApplies
	}

	// Step 6 — future-date guard.
	if e.FutureHorizon > 0 && entryDate.After(e.Now().Add(e.FutureHorizon)) {
		result.Status = StatusFutureDateRejected
		result.Reason = "entry date beyond configured future horizon"
	}

	logging.Get(logging.CategorySection301).Debug(
		"section301 evaluate hts=%s country=%s status=%s program=%s", hts, isoAlpha2, result.Status, matchedProgram)
	return result, nil
}

// bestMeasure applies the HTS10>HTS8 / latest-effective-start tie-break
// when more than one row is returned for the same program (the normal
// case is exactly zero or one, per the at-most-one-open-row invariant;
// this is defensive for historical as_of queries against superseded rows).
func bestMeasure(rows []model.TariffMeasure) *model.TariffMeasure {
	if len(rows) == 0 {
		return nil
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if preferMeasure(r, best) {
			best = r
		}
	}
	return &best
}

func preferMeasure(candidate, current model.TariffMeasure) bool {
	if candidate.ScopeHTSType == model.ScopeHTS10 && current.ScopeHTSType != model.ScopeHTS10 {
		return true
	}
	if candidate.ScopeHTSType != model.ScopeHTS10 && current.ScopeHTSType == model.ScopeHTS10 {
		return false
	}
	return candidate.EffectiveStart.After(current.EffectiveStart)
}
