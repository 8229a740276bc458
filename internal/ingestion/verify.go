package ingestion

import (
	"context"
	"fmt"
	"time"

	"tariffstack/internal/llmclient"
	"tariffstack/internal/logging"
	"tariffstack/internal/model"
	"tariffstack/internal/writegate"
)

// VerifyRequest names the scope question to answer: is htsCode in
// scope for programID (optionally for a single material, for
// Section-232 programs)?
type VerifyRequest struct {
	HTSCode   string
	ProgramID model.ProgramID
	Material  string
}

// VerifyOutcome reports what the verification pipeline did.
type VerifyOutcome string

const (
	VerifyAdmitted   VerifyOutcome = "admitted" // wrote a VerifiedAssertion
	VerifyReviewed   VerifyOutcome = "needs_review"
	VerifyNoEvidence VerifyOutcome = "no_evidence" // no Tier-A chunks mention the HTS code at all
)

// VerifyResult is the outcome of one Verify call.
type VerifyResult struct {
	Outcome   VerifyOutcome
	Assertion *model.VerifiedAssertion
	ReviewID  string
	Gate      writegate.Result
}

// Verify runs the discovery -> Reader -> Validator -> Write Gate
// pipeline for req, admitting a VerifiedAssertion on success or filing
// a NeedsReviewQueue entry on failure (spec.md §4.6). When no Reader
// is configured (no LLM credentials), every call fails the write gate's
// citation check and lands in the review queue for a human to resolve
// directly. When no Validator is configured, QuickValidate stands in
// for it.
func (o *Orchestrator) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	chunks, err := o.store.FindChunksByHTS(ctx, req.HTSCode)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("find evidence for hts %s: %w", req.HTSCode, err)
	}
	if len(chunks) == 0 {
		logging.Ingestion("verify hts=%s program=%s: no tier-a evidence found", req.HTSCode, req.ProgramID)
		return VerifyResult{Outcome: VerifyNoEvidence}, nil
	}

	refs := make([]llmclient.ChunkRef, 0, len(chunks))
	for _, c := range chunks {
		refs = append(refs, llmclient.ChunkRef{DocumentID: c.DocumentID, ChunkID: c.ID, Text: c.Text})
	}

	var readerOut llmclient.ReaderOutput
	if o.reader != nil {
		readerOut = o.reader.Read(ctx, req.HTSCode, string(req.ProgramID), req.Material, refs)
	} else {
		readerOut = llmclient.ReaderOutput{Success: false, Error: "no reader configured"}
	}

	var validatorOut llmclient.ValidatorOutput
	switch {
	case !readerOut.Success:
		validatorOut = llmclient.ValidatorOutput{Success: false, Error: "reader did not succeed"}
	case o.validator != nil:
		validatorOut = o.validator.Validate(ctx, readerOut, refs)
	default:
		validatorOut = llmclient.NewValidator(nil).QuickValidate(readerOut, refs)
	}

	gateResult := o.gate.Check(ctx, readerOut, validatorOut, o.cfg.RequireMultipleSources)
	if !gateResult.Passed {
		review, err := o.reviews.FromWriteGateFailure(ctx, req.HTSCode, string(req.ProgramID), req.Material, readerOut, validatorOut, gateResult)
		if err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{Outcome: VerifyReviewed, ReviewID: review.ID, Gate: gateResult}, nil
	}

	assertion := assertionFromPipeline(req, readerOut)
	assertion, err = o.store.InsertAssertion(ctx, assertion)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Outcome: VerifyAdmitted, Assertion: &assertion, Gate: gateResult}, nil
}

func assertionFromPipeline(req VerifyRequest, reader llmclient.ReaderOutput) model.VerifiedAssertion {
	assertionType := model.AssertionOutOfScope
	if reader.Answer != nil && reader.Answer.InScope != nil && *reader.Answer.InScope {
		assertionType = model.AssertionInScope
	}

	var claimCode, disclaimCode, documentID, chunkID, quote string
	if reader.Answer != nil && len(reader.Answer.ClaimCodes) > 0 {
		claimCode = reader.Answer.ClaimCodes[0]
	}
	if reader.Answer != nil && len(reader.Answer.DisclaimCodes) > 0 {
		disclaimCode = reader.Answer.DisclaimCodes[0]
	}
	if len(reader.Citations) > 0 {
		documentID = reader.Citations[0].DocumentID
		chunkID = reader.Citations[0].ChunkID
		quote = reader.Citations[0].Quote
	}

	normalized := model.NormalizeHTS(req.HTSCode)
	return model.VerifiedAssertion{
		ProgramID: req.ProgramID, HTSCodeNorm: normalized, HTSDigits: model.Digits(normalized),
		Material: req.Material, AssertionType: assertionType, ClaimCode: claimCode, DisclaimCode: disclaimCode,
		EffectiveStart: time.Now().UTC(),
		DocumentID:     documentID, ChunkID: chunkID, EvidenceQuote: quote,
		EvidenceQuoteHash: writegate.ComputeEvidenceHash(quote, documentID, chunkID),
		VerifiedBy:        "reader+validator",
	}
}
