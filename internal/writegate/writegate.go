// Package writegate implements the mechanical, LLM-free admission
// checks a Reader/Validator pair must pass before a claim becomes a
// VerifiedAssertion, ported from original_source/app/rag/write_gate.py.
package writegate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"tariffstack/internal/llmclient"
	"tariffstack/internal/logging"
	"tariffstack/internal/model"
)

// DocumentLookup and ChunkLookup are the minimal store dependencies
// the gate needs, so it can be tested without a live database.
type DocumentLookup interface {
	DocumentByID(ctx context.Context, id string) (model.Document, bool, error)
}

type ChunkLookup interface {
	ChunkByID(ctx context.Context, id string) (model.DocumentChunk, bool, error)
}

// Check is the result of one named, deterministic gate check.
type Check struct {
	Name     string
	Passed   bool
	Message  string
	Severity string // "error" or "warning"
}

// Result is the full outcome of running all gate checks over one
// Reader/Validator pair.
type Result struct {
	Passed   bool
	Checks   []Check
	Errors   []string
	Warnings []string
}

// MinCitationSources is the number of distinct document sources the
// optional multiple-sources check recommends.
const MinCitationSources = 2

// Gate runs the seven mechanical proof checks: citations present, document exists, chunk
// exists, Tier A only, quote exists verbatim, validator passed, and
// (warning-only unless required) multiple sources.
type Gate struct {
	Documents DocumentLookup
	Chunks    ChunkLookup
}

// New builds a Gate over the given store lookups.
func New(documents DocumentLookup, chunks ChunkLookup) *Gate {
	return &Gate{Documents: documents, Chunks: chunks}
}

// Check runs every check against reader's citations and validator's
// verdict. requireMultipleSources escalates the multiple-sources check
// from a warning to a hard failure.
func (g *Gate) Check(ctx context.Context, reader llmclient.ReaderOutput, validator llmclient.ValidatorOutput, requireMultipleSources bool) Result {
	if len(reader.Citations) == 0 {
		return Result{
			Passed: false,
			Checks: []Check{{Name: "has_citations", Passed: false, Message: "No citations provided", Severity: "error"}},
			Errors: []string{"No citations to verify"},
		}
	}

	var checks []Check
	var errs, warnings []string

	for i, c := range reader.Citations {
		if c.DocumentID != "" {
			docCheck := g.checkDocumentExists(ctx, c.DocumentID)
			checks = append(checks, docCheck)
			if !docCheck.Passed {
				errs = append(errs, fmt.Sprintf("citation %d: %s", i, docCheck.Message))
			}

			tierCheck := g.checkTierA(ctx, c.DocumentID)
			checks = append(checks, tierCheck)
			if !tierCheck.Passed {
				errs = append(errs, fmt.Sprintf("citation %d: %s", i, tierCheck.Message))
			}
		}

		if c.ChunkID != "" {
			chunkCheck := g.checkChunkExists(ctx, c.ChunkID)
			checks = append(checks, chunkCheck)
			if !chunkCheck.Passed {
				errs = append(errs, fmt.Sprintf("citation %d: %s", i, chunkCheck.Message))
			}

			quoteCheck := g.checkQuoteExists(ctx, c.ChunkID, c.Quote)
			checks = append(checks, quoteCheck)
			if !quoteCheck.Passed {
				errs = append(errs, fmt.Sprintf("citation %d: %s", i, quoteCheck.Message))
			}
		}
	}

	validatorCheck := checkValidatorPassed(validator)
	checks = append(checks, validatorCheck)
	if !validatorCheck.Passed {
		errs = append(errs, validatorCheck.Message)
	}

	multiCheck := checkMultipleSources(reader.Citations)
	checks = append(checks, multiCheck)
	if !multiCheck.Passed {
		if requireMultipleSources {
			errs = append(errs, multiCheck.Message)
		} else {
			warnings = append(warnings, multiCheck.Message)
		}
	}

	result := Result{Passed: len(errs) == 0, Checks: checks, Errors: errs, Warnings: warnings}
	logging.WriteGate("write gate checked %d citations, passed=%v errors=%d warnings=%d",
		len(reader.Citations), result.Passed, len(errs), len(warnings))
	return result
}

func (g *Gate) checkDocumentExists(ctx context.Context, documentID string) Check {
	_, ok, err := g.Documents.DocumentByID(ctx, documentID)
	if err != nil || !ok {
		return Check{Name: "document_exists", Passed: false, Message: fmt.Sprintf("document %s not found in database", documentID), Severity: "error"}
	}
	return Check{Name: "document_exists", Passed: true, Message: fmt.Sprintf("document %s exists", documentID), Severity: "error"}
}

func (g *Gate) checkChunkExists(ctx context.Context, chunkID string) Check {
	_, ok, err := g.Chunks.ChunkByID(ctx, chunkID)
	if err != nil || !ok {
		return Check{Name: "chunk_exists", Passed: false, Message: fmt.Sprintf("chunk %s not found in database", chunkID), Severity: "error"}
	}
	return Check{Name: "chunk_exists", Passed: true, Message: fmt.Sprintf("chunk %s exists", chunkID), Severity: "error"}
}

func (g *Gate) checkTierA(ctx context.Context, documentID string) Check {
	doc, ok, err := g.Documents.DocumentByID(ctx, documentID)
	if err != nil || !ok {
		return Check{Name: "tier_a_only", Passed: false, Message: fmt.Sprintf("document %s not found", documentID), Severity: "error"}
	}
	if doc.Tier == model.TierA {
		return Check{Name: "tier_a_only", Passed: true, Message: fmt.Sprintf("document is Tier A (%s)", doc.Source), Severity: "error"}
	}
	return Check{Name: "tier_a_only", Passed: false, Message: fmt.Sprintf("document is Tier %s, not Tier A", doc.Tier), Severity: "error"}
}

func (g *Gate) checkQuoteExists(ctx context.Context, chunkID, quote string) Check {
	if quote == "" {
		return Check{Name: "quote_exists", Passed: false, Message: "quote is empty", Severity: "error"}
	}
	chunk, ok, err := g.Chunks.ChunkByID(ctx, chunkID)
	if err != nil || !ok {
		return Check{Name: "quote_exists", Passed: false, Message: fmt.Sprintf("chunk %s not found", chunkID), Severity: "error"}
	}
	if strings.Contains(chunk.Text, quote) {
		return Check{Name: "quote_exists", Passed: true, Message: "quote found verbatim in chunk", Severity: "error"}
	}
	return Check{Name: "quote_exists", Passed: false, Message: "quote not found verbatim in chunk text", Severity: "error"}
}

func checkValidatorPassed(validator llmclient.ValidatorOutput) Check {
	if !validator.Success {
		return Check{Name: "validator_passed", Passed: false, Message: "no validator output provided", Severity: "error"}
	}
	if validator.Verified {
		return Check{Name: "validator_passed", Passed: true, Message: "validator confirmed all citations", Severity: "error"}
	}
	return Check{Name: "validator_passed", Passed: false, Message: fmt.Sprintf("validator failed: %v", validator.Failures), Severity: "error"}
}

func checkMultipleSources(citations []llmclient.Citation) Check {
	unique := make(map[string]bool, len(citations))
	for _, c := range citations {
		if c.DocumentID != "" {
			unique[c.DocumentID] = true
		}
	}
	if len(unique) >= MinCitationSources {
		return Check{Name: "multiple_sources", Passed: true, Message: fmt.Sprintf("found %d unique document sources", len(unique)), Severity: "warning"}
	}
	return Check{Name: "multiple_sources", Passed: false, Message: fmt.Sprintf("only %d source(s), recommend %d+", len(unique), MinCitationSources), Severity: "warning"}
}

// ComputeEvidenceHash hashes a (quote, document, chunk) triple for
// evidence deduplication.
func ComputeEvidenceHash(quote, documentID, chunkID string) string {
	content := quote + "|" + documentID + "|" + chunkID
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
