package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tariffstack/internal/logging"
)

// validatorSystemPrompt mirrors validator_llm.py's SYSTEM_PROMPT: an
// independent fact-checker verifying that the Reader's citations are
// exact substrings of the chunks and actually support the claim.
const validatorSystemPrompt = `You are a fact-checker for tariff scope determinations. Your job is to verify that claims are properly supported by evidence.

CRITICAL RULES:
1. For each citation, verify the quote is an EXACT substring of the provided chunk text.
2. Verify the quote actually supports the claim (not just tangentially related).
3. If in_scope is true, there MUST be at least one citation showing the HTS code is listed.
4. If in_scope is false, there should be evidence of exclusion or gap proof.
5. Flag any claims that are not supported by the cited evidence.

You must return valid JSON only. No markdown, no explanation outside JSON.`

// ValidationFailure is one reason a citation or claim failed review.
type ValidationFailure struct {
	CitationIndex int    `json:"citation_index"`
	Reason        string `json:"reason"`
	Severity      string `json:"severity"`
}

// ValidatorOutput is the full structured output of one Validator call.
type ValidatorOutput struct {
	Success       bool                `json:"success"`
	Verified      bool                `json:"verified"`
	Failures      []ValidationFailure `json:"failures"`
	RequiredFixes []string            `json:"required_fixes"`
	Confidence    string              `json:"confidence"`
	RawResponse   string              `json:"-"`
	Error         string              `json:"error,omitempty"`
}

// Validator independently verifies a Reader's output against the
// original chunks, using a lower (zero) temperature than the Reader to
// reduce correlated mistakes. Ported from validator_llm.py's
// ValidatorLLM.
type Validator struct {
	gen Generator
}

// NewValidator builds a Validator over gen.
func NewValidator(gen Generator) *Validator {
	return &Validator{gen: gen}
}

// Validate runs the full LLM-backed validation pass.
func (v *Validator) Validate(ctx context.Context, reader ReaderOutput, chunks []ChunkRef) ValidatorOutput {
	if reader.Answer == nil && len(reader.Citations) == 0 {
		return ValidatorOutput{Success: false, Error: "no reader output provided"}
	}

	prompt := buildValidatorPrompt(reader, chunks)
	raw, err := v.gen.Generate(ctx, validatorSystemPrompt, prompt, 0.0)
	if err != nil {
		logging.Get(logging.CategoryValidator).Error("validator generate failed: %v", err)
		return ValidatorOutput{Success: false, Error: err.Error()}
	}

	out := parseValidatorResponse(raw)
	logging.ValidatorDebug("validator verified=%v failures=%d", out.Verified, len(out.Failures))
	return out
}

// QuickValidate performs the mechanical fast-path check with no LLM
// call: every citation must name a document_id and chunk_id, carry a
// non-empty quote, and that quote must appear verbatim in the
// referenced chunk's text; in_scope=true additionally requires at
// least one citation. Ported from validator_llm.py's quick_validate.
func (v *Validator) QuickValidate(reader ReaderOutput, chunks []ChunkRef) ValidatorOutput {
	chunkLookup := make(map[string]string, len(chunks))
	for _, c := range chunks {
		chunkLookup[c.ChunkID] = c.Text
	}

	var failures []ValidationFailure
	for i, c := range reader.Citations {
		if c.DocumentID == "" {
			failures = append(failures, ValidationFailure{CitationIndex: i, Reason: "missing document_id", Severity: "error"})
		}
		if c.ChunkID == "" {
			failures = append(failures, ValidationFailure{CitationIndex: i, Reason: "missing chunk_id", Severity: "error"})
		}
		if c.Quote == "" {
			failures = append(failures, ValidationFailure{CitationIndex: i, Reason: "empty quote", Severity: "error"})
		} else if text, ok := chunkLookup[c.ChunkID]; ok {
			if !strings.Contains(text, c.Quote) {
				failures = append(failures, ValidationFailure{CitationIndex: i, Reason: "quote not found verbatim in chunk", Severity: "error"})
			}
		}
	}

	if reader.Answer != nil && reader.Answer.InScope != nil && *reader.Answer.InScope && len(reader.Citations) == 0 {
		failures = append(failures, ValidationFailure{CitationIndex: -1, Reason: "in_scope=true but no citations provided", Severity: "error"})
	}

	verified := true
	for _, f := range failures {
		if f.Severity == "error" {
			verified = false
			break
		}
	}

	confidence := "low"
	if verified {
		confidence = "high"
	}

	return ValidatorOutput{Success: true, Verified: verified, Failures: failures, Confidence: confidence}
}

func buildValidatorPrompt(reader ReaderOutput, chunks []ChunkRef) string {
	var chunksText strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&chunksText, "--- CHUNK %d ---\nDocument ID: %s\nChunk ID: %s\nText:\n%s\n---\n\n",
			i+1, c.DocumentID, c.ChunkID, c.Text)
	}

	readerJSON, _ := json.MarshalIndent(reader, "", "  ")

	return fmt.Sprintf(`READER OUTPUT TO VALIDATE:
%s

ORIGINAL CHUNKS:
%s

VALIDATION TASK:
1. For each citation, verify the "quote" is an EXACT substring of the corresponding chunk's text.
2. Verify the quote supports the claim being made (in_scope value).
3. Check if the HTS code appears in the cited evidence.
4. Return validation result.

Return JSON with this exact structure:
{
    "verified": true | false,
    "failures": [
        {
            "citation_index": 0,
            "reason": "explanation of what's wrong",
            "severity": "error" | "warning"
        }
    ],
    "required_fixes": ["list of things that must be fixed"],
    "confidence": "high" | "medium" | "low"
}

RULES:
- verified=true ONLY if ALL citations are valid and support the claim
- If quote is not found verbatim, that's an error
- If quote doesn't contain HTS code when claiming in_scope=true, that's a warning
- If in_scope=true but no valid citations, that's an error`,
		string(readerJSON), chunksText.String())
}

func parseValidatorResponse(raw string) ValidatorOutput {
	jsonStr, ok := extractJSONObject(raw)
	if !ok {
		return ValidatorOutput{Success: false, RawResponse: raw, Error: "no JSON object found in response"}
	}

	var payload struct {
		Verified      bool                `json:"verified"`
		Failures      []ValidationFailure `json:"failures"`
		RequiredFixes []string            `json:"required_fixes"`
		Confidence    string              `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return ValidatorOutput{Success: false, RawResponse: raw, Error: fmt.Sprintf("json parse error: %v", err)}
	}

	return ValidatorOutput{
		Success:       true,
		Verified:      payload.Verified,
		Failures:      payload.Failures,
		RequiredFixes: payload.RequiredFixes,
		Confidence:    payload.Confidence,
		RawResponse:   raw,
	}
}
