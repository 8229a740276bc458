package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tariffstack/internal/logging"
	"tariffstack/internal/model"
)

// readerSystemPrompt mirrors reader_llm.py's SYSTEM_PROMPT verbatim in
// substance: answer only from the provided chunks, cite verbatim
// quotes, return null in_scope when undetermined.
const readerSystemPrompt = `You are a tariff scope analyst. Your job is to determine whether an HTS code is in scope for a tariff program.

CRITICAL RULES:
1. ONLY use the provided document chunks to answer. Do NOT use external knowledge.
2. If the answer is not clearly stated in the chunks, return in_scope: null.
3. For every claim, provide an EXACT verbatim quote from the chunks.
4. Include the document_id and chunk_id for each citation.
5. If you find contradictory information, list it in contradictions[].
6. If you need more information, list it in missing_info[].

You must return valid JSON only. No markdown, no explanation outside JSON.`

// Citation is one verbatim-quote citation from a Reader answer.
type Citation struct {
	DocumentID      string `json:"document_id"`
	ChunkID         string `json:"chunk_id"`
	Quote           string `json:"quote"`
	WhyThisSupports string `json:"why_this_supports"`
}

// ReaderAnswer is the answer portion of a Reader's output. InScope is
// a pointer so the model can return JSON null when the chunks don't
// clearly determine scope.
type ReaderAnswer struct {
	InScope        *bool    `json:"in_scope"`
	Program        string   `json:"program"`
	HTSCode        string   `json:"hts_code"`
	ClaimCodes     []string `json:"claim_codes"`
	DisclaimCodes  []string `json:"disclaim_codes"`
	Confidence     string   `json:"confidence"`
}

// ReaderOutput is the full structured output of one Reader call.
type ReaderOutput struct {
	Success        bool       `json:"success"`
	Answer         *ReaderAnswer `json:"answer"`
	Citations      []Citation `json:"citations"`
	MissingInfo    []string   `json:"missing_info"`
	Contradictions []string   `json:"contradictions"`
	RawResponse    string     `json:"-"`
	Error          string     `json:"error,omitempty"`
}

// ChunkRef is the minimal chunk representation the Reader/Validator
// need: enough to build the prompt context and to verify citations.
type ChunkRef struct {
	DocumentID string
	ChunkID    string
	Source     string
	Text       string
}

// ChunkRefFromModel adapts a stored chunk plus its document source
// into the prompt-ready ChunkRef shape.
func ChunkRefFromModel(c model.DocumentChunk, source model.DocumentSource) ChunkRef {
	return ChunkRef{DocumentID: c.DocumentID, ChunkID: c.ID, Source: string(source), Text: c.Text}
}

// Reader answers a single scope question ("is HTS code X in scope for
// program Y") using only the provided chunks, requiring a verbatim
// citation for every claim. Ported from reader_llm.py's ReaderLLM.
type Reader struct {
	gen Generator
}

// NewReader builds a Reader over gen (typically a *Client).
func NewReader(gen Generator) *Reader {
	return &Reader{gen: gen}
}

// Read answers whether htsCode is in scope for programID (optionally
// scoped to material, for Section 232), using only chunks as evidence.
func (r *Reader) Read(ctx context.Context, htsCode, programID, material string, chunks []ChunkRef) ReaderOutput {
	if len(chunks) == 0 {
		return ReaderOutput{Success: false, Error: "no chunks provided"}
	}

	prompt := buildReaderPrompt(htsCode, programID, material, chunks)
	raw, err := r.gen.Generate(ctx, readerSystemPrompt, prompt, 0.1)
	if err != nil {
		logging.Get(logging.CategoryReader).Error("reader generate failed: %v", err)
		return ReaderOutput{Success: false, Error: err.Error()}
	}

	out := parseReaderResponse(raw)
	logging.ReaderDebug("reader answered hts=%s program=%s in_scope=%v citations=%d",
		htsCode, programID, inScopeString(out.Answer), len(out.Citations))
	return out
}

func inScopeString(a *ReaderAnswer) string {
	if a == nil || a.InScope == nil {
		return "null"
	}
	if *a.InScope {
		return "true"
	}
	return "false"
}

func buildReaderPrompt(htsCode, programID, material string, chunks []ChunkRef) string {
	var materialStr string
	if material != "" {
		materialStr = " for " + material
	}

	var ctxBuilder strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&ctxBuilder, "--- CHUNK %d ---\nDocument ID: %s\nChunk ID: %s\nSource: %s\nText:\n%s\n---\n\n",
			i+1, c.DocumentID, c.ChunkID, c.Source, c.Text)
	}

	return fmt.Sprintf(`QUESTION:
Is HTS code %s in scope for %s%s?

DOCUMENT CHUNKS:
%s

Analyze the chunks and return JSON with this exact structure:
{
    "answer": {
        "in_scope": true | false | null,
        "program": "%s",
        "hts_code": "%s",
        "claim_codes": ["list of applicable Chapter 99 claim codes"],
        "disclaim_codes": ["list of applicable disclaim codes"],
        "confidence": "high" | "medium" | "low"
    },
    "citations": [
        {
            "document_id": "the document ID from the chunk",
            "chunk_id": "the chunk ID",
            "quote": "EXACT verbatim quote that supports the answer (max 300 chars)",
            "why_this_supports": "brief explanation"
        }
    ],
    "missing_info": ["list of information needed but not found"],
    "contradictions": ["list of contradictory statements found"]
}

IMPORTANT:
- in_scope MUST be null if you cannot determine from the chunks
- quotes MUST be EXACT verbatim text from the chunks
- If HTS %s or its 8-digit prefix is listed, it's in_scope: true
- If you find evidence it's NOT listed (gap proof), it's in_scope: false`,
		htsCode, programID, materialStr, ctxBuilder.String(), programID, htsCode, htsCode)
}

// parseReaderResponse extracts the first top-level JSON object from
// raw (permitting leading/trailing prose the model may add despite
// instructions) and parses it into a ReaderOutput.
func parseReaderResponse(raw string) ReaderOutput {
	jsonStr, ok := extractJSONObject(raw)
	if !ok {
		return ReaderOutput{Success: false, RawResponse: raw, Error: "no JSON object found in response"}
	}

	var payload struct {
		Answer         *ReaderAnswer `json:"answer"`
		Citations      []Citation    `json:"citations"`
		MissingInfo    []string      `json:"missing_info"`
		Contradictions []string      `json:"contradictions"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return ReaderOutput{Success: false, RawResponse: raw, Error: fmt.Sprintf("json parse error: %v", err)}
	}

	return ReaderOutput{
		Success:        true,
		Answer:         payload.Answer,
		Citations:      payload.Citations,
		MissingInfo:    payload.MissingInfo,
		Contradictions: payload.Contradictions,
		RawResponse:    raw,
	}
}

// extractJSONObject returns the substring spanning the first '{' and
// the last '}' in s, matching reader_llm.py's permissive
// find('{')/rfind('}') extraction rather than requiring the whole
// response to be clean JSON.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
