package model

// SliceType names a value slice of an entry: one per metal with declared
// content value, plus the non_metal remainder.
type SliceType string

const (
	SliceNonMetal SliceType = "non_metal"
	SliceCopper   SliceType = "copper_slice"
	SliceSteel    SliceType = "steel_slice"
	SliceAluminum SliceType = "aluminum_slice"
)

// MaterialSlice builds the SliceType for a declared material.
func MaterialSlice(material string) SliceType {
	switch material {
	case "copper":
		return SliceCopper
	case "steel":
		return SliceSteel
	case "aluminum":
		return SliceAluminum
	default:
		return ""
	}
}

// StackAction is the disposition of a single StackLine.
type StackAction string

const (
	ActionApply    StackAction = "apply"
	ActionClaim    StackAction = "claim"
	ActionDisclaim StackAction = "disclaim"
	ActionPaid     StackAction = "paid"
	ActionExempt   StackAction = "exempt"
)

// DutyBearing reports whether the action carries a nonzero duty amount
// (§4.9 Step 5).
func (a StackAction) DutyBearing() bool {
	return a == ActionApply || a == ActionClaim || a == ActionPaid
}

// StackLine is one program's disposition within an Entry's stack (§4.9).
type StackLine struct {
	ProgramID     ProgramID
	Chapter99Code string
	Action        StackAction
	DutyRate      float64
	DutyAmountCents int64
}

// Entry is one ACE filing line for a value slice, carrying the full program
// stack applicable to that slice (§3, §4.9 Step 6, §6).
type Entry struct {
	SliceType    SliceType
	LineValueCents int64
	Stack        []StackLine
}

// TotalCents sums this entry's StackLine duty amounts.
func (e Entry) TotalCents() int64 {
	var total int64
	for _, l := range e.Stack {
		total += l.DutyAmountCents
	}
	return total
}

// UnstackingAudit records how declared material content values were
// deducted from the entered product value to arrive at the non_metal
// remainder (§4.9 Step 3).
type UnstackingAudit struct {
	InitialValueCents    int64
	ContentDeductions    map[string]int64 // material -> content_value_cents, each present exactly once
	RemainingValueCents  int64
}

// TotalDuty is the engine-level summary returned alongside entries (§4.9
// Step 6, §6).
type TotalDuty struct {
	TotalDutyAmountCents int64
	EffectiveRate        float64 // total / product_value_cents
	Unstacking           UnstackingAudit
}

// DecisionSource names which store a decision-log citation points into.
type DecisionSource string

const (
	DecisionSourceTariffMeasure     DecisionSource = "TariffMeasure"
	DecisionSourceExclusionClaim    DecisionSource = "ExclusionClaim"
	DecisionSourceVerifiedAssertion DecisionSource = "VerifiedAssertion"
)

// DecisionLogEntry cites one record consulted while computing a duty
// calculation, for audit (§4.9 Step 6).
type DecisionLogEntry struct {
	Source DecisionSource
	ID     string
}

// CalculationRequest is the duty-calculation request shape (§6).
type CalculationRequest struct {
	HTSCode           string
	Country           string
	EntryDate         string // RFC3339 date, caller-supplied
	ProductValueCents int64
	Materials         map[string]int64 // "copper"|"steel"|"aluminum" -> content_value_cents
}

// CalculationResult is the duty-calculation response shape (§6).
type CalculationResult struct {
	Entries     []Entry
	TotalDuty   TotalDuty
	DecisionLog []DecisionLogEntry
}
