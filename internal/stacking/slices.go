package stacking

import "tariffstack/internal/model"

// materialOrder fixes the slice emission order: non_metal first, then
// copper, steel, aluminum — matching spec.md §8's scenario listings.
var materialOrder = []string{"copper", "steel", "aluminum"}

// buildSlices implements §4.9 Step 2: one slice per declared material
// with a positive content value, plus a non_metal remainder. Every
// declared material is subtracted from the product value exactly once,
// regardless of whether any Section-232 program ultimately applies to
// it — that decision is made later, per slice, in composeStack.
func buildSlices(productValueCents int64, materials map[string]int64) ([]model.Entry, error) {
	var contentSum int64
	var metalSlices []model.Entry
	for _, material := range materialOrder {
		v := materials[material]
		if v <= 0 {
			continue
		}
		contentSum += v
		metalSlices = append(metalSlices, model.Entry{SliceType: model.MaterialSlice(material), LineValueCents: v})
	}

	remaining := productValueCents - contentSum
	if remaining < 0 {
		return nil, &model.InvalidMaterialAllocation{DeclaredValueCents: productValueCents, MaterialSumCents: contentSum}
	}

	slices := make([]model.Entry, 0, len(metalSlices)+1)
	slices = append(slices, model.Entry{SliceType: model.SliceNonMetal, LineValueCents: remaining})
	slices = append(slices, metalSlices...)
	return slices, nil
}

func sliceByType(slices []model.Entry, t model.SliceType) model.Entry {
	for _, s := range slices {
		if s.SliceType == t {
			return s
		}
	}
	return model.Entry{}
}
