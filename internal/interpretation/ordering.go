package interpretation

import "sort"

// RankedConstruct is the minimal shape the ordering contract needs: a
// display name plus the two significance booleans already computed by
// ClassifyCurrent/ClassifyChange.
type RankedConstruct struct {
	Name               string
	CurrentSignificant bool
	ChangeSignificant  bool
}

// OrderTopline sorts constructs per spec.md §4.F's consumer ordering
// contract: those significant on both axes rank first, then alphabetical
// by name. The input slice is sorted in place and also returned.
func OrderTopline(constructs []RankedConstruct) []RankedConstruct {
	sort.SliceStable(constructs, func(i, j int) bool {
		bi := constructs[i].CurrentSignificant && constructs[i].ChangeSignificant
		bj := constructs[j].CurrentSignificant && constructs[j].ChangeSignificant
		if bi != bj {
			return bi
		}
		return constructs[i].Name < constructs[j].Name
	})
	return constructs
}
