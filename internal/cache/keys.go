package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/proanalytics/core/internal/domain"
)

// Key family prefixes, per spec.md §4.G's table.
const (
	prefixPopulation      = "agg:"
	prefixPatientScore    = "pscores:"
	prefixPatientItem     = "pitem:"
	prefixPatientComposite = "pcomp:"
)

// canonicalFilter is a stable, field-sorted projection of a FilterContext
// used only to produce a deterministic hash input; json.Marshal on a
// struct already emits fields in declaration order, so this type pins that
// order explicitly rather than relying on domain.FilterContext's own
// (potentially evolving) field order.
type canonicalFilter struct {
	AnchorKind        domain.AnchorKind `json:"anchor_kind"`
	AnchorRefID       string            `json:"anchor_ref_id,omitempty"`
	Granularity       domain.Granularity `json:"granularity"`
	UpperBoundDate    int64             `json:"upper_bound_date,omitempty"`
	MaxIntervals      int               `json:"max_intervals,omitempty"`
	ItemFilter        []string          `json:"item_filter,omitempty"`
	QuestionnaireFilter []string        `json:"questionnaire_filter,omitempty"`
}

func canonicalizeFilter(fc domain.FilterContext) canonicalFilter {
	c := canonicalFilter{
		AnchorKind:  fc.Anchor.Kind,
		Granularity: fc.Granularity,
	}
	if fc.Anchor.RefID != nil {
		c.AnchorRefID = fc.Anchor.RefID.String()
	}
	if fc.SubmissionWindow.UpperBoundDate != nil {
		c.UpperBoundDate = *fc.SubmissionWindow.UpperBoundDate
	}
	if fc.SubmissionWindow.MaxIntervals != nil {
		c.MaxIntervals = *fc.SubmissionWindow.MaxIntervals
	}
	c.ItemFilter = sortedStrings(fc.ItemFilter)
	c.QuestionnaireFilter = sortedStrings(fc.QuestionnaireFilter)
	return c
}

func sortedStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	sort.Strings(out)
	return out
}

// FilterHash is the stable digest over a canonicalized FilterContext,
// reused as the `<filter_hash>` component of every patient-scoped key.
func FilterHash(fc domain.FilterContext) string {
	return hashJSON(canonicalizeFilter(fc))
}

func hashJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Marshal of these plain-data structs cannot fail; this branch
		// exists only so hashJSON has no error return for callers to check.
		b = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// PatientScoreKey/PatientItemKey/PatientCompositeKey are the three
// patient-scoped key shapes from spec.md §4.G. Patient ids are opaque
// uuid tokens, never plaintext free-text identifiers.
func PatientScoreKey(patientID, constructID uuid.UUID, filterHash string) string {
	return fmt.Sprintf("%s%s:%s:%s", prefixPatientScore, patientID, constructID, filterHash)
}

func PatientItemKey(patientID, itemID uuid.UUID, filterHash string) string {
	return fmt.Sprintf("%s%s:%s:%s", prefixPatientItem, patientID, itemID, filterHash)
}

func PatientCompositeKey(patientID, compositeID uuid.UUID, filterHash string) string {
	return fmt.Sprintf("%s%s:%s:%s", prefixPatientComposite, patientID, compositeID, filterHash)
}

// PopulationKey hashes the full (target, FilterContext, cohort predicates,
// aggregation type) tuple, per spec.md §4.G's `agg:<hash(...)>` pattern.
func PopulationKey(target domain.AggregationTarget, fc domain.FilterContext, predicates domain.CohortPredicates, aggType domain.AggregationType) string {
	type canonicalPopulationKey struct {
		ConstructScaleID string                  `json:"construct_scale_id,omitempty"`
		ItemID           string                  `json:"item_id,omitempty"`
		Filter           canonicalFilter         `json:"filter"`
		Predicates       domain.CohortPredicates `json:"predicates"`
		AggType          domain.AggregationType  `json:"agg_type"`
	}
	k := canonicalPopulationKey{Filter: canonicalizeFilter(fc), Predicates: predicates, AggType: aggType}
	if target.ConstructScaleID != nil {
		k.ConstructScaleID = target.ConstructScaleID.String()
	}
	if target.ItemID != nil {
		k.ItemID = target.ItemID.String()
	}
	return prefixPopulation + hashJSON(k)
}

// IsPopulationKey/IsPatientKey classify a key by its prefix, used to route
// GetOrCompute to the correct tier.
func IsPopulationKey(key string) bool {
	return hasPrefix(key, prefixPopulation)
}

func IsPatientKey(key string) bool {
	return hasPrefix(key, prefixPatientScore) || hasPrefix(key, prefixPatientItem) || hasPrefix(key, prefixPatientComposite)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
