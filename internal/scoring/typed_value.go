package scoring

import (
	"strconv"

	"github.com/proanalytics/core/internal/domain"
)

// TypedValue converts a QuestionnaireItemResponse's stored string value into
// the numeric value the Expression Engine evaluates, per the Item's
// ResponseType. Text items, unparsable values, and missing responses all
// yield nil ("unanswered"/null); a nil is then substituted with the Item's
// ItemMissingValue when the caller configured one.
func TypedValue(item domain.Item, response *domain.QuestionnaireItemResponse) *float64 {
	var v *float64
	if response != nil {
		switch item.ResponseType {
		case domain.ResponseNumber, domain.ResponseRange:
			if n, err := strconv.ParseFloat(response.ResponseValue, 64); err == nil {
				v = &n
			}
		case domain.ResponseLikert:
			// LikertScale options carry an integer option_value; the stored
			// response_value is that option_value rendered as a string.
			if n, err := strconv.Atoi(response.ResponseValue); err == nil {
				f := float64(n)
				v = &f
			}
		default: // Text
		}
	}
	if v == nil && item.ItemMissingValue != nil {
		return item.ItemMissingValue
	}
	return v
}
