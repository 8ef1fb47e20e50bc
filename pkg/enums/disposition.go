package enums

import "fmt"

// DispositionType is the sales category a property's knock outcomes are
// tracked under. Each property carries an independent event history per
// category.
type DispositionType string

const (
	DispositionInsuranceRestoration DispositionType = "Insurance Restoration"
	DispositionSolarReplacement     DispositionType = "Solar Replacement"
	DispositionCommunitySolar       DispositionType = "Community Solar"
)

var validDispositionTypes = []DispositionType{
	DispositionInsuranceRestoration,
	DispositionSolarReplacement,
	DispositionCommunitySolar,
}

// valueSetByDisposition maps each category to the picklist that holds its
// knock-status options.
var valueSetByDisposition = map[DispositionType]string{
	DispositionInsuranceRestoration: "Storm_Inspection_Knock_Status",
	DispositionSolarReplacement:     "Solar_Knock_Status",
	DispositionCommunitySolar:       "Community_Solar_Knock_Status",
}

// IsValid reports whether the value is a known disposition type.
func (d DispositionType) IsValid() bool {
	for _, candidate := range validDispositionTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ValueSetName returns the reference value set carrying the category's
// status options.
func (d DispositionType) ValueSetName() string {
	return valueSetByDisposition[d]
}

// DispositionTypes returns all known categories in a stable order.
func DispositionTypes() []DispositionType {
	out := make([]DispositionType, len(validDispositionTypes))
	copy(out, validDispositionTypes)
	return out
}

// ParseDispositionType converts raw input into DispositionType.
func ParseDispositionType(value string) (DispositionType, error) {
	for _, candidate := range validDispositionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid disposition type %q", value)
}
