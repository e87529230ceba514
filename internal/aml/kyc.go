package aml

import "slices"

// RequiredKYCFields must be present in every customer record.
var RequiredKYCFields = []string{"full_name", "date_of_birth", "address", "id_number", "id_type"}

// HighRiskJurisdictions trigger enhanced due diligence for customers.
var HighRiskJurisdictions = []string{"KP", "IR", "SY", "CU", "SD"}

// KYCResult is the outcome of a customer record check.
type KYCResult struct {
	Valid              bool     `json:"valid"`
	MissingFields      []string `json:"missing_fields"`
	Warnings           []string `json:"warnings"`
	RequiresEnhancedDD bool     `json:"requires_enhanced_dd"`
}

// ValidateCustomer checks a decoded customer record for the required fields
// and enhanced due diligence triggers. A key with a null value counts as
// present.
func ValidateCustomer(customer map[string]any) KYCResult {
	res := KYCResult{MissingFields: []string{}, Warnings: []string{}}

	for _, field := range RequiredKYCFields {
		if _, ok := customer[field]; !ok {
			res.MissingFields = append(res.MissingFields, field)
		}
	}

	if country, ok := customer["country"].(string); ok && slices.Contains(HighRiskJurisdictions, country) {
		res.Warnings = append(res.Warnings,
			"Customer from high-risk jurisdiction - Enhanced Due Diligence required")
	}
	if pep, ok := customer["politically_exposed_person"].(bool); ok && pep {
		res.Warnings = append(res.Warnings,
			"Politically Exposed Person - Enhanced Due Diligence required")
	}

	res.Valid = len(res.MissingFields) == 0
	res.RequiresEnhancedDD = len(res.Warnings) > 0
	return res
}
