package sla

import "fmt"

// Severity orders action items for triage. The zero-value string is invalid.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityMajor:    1,
	SeverityMinor:    2,
	SeverityInfo:     3,
}

func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo}
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the triage order, critical first.
func (s Severity) Rank() int {
	return severityRank[s]
}

func ParseSeverity(raw string) (Severity, error) {
	s := Severity(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", raw)
	}
	return s, nil
}

// Category groups action items by the operational area they belong to.
type Category string

const (
	CategoryRegulatory      Category = "regulatory"
	CategoryConsentICF      Category = "consent_icf"
	CategoryDataEntry       Category = "data_entry"
	CategoryQueries         Category = "queries"
	CategorySafetyReporting Category = "safety_reporting"
	CategorySamples         Category = "samples"
	CategoryImaging         Category = "imaging"
	CategoryPharmacyIP      Category = "pharmacy_ip"
	CategoryTraining        Category = "training"
	CategoryContractsBudget Category = "contracts_budget"
	CategoryOther           Category = "other"
)

var validCategories = map[Category]bool{
	CategoryRegulatory:      true,
	CategoryConsentICF:      true,
	CategoryDataEntry:       true,
	CategoryQueries:         true,
	CategorySafetyReporting: true,
	CategorySamples:         true,
	CategoryImaging:         true,
	CategoryPharmacyIP:      true,
	CategoryTraining:        true,
	CategoryContractsBudget: true,
	CategoryOther:           true,
}

func Categories() []Category {
	return []Category{
		CategoryRegulatory,
		CategoryConsentICF,
		CategoryDataEntry,
		CategoryQueries,
		CategorySafetyReporting,
		CategorySamples,
		CategoryImaging,
		CategoryPharmacyIP,
		CategoryTraining,
		CategoryContractsBudget,
		CategoryOther,
	}
}

func (c Category) Valid() bool {
	return validCategories[c]
}

func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// Role identifies who a missed escalation checkpoint is routed to.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleOpsManager       Role = "ops_manager"
	RoleSCLead           Role = "sc_lead"
	RoleStudyCoordinator Role = "study_coordinator"
	RoleDataManager      Role = "data_manager"
	RoleQuality          Role = "quality"
	RoleFinance          Role = "finance"
)

var validRoles = map[Role]bool{
	RoleAdmin:            true,
	RoleOpsManager:       true,
	RoleSCLead:           true,
	RoleStudyCoordinator: true,
	RoleDataManager:      true,
	RoleQuality:          true,
	RoleFinance:          true,
}

func (r Role) Valid() bool {
	return validRoles[r]
}

func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return r, nil
}
