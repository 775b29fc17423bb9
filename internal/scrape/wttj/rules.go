package wttj

import (
	"fmt"

	"offerwatch/internal/offer"
)

// DefaultBaseURL is the site origin used when none is configured.
const DefaultBaseURL = "https://www.welcometothejungle.com"

// FieldRule locates one optional field: find the marker, climb Ascend
// ancestors, read the text there. A page layout change should only ever
// touch this table.
type FieldRule struct {
	Field  string
	Marker string
	Ascend int
	Set    func(f *offer.Fields, v string)
}

func iconMarker(name string) string {
	return fmt.Sprintf(`i[name=%q]`, name)
}

var IconRules = []FieldRule{
	{"contract_type", iconMarker("contract"), 2, func(f *offer.Fields, v string) { f.ContractType = v }},
	{"location", iconMarker("location"), 2, func(f *offer.Fields, v string) { f.Location = v }},
	{"salary", iconMarker("salary"), 2, func(f *offer.Fields, v string) { f.Salary = v }},
	{"start_date", iconMarker("clock"), 2, func(f *offer.Fields, v string) { f.StartDate = v }},
	{"remote_policy", iconMarker("remote"), 2, func(f *offer.Fields, v string) { f.RemotePolicy = v }},
	{"education_level", iconMarker("education_level"), 2, func(f *offer.Fields, v string) { f.EducationLevel = v }},
	{"experience", iconMarker("suitcase"), 2, func(f *offer.Fields, v string) { f.Experience = v }},
	{"sector", iconMarker("tag"), 2, func(f *offer.Fields, v string) { f.Sector = v }},
	{"employee_count", iconMarker("department"), 2, func(f *offer.Fields, v string) { f.EmployeeCount = v }},
}

// SectionRule reads a narrative block, flattened to one line.
type SectionRule struct {
	Field    string
	Selector string
	Set      func(f *offer.Fields, v string)
}

var SectionRules = []SectionRule{
	{"company_description", CompanySectionSelector, func(f *offer.Fields, v string) { f.CompanyDescription = v }},
	{"description", DescriptionSectionSelector, func(f *offer.Fields, v string) { f.Description = v }},
}

// Fixed structural identifiers.
const (
	TitleSelector       = "h1"
	CompanyNameSelector = `h3[data-testid="job-header-organization-title"]`
	CompanyLinkSelector = `a[data-testid="job-header-organization-link-logo"]`

	CompanySectionSelector     = "section#the-company-section"
	DescriptionSectionSelector = "section#about-section"
	ProfileSectionSelector     = "section#profile-section"

	// Search results: one offer per list item.
	ResultItemSelector = `ol[data-testid="search-results"] > li`
	ResultLinkSelector = "a[href]"
)
