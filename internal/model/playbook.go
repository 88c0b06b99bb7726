package model

import "time"

// Playbook is the vendor-specific outreach script derived from a persona vector.
type Playbook struct {
	PersonID         string    `json:"person_id"`
	Vendor           string    `json:"vendor"`
	Opening          string    `json:"opening"`
	ValueProposition string    `json:"value_proposition"`
	CaseReference    string    `json:"case_reference"`
	CallToAction     string    `json:"call_to_action"`
	ProductFit       []string  `json:"product_fit"`
	ServicePackages  []string  `json:"service_packages"`
	RefreshedAt      time.Time `json:"refreshed_at"`
}

// PlaybookResult is returned to callers of the playbook operation.
type PlaybookResult struct {
	Playbook Playbook `json:"playbook"`
	RunID    string   `json:"run_id,omitempty"`
}
