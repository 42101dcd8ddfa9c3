// Package glossary resolves series-scoped terminology: candidate detection in
// source text, LLM-backed term suggestion, and the honorific preservation
// policy.
package glossary

// EntityType classifies what a glossary term refers to. Honorific variants
// extend the base set so preserved relational terms stay distinguishable from
// ordinary vocabulary.
type EntityType string

const (
	EntityPerson       EntityType = "Person"
	EntityPlace        EntityType = "Place"
	EntityTechnique    EntityType = "Technique"
	EntityOrganization EntityType = "Organization"
	EntityItem         EntityType = "Item"
	EntityTerm         EntityType = "Term"

	EntityHonorificKorean   EntityType = "Honorific - Korean"
	EntityHonorificChinese  EntityType = "Honorific - Chinese"
	EntityHonorificJapanese EntityType = "Honorific - Japanese"
	EntityFormalTitle       EntityType = "Formal Title"
	EntityFamilyRelation    EntityType = "Family Relation"
)

// Gender is best-effort character metadata inferred at suggestion time.
type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderUnknown Gender = "Unknown"
)

// Role describes a character's narrative function within the series.
type Role string

const (
	RoleProtagonist Role = "Protagonist"
	RoleAntagonist  Role = "Antagonist"
	RoleSupporting  Role = "Supporting"
	RoleMinor       Role = "Minor"
	RoleMentor      Role = "Mentor"
	RoleFamily      Role = "Family"
	RoleOther       Role = "Other"
)

// Status tracks a term's lifecycle from proposal through human review.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Term maps a source-language term to its approved translation plus
// character metadata. SourceTerm is unique per series.
type Term struct {
	SourceTerm     string     `json:"sourceTerm"`
	TranslatedTerm string     `json:"translatedTerm"`
	EntityType     EntityType `json:"entityType"`
	Gender         Gender     `json:"gender,omitempty"`
	Role           Role       `json:"role,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	AutoSuggested  bool       `json:"autoSuggested"`
	Status         Status     `json:"status"`
}

// IsHonorific reports whether the term carries one of the preserved
// honorific or relational entity types.
func (t Term) IsHonorific() bool {
	switch t.EntityType {
	case EntityHonorificKorean, EntityHonorificChinese, EntityHonorificJapanese,
		EntityFormalTitle, EntityFamilyRelation:
		return true
	}
	return false
}
