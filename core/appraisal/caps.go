package appraisal

// Part is a top-level scored division of the appraisal.
// A and E are narrative/biographical sections and carry no marks.
type Part string

const (
	PartA Part = "A"
	PartB Part = "B"
	PartC Part = "C"
	PartD Part = "D"
	PartE Part = "E"
)

// CategoryKey identifies a scored subsection within a Part.
type CategoryKey string

const (
	// Part B - research & academic contributions
	CatResearchJournals CategoryKey = "researchJournals"
	CatBookChapters     CategoryKey = "bookChapters"
	CatConferencePapers CategoryKey = "conferencePapers"
	CatPatents          CategoryKey = "patents"
	CatResearchProjects CategoryKey = "researchProjects"
	CatResearchGuidance CategoryKey = "researchGuidance"
	CatFDPAttended      CategoryKey = "fdpAttended"
	CatEventsOrganized  CategoryKey = "eventsOrganized"
	CatMOOCsDeveloped   CategoryKey = "moocsDeveloped"

	// Part C - administrative & institutional contributions
	CatKeyContribution          CategoryKey = "keyContribution"
	CatCommitteeRoles           CategoryKey = "committeeRoles"
	CatProfessionalBodies       CategoryKey = "professionalBodies"
	CatStudentFeedback          CategoryKey = "studentFeedback"
	CatInstitutionalDevelopment CategoryKey = "institutionalDevelopment"
	CatCommunityService         CategoryKey = "communityService"

	// Part D - values
	CatValues CategoryKey = "values"
)

// Part-level maxima. A category score can never push a Part past these,
// even when every category is under its own cap.
const (
	PartBMax = 120.0
	PartCMax = 100.0
	PartDMax = 30.0
	GrandMax = PartBMax + PartCMax + PartDMax // 250
)

// CategoryCap is the maximum marks awardable for a category.
// This table is the single source of truth for clamping; it is served to
// clients so the self-assessment form and the review screens agree.
type CategoryCap struct {
	Key  CategoryKey `json:"key"`
	Part Part        `json:"part"`
	Max  float64     `json:"max"`
}

// The Part B and Part C category caps deliberately sum above their Part
// maxima (130 and 110), so the Part-level clamp binds the aggregate even
// when every category is within its own cap.
var Caps = []CategoryCap{
	{CatResearchJournals, PartB, 15},
	{CatBookChapters, PartB, 15},
	{CatConferencePapers, PartB, 10},
	{CatPatents, PartB, 10},
	{CatResearchProjects, PartB, 25},
	{CatResearchGuidance, PartB, 15},
	{CatFDPAttended, PartB, 15},
	{CatEventsOrganized, PartB, 15},
	{CatMOOCsDeveloped, PartB, 10},

	{CatKeyContribution, PartC, 20},
	{CatCommitteeRoles, PartC, 15},
	{CatProfessionalBodies, PartC, 10},
	{CatStudentFeedback, PartC, 25},
	{CatInstitutionalDevelopment, PartC, 20},
	{CatCommunityService, PartC, 20},

	{CatValues, PartD, 30},
}

var capsByKey = getCapsByKey()

func getCapsByKey() map[CategoryKey]CategoryCap {
	caps := make(map[CategoryKey]CategoryCap, len(Caps))
	for _, cap := range Caps {
		caps[cap.Key] = cap
	}
	return caps
}

// CapFor returns the cap for a category; ok is false for unknown categories.
func CapFor(key CategoryKey) (CategoryCap, bool) {
	cap, ok := capsByKey[key]
	return cap, ok
}

// PartMax returns the Part-level maximum for a scored Part (0 for A/E).
func PartMax(part Part) float64 {
	switch part {
	case PartB:
		return PartBMax
	case PartC:
		return PartCMax
	case PartD:
		return PartDMax
	}
	return 0
}
