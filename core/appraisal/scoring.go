package appraisal

import "github.com/trezcool/tathmini/core"

type (
	// CategoryScore is one category's raw (uncapped) sum and capped score.
	CategoryScore struct {
		Key   CategoryKey `json:"key"`
		Raw   float64     `json:"raw"`
		Score float64     `json:"score"`
	}

	// PartScore is one Part's per-category scores and capped total.
	PartScore struct {
		Categories []CategoryScore `json:"categories"`
		Total      float64         `json:"total"`
	}

	// Calculation is the full scoring result for one appraisal.
	Calculation struct {
		PartB      PartScore `json:"part_b"`
		PartC      PartScore `json:"part_c"`
		PartD      PartScore `json:"part_d"`
		GrandTotal float64   `json:"grand_total"`
	}
)

// Calculate computes capped per-category and per-Part scores plus the grand
// total from the given section data. It is pure and total: same input always
// yields the same Calculation, absent sections contribute zero, and no input
// magnitude can push a score past its category or Part ceiling.
func Calculate(s Sections) Calculation {
	partB := scorePart(PartBMax, partBInputs(s))
	partC := scorePart(PartCMax, partCInputs(s))
	partD := scorePart(PartDMax, partDInputs(s))
	return Calculation{
		PartB:      partB,
		PartC:      partC,
		PartD:      partD,
		GrandTotal: core.Round2(partB.Total + partC.Total + partD.Total),
	}
}

type categoryInput struct {
	key   CategoryKey
	marks []float64
}

// scorePart clamps each category's raw sum to its cap, then clamps the sum
// of category scores to the Part maximum. Double-capping is intentional:
// a category ceiling cannot be compensated by over-reporting elsewhere, and
// the Part ceiling still bounds the aggregate.
func scorePart(max float64, inputs []categoryInput) PartScore {
	scores := make([]CategoryScore, 0, len(inputs))
	var total float64
	for _, in := range inputs {
		var raw float64
		for _, m := range in.marks {
			raw += m
		}
		score := raw
		if cap, ok := CapFor(in.key); ok && score > cap.Max {
			score = cap.Max
		}
		raw = core.Round2(raw)
		score = core.Round2(score)
		scores = append(scores, CategoryScore{Key: in.key, Raw: raw, Score: score})
		total += score
	}
	if total > max {
		total = max
	}
	return PartScore{Categories: scores, Total: core.Round2(total)}
}

func partBInputs(s Sections) []categoryInput {
	return []categoryInput{
		{CatResearchJournals, s.ResearchJournals.Marks()},
		{CatBookChapters, s.BookChapters.Marks()},
		{CatConferencePapers, s.ConferencePapers.Marks()},
		{CatPatents, s.Patents.Marks()},
		{CatResearchProjects, s.ResearchProjects.Marks()},
		{CatResearchGuidance, s.ResearchGuidance.Marks()},
		{CatFDPAttended, s.FDPAttended.Marks()},
		{CatEventsOrganized, s.EventsOrganized.Marks()},
		{CatMOOCsDeveloped, s.MOOCsDeveloped.Marks()},
	}
}

func partCInputs(s Sections) []categoryInput {
	var keyContrib, feedback []float64
	if s.KeyContribution != nil {
		keyContrib = []float64{s.KeyContribution.SelfMarks}
	}
	if s.StudentFeedback != nil {
		feedback = []float64{s.StudentFeedback.SelfMarks}
	}
	return []categoryInput{
		{CatKeyContribution, keyContrib},
		{CatCommitteeRoles, s.CommitteeRoles.Marks()},
		{CatProfessionalBodies, s.ProfessionalBodies.Marks()},
		{CatStudentFeedback, feedback},
		{CatInstitutionalDevelopment, s.InstitutionalDevelopment.Marks()},
		{CatCommunityService, s.CommunityService.Marks()},
	}
}

func partDInputs(s Sections) []categoryInput {
	var values []float64
	if s.Values != nil {
		values = []float64{s.Values.SelfMarks}
	}
	return []categoryInput{
		{CatValues, values},
	}
}
