package appraisal

import "testing"

func rj(marks ...float64) ResearchJournals {
	entries := make(ResearchJournals, 0, len(marks))
	for i, m := range marks {
		entries = append(entries, ResearchJournalEntry{
			EntryBase: EntryBase{ID: i + 1, SelfMarks: m},
			Title:     "Paper",
			Journal:   "Journal",
		})
	}
	return entries
}

func cr(marks ...float64) CommitteeRoles {
	entries := make(CommitteeRoles, 0, len(marks))
	for i, m := range marks {
		entries = append(entries, CommitteeRoleEntry{
			EntryBase: EntryBase{ID: i + 1, SelfMarks: m},
			Committee: "Committee",
		})
	}
	return entries
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name          string
		sections      Sections
		wantPartB     float64
		wantPartC     float64
		wantPartD     float64
		wantGrand     float64
		wantCatScores map[CategoryKey]float64
	}{
		{
			name: "empty appraisal scores zero",
		},
		{
			name:      "category raw sum is clamped to its cap",
			sections:  Sections{ResearchJournals: rj(8, 200)},
			wantPartB: 15,
			wantGrand: 15,
			wantCatScores: map[CategoryKey]float64{
				CatResearchJournals: 15,
			},
		},
		{
			name: "part C categories clamp independently",
			sections: Sections{
				KeyContribution: &KeyContribution{EntryBase: EntryBase{SelfMarks: 30}, Description: "labs"},
				CommitteeRoles:  cr(10, 15),
			},
			wantPartC: 35,
			wantGrand: 35,
			wantCatScores: map[CategoryKey]float64{
				CatKeyContribution: 20,
				CatCommitteeRoles:  15,
			},
		},
		{
			name: "part total is clamped even when categories are under their caps",
			sections: Sections{
				KeyContribution:          &KeyContribution{EntryBase: EntryBase{SelfMarks: 19}, Description: "labs"},
				CommitteeRoles:           cr(14),
				ProfessionalBodies:       ProfessionalBodies{{EntryBase: EntryBase{SelfMarks: 9.5}, Body: "ISTE"}},
				StudentFeedback:          &StudentFeedback{EntryBase: EntryBase{SelfMarks: 24.5}},
				InstitutionalDevelopment: InstitutionalDevelopmentActivities{{EntryBase: EntryBase{SelfMarks: 19.5}, Activity: "NAAC"}},
				CommunityService:         CommunityServiceActivities{{EntryBase: EntryBase{SelfMarks: 19}, Activity: "camp"}},
			},
			// every category under its cap, yet 19+14+9.5+24.5+19.5+19 = 105.5 > 100
			wantPartC: PartCMax,
			wantGrand: PartCMax,
			wantCatScores: map[CategoryKey]float64{
				CatInstitutionalDevelopment: 19.5,
				CatCommunityService:         19,
			},
		},
		{
			name: "adversarially large marks never exceed the grand maximum",
			sections: Sections{
				ResearchJournals: rj(1e9),
				BookChapters:     BookChapters{{EntryBase: EntryBase{SelfMarks: 1e9}, Title: "B", Publisher: "P"}},
				ConferencePapers: ConferencePapers{{EntryBase: EntryBase{SelfMarks: 1e9}, Title: "C", Conference: "C"}},
				Patents:          Patents{{EntryBase: EntryBase{SelfMarks: 1e9}, Title: "P"}},
				ResearchProjects: ResearchProjects{{EntryBase: EntryBase{SelfMarks: 1e9}, Title: "R"}},
				ResearchGuidance: ResearchGuidance{{EntryBase: EntryBase{SelfMarks: 1e9}, Scholar: "S"}},
				FDPAttended:      FDPAttended{{EntryBase: EntryBase{SelfMarks: 1e9}, Title: "F"}},
				EventsOrganized:  EventsOrganized{{EntryBase: EntryBase{SelfMarks: 1e9}, Title: "E"}},
				MOOCsDeveloped:   MOOCsDeveloped{{EntryBase: EntryBase{SelfMarks: 1e9}, Title: "M"}},
				KeyContribution:  &KeyContribution{EntryBase: EntryBase{SelfMarks: 1e9}, Description: "D"},
				CommitteeRoles:   cr(1e9),
				StudentFeedback:  &StudentFeedback{EntryBase: EntryBase{SelfMarks: 1e9}},
				Values:           &ValuesAssessment{EntryBase: EntryBase{SelfMarks: 1e9}},
			},
			wantPartB: PartBMax, // category caps sum to 130, clamped to 120
			wantPartC: 60,       // 20+15+25 with the remaining categories absent
			wantPartD: PartDMax,
			wantGrand: PartBMax + 60 + PartDMax,
		},
		{
			name: "half marks survive rounding",
			sections: Sections{
				ResearchJournals: rj(2.5, 3.5),
				Values:           &ValuesAssessment{EntryBase: EntryBase{SelfMarks: 12.5}},
			},
			wantPartB: 6,
			wantPartD: 12.5,
			wantGrand: 18.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := Calculate(tt.sections)
			if calc.PartB.Total != tt.wantPartB {
				t.Errorf("PartB.Total = %v; want %v", calc.PartB.Total, tt.wantPartB)
			}
			if calc.PartC.Total != tt.wantPartC {
				t.Errorf("PartC.Total = %v; want %v", calc.PartC.Total, tt.wantPartC)
			}
			if calc.PartD.Total != tt.wantPartD {
				t.Errorf("PartD.Total = %v; want %v", calc.PartD.Total, tt.wantPartD)
			}
			if calc.GrandTotal != tt.wantGrand {
				t.Errorf("GrandTotal = %v; want %v", calc.GrandTotal, tt.wantGrand)
			}
			if calc.GrandTotal > GrandMax {
				t.Errorf("GrandTotal = %v exceeds grand maximum %v", calc.GrandTotal, GrandMax)
			}
			for key, want := range tt.wantCatScores {
				if got := findCategoryScore(t, calc, key); got != want {
					t.Errorf("category %s score = %v; want %v", key, got, want)
				}
			}
		})
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	sections := Sections{
		ResearchJournals: rj(7.5, 3),
		CommitteeRoles:   cr(4, 2.5),
		Values:           &ValuesAssessment{EntryBase: EntryBase{SelfMarks: 21}},
	}
	first := Calculate(sections)
	for i := 0; i < 10; i++ {
		if got := Calculate(sections); got.GrandTotal != first.GrandTotal {
			t.Fatalf("Calculate() not deterministic: %v != %v", got.GrandTotal, first.GrandTotal)
		}
	}
}

func TestCalculateCapsInvariant(t *testing.T) {
	// every category score stays within [0, cap] for hostile inputs
	sections := Sections{
		ResearchJournals: rj(-5, 1e12, 0.5),
		CommitteeRoles:   cr(1e12),
	}
	calc := Calculate(sections)
	for _, part := range []PartScore{calc.PartB, calc.PartC, calc.PartD} {
		for _, cs := range part.Categories {
			cap, ok := CapFor(cs.Key)
			if !ok {
				t.Fatalf("unknown category %s in calculation", cs.Key)
			}
			if cs.Score > cap.Max {
				t.Errorf("category %s score %v exceeds cap %v", cs.Key, cs.Score, cap.Max)
			}
		}
	}
}

func TestCategoryCapsExceedPartMaxima(t *testing.T) {
	// Part B/C caps must sum above the Part maxima so the Part-level clamp
	// actually bounds the aggregate; Part D has a single category matching
	// its maximum.
	var sumB, sumC, sumD float64
	for _, cap := range Caps {
		switch cap.Part {
		case PartB:
			sumB += cap.Max
		case PartC:
			sumC += cap.Max
		case PartD:
			sumD += cap.Max
		}
	}
	if sumB <= PartBMax {
		t.Errorf("part B category caps sum to %v; want > %v", sumB, PartBMax)
	}
	if sumC <= PartCMax {
		t.Errorf("part C category caps sum to %v; want > %v", sumC, PartCMax)
	}
	if sumD != PartDMax {
		t.Errorf("part D category caps sum to %v; want %v", sumD, PartDMax)
	}
}

func findCategoryScore(t *testing.T, calc Calculation, key CategoryKey) float64 {
	t.Helper()
	for _, part := range []PartScore{calc.PartB, calc.PartC, calc.PartD} {
		for _, cs := range part.Categories {
			if cs.Key == key {
				return cs.Score
			}
		}
	}
	t.Fatalf("category %s not found in calculation", key)
	return 0
}
