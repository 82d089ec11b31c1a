package appraisal

import (
	"encoding/json"

	"github.com/pkg/errors"
)

var ErrUnknownSection = errors.New("unknown section key")

// DecodeSection unmarshals a stored section payload into the concrete type
// for its key.
func DecodeSection(key SectionKey, payload []byte) (SectionData, error) {
	decode := func(data SectionData) (SectionData, error) {
		if err := json.Unmarshal(payload, data); err != nil {
			return nil, errors.Wrapf(err, "decoding section %s", key)
		}
		return data, nil
	}

	switch key {
	case SecBasicInfo:
		data, err := decode(&BasicInfo{})
		return deref(data), err
	case SecQualifications:
		data, err := decode(&Qualifications{})
		return deref(data), err
	case SecExperience:
		data, err := decode(&ExperienceRecords{})
		return deref(data), err
	case SecResearchJournals:
		data, err := decode(&ResearchJournals{})
		return deref(data), err
	case SecBookChapters:
		data, err := decode(&BookChapters{})
		return deref(data), err
	case SecConferencePapers:
		data, err := decode(&ConferencePapers{})
		return deref(data), err
	case SecPatents:
		data, err := decode(&Patents{})
		return deref(data), err
	case SecResearchProjects:
		data, err := decode(&ResearchProjects{})
		return deref(data), err
	case SecResearchGuidance:
		data, err := decode(&ResearchGuidance{})
		return deref(data), err
	case SecFDPAttended:
		data, err := decode(&FDPAttended{})
		return deref(data), err
	case SecEventsOrganized:
		data, err := decode(&EventsOrganized{})
		return deref(data), err
	case SecMOOCsDeveloped:
		data, err := decode(&MOOCsDeveloped{})
		return deref(data), err
	case SecKeyContribution:
		data, err := decode(&KeyContribution{})
		return deref(data), err
	case SecCommitteeRoles:
		data, err := decode(&CommitteeRoles{})
		return deref(data), err
	case SecProfessionalBodies:
		data, err := decode(&ProfessionalBodies{})
		return deref(data), err
	case SecStudentFeedback:
		data, err := decode(&StudentFeedback{})
		return deref(data), err
	case SecInstitutionalDevelopment:
		data, err := decode(&InstitutionalDevelopmentActivities{})
		return deref(data), err
	case SecCommunityService:
		data, err := decode(&CommunityServiceActivities{})
		return deref(data), err
	case SecValues:
		data, err := decode(&ValuesAssessment{})
		return deref(data), err
	case SecSelfDevelopment:
		data, err := decode(&SelfDevelopment{})
		return deref(data), err
	}
	return nil, ErrUnknownSection
}

// deref unwraps the pointers needed for unmarshalling back into the value
// types Sections.Apply understands.
func deref(data SectionData) SectionData {
	switch d := data.(type) {
	case *BasicInfo:
		return *d
	case *Qualifications:
		return *d
	case *ExperienceRecords:
		return *d
	case *ResearchJournals:
		return *d
	case *BookChapters:
		return *d
	case *ConferencePapers:
		return *d
	case *Patents:
		return *d
	case *ResearchProjects:
		return *d
	case *ResearchGuidance:
		return *d
	case *FDPAttended:
		return *d
	case *EventsOrganized:
		return *d
	case *MOOCsDeveloped:
		return *d
	case *KeyContribution:
		return *d
	case *CommitteeRoles:
		return *d
	case *ProfessionalBodies:
		return *d
	case *StudentFeedback:
		return *d
	case *InstitutionalDevelopmentActivities:
		return *d
	case *CommunityServiceActivities:
		return *d
	case *ValuesAssessment:
		return *d
	case *SelfDevelopment:
		return *d
	}
	return data
}
