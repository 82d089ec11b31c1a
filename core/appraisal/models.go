package appraisal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tathmini/core"
)

// Status is the appraisal lifecycle state. Transitions are monotonic
// forward, except the HOD-reject path which resets to DRAFT.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusSubmitted         Status = "SUBMITTED"
	StatusHODReviewed       Status = "HOD_REVIEWED"
	StatusIQACReviewed      Status = "IQAC_REVIEWED"
	StatusPrincipalReviewed Status = "PRINCIPAL_REVIEWED" // terminal/locked
)

func (s Status) Terminal() bool { return s == StatusPrincipalReviewed }

var AllStatuses = []Status{StatusDraft, StatusSubmitted, StatusHODReviewed, StatusIQACReviewed, StatusPrincipalReviewed}

// Appraisal is one teacher's self-assessment + review record for one cycle.
type Appraisal struct {
	ID        int    `json:"id"`
	RefNo     string `json:"ref_no"`
	TeacherID int    `json:"teacher_id"`
	CycleID   int    `json:"cycle_id"`
	Status    Status `json:"status"`

	// self-assessment totals; only as fresh as the last recalculation
	PartBTotal  float64 `json:"part_b_total"`
	PartCTotal  float64 `json:"part_c_total"`
	PartDTotal  float64 `json:"part_d_total"`
	GrandTotal  float64 `json:"grand_total"`
	TotalsStale bool    `json:"totals_stale"`

	// score snapshots per stage
	SelfScore  float64 `json:"self_score"`
	HODScore   float64 `json:"hod_score"`
	IQACScore  float64 `json:"iqac_score"`
	FinalScore float64 `json:"final_score"`

	// rejection metadata; set on HOD reject, cleared on resubmission
	RejectionReason string    `json:"rejection_reason,omitempty"`
	RejectedBy      string    `json:"rejected_by,omitempty"`
	RejectedAt      time.Time `json:"rejected_at,omitempty"`

	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
	SubmittedAt         time.Time `json:"submitted_at,omitempty"`
	HODApprovedAt       time.Time `json:"hod_approved_at,omitempty"`
	IQACApprovedAt      time.Time `json:"iqac_approved_at,omitempty"`
	PrincipalApprovedAt time.Time `json:"principal_approved_at,omitempty"`
	LockedAt            time.Time `json:"locked_at,omitempty"`
}

// Editable reports whether the teacher may still change section data.
func (a *Appraisal) Editable() bool { return a.Status == StatusDraft }

// Cycle is a time-boxed appraisal period (e.g. one academic year).
type Cycle struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	AcademicYear string    `json:"academic_year"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	IsOpen       bool      `json:"is_open"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewCycle contains information needed to open a new appraisal Cycle.
type NewCycle struct {
	Name         string    `json:"name" validate:"required"`
	AcademicYear string    `json:"academic_year" validate:"required"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (nc *NewCycle) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	return validate.Struct(nc)
}

// SectionKey identifies one savable section/category of the form.
type SectionKey string

const (
	SecBasicInfo                SectionKey = "partA.basic"
	SecQualifications           SectionKey = "partA.qualifications"
	SecExperience               SectionKey = "partA.experience"
	SecResearchJournals         SectionKey = "partB.researchJournals"
	SecBookChapters             SectionKey = "partB.bookChapters"
	SecConferencePapers         SectionKey = "partB.conferencePapers"
	SecPatents                  SectionKey = "partB.patents"
	SecResearchProjects         SectionKey = "partB.researchProjects"
	SecResearchGuidance         SectionKey = "partB.researchGuidance"
	SecFDPAttended              SectionKey = "partB.fdpAttended"
	SecEventsOrganized          SectionKey = "partB.eventsOrganized"
	SecMOOCsDeveloped           SectionKey = "partB.moocsDeveloped"
	SecKeyContribution          SectionKey = "partC.keyContribution"
	SecCommitteeRoles           SectionKey = "partC.committeeRoles"
	SecProfessionalBodies       SectionKey = "partC.professionalBodies"
	SecStudentFeedback          SectionKey = "partC.studentFeedback"
	SecInstitutionalDevelopment SectionKey = "partC.institutionalDevelopment"
	SecCommunityService         SectionKey = "partC.communityService"
	SecValues                   SectionKey = "partD.values"
	SecSelfDevelopment          SectionKey = "partE.selfDevelopment"
)

// SectionData is one section's payload: either a list of itemized entries
// or a single record, depending on the section.
type SectionData interface {
	Key() SectionKey
	Validate(validate *validator.Validate) error
}

// EntryBase is the common envelope carried by every itemized entry:
// identity, the self-declared mark and an opaque supporting-document reference.
type EntryBase struct {
	ID        int     `json:"id"`
	SelfMarks float64 `json:"self_marks" validate:"gte=0,halfstep"`
	Document  string  `json:"document"`
}

// Part A - biographical, non-scored

type BasicInfo struct {
	FullName    string `json:"full_name" validate:"required"`
	Designation string `json:"designation" validate:"required"`
	Department  string `json:"department" validate:"required"`
	DateJoined  string `json:"date_joined"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
}

type QualificationEntry struct {
	ID          int    `json:"id"`
	Degree      string `json:"degree" validate:"required"`
	Institution string `json:"institution" validate:"required"`
	Year        int    `json:"year" validate:"gte=0"`
	Document    string `json:"document"`
}

type Qualifications []QualificationEntry

type ExperienceEntry struct {
	ID          int    `json:"id"`
	Institution string `json:"institution" validate:"required"`
	Designation string `json:"designation" validate:"required"`
	From        string `json:"from"`
	To          string `json:"to"`
	Document    string `json:"document"`
}

type ExperienceRecords []ExperienceEntry

// Part B - research & academic contributions

type ResearchJournalEntry struct {
	EntryBase
	Title    string `json:"title" validate:"required"`
	Journal  string `json:"journal" validate:"required"`
	ISSN     string `json:"issn"`
	Indexing string `json:"indexing"` // e.g. Scopus, SCI, UGC-CARE
	Year     int    `json:"year" validate:"gte=0"`
}

type ResearchJournals []ResearchJournalEntry

type BookChapterEntry struct {
	EntryBase
	Title     string `json:"title" validate:"required"`
	Publisher string `json:"publisher" validate:"required"`
	ISBN      string `json:"isbn"`
	Year      int    `json:"year" validate:"gte=0"`
}

type BookChapters []BookChapterEntry

type ConferencePaperEntry struct {
	EntryBase
	Title      string `json:"title" validate:"required"`
	Conference string `json:"conference" validate:"required"`
	Level      string `json:"level"` // national / international
	Year       int    `json:"year" validate:"gte=0"`
}

type ConferencePapers []ConferencePaperEntry

type PatentEntry struct {
	EntryBase
	Title    string `json:"title" validate:"required"`
	PatentNo string `json:"patent_no"`
	Status   string `json:"status"` // filed / published / granted
	Year     int    `json:"year" validate:"gte=0"`
}

type Patents []PatentEntry

type ResearchProjectEntry struct {
	EntryBase
	Title  string  `json:"title" validate:"required"`
	Agency string  `json:"agency"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Status string  `json:"status"` // ongoing / completed
	PIRole string  `json:"pi_role"`
}

type ResearchProjects []ResearchProjectEntry

type ResearchGuidanceEntry struct {
	EntryBase
	Scholar    string `json:"scholar" validate:"required"`
	Degree     string `json:"degree"` // M.Phil / Ph.D
	University string `json:"university"`
	Status     string `json:"status"` // registered / submitted / awarded
}

type ResearchGuidance []ResearchGuidanceEntry

type FDPEntry struct {
	EntryBase
	Title        string `json:"title" validate:"required"`
	Organizer    string `json:"organizer"`
	DurationDays int    `json:"duration_days" validate:"gte=0"`
}

type FDPAttended []FDPEntry

type EventOrganizedEntry struct {
	EntryBase
	Title string `json:"title" validate:"required"`
	Role  string `json:"role"` // convener / coordinator / member
	Level string `json:"level"`
	Date  string `json:"date"`
}

type EventsOrganized []EventOrganizedEntry

type MOOCEntry struct {
	EntryBase
	Title    string `json:"title" validate:"required"`
	Platform string `json:"platform"` // SWAYAM / NPTEL / ...
	Weeks    int    `json:"weeks" validate:"gte=0"`
}

type MOOCsDeveloped []MOOCEntry

// Part C - administrative & institutional contributions

type KeyContribution struct {
	EntryBase
	Description string `json:"description" validate:"required"`
}

type CommitteeRoleEntry struct {
	EntryBase
	Committee string `json:"committee" validate:"required"`
	Role      string `json:"role"`
	Period    string `json:"period"`
}

type CommitteeRoles []CommitteeRoleEntry

type ProfessionalBodyEntry struct {
	EntryBase
	Body           string `json:"body" validate:"required"`
	MembershipType string `json:"membership_type"`
}

type ProfessionalBodies []ProfessionalBodyEntry

type StudentFeedback struct {
	EntryBase
	FeedbackPercent float64 `json:"feedback_percent" validate:"gte=0,lte=100"`
}

type InstitutionalDevelopmentEntry struct {
	EntryBase
	Activity string `json:"activity" validate:"required"`
	Role     string `json:"role"`
}

type InstitutionalDevelopmentActivities []InstitutionalDevelopmentEntry

type CommunityServiceEntry struct {
	EntryBase
	Activity    string `json:"activity" validate:"required"`
	Beneficiary string `json:"beneficiary"`
}

type CommunityServiceActivities []CommunityServiceEntry

// Part D - values

type ValuesAssessment struct {
	EntryBase
	Punctuality    float64 `json:"punctuality" validate:"gte=0,halfstep"`
	Integrity      float64 `json:"integrity" validate:"gte=0,halfstep"`
	Teamwork       float64 `json:"teamwork" validate:"gte=0,halfstep"`
	Mentoring      float64 `json:"mentoring" validate:"gte=0,halfstep"`
	Accountability float64 `json:"accountability" validate:"gte=0,halfstep"`
}

// Part E - self development, non-scored

type SelfDevelopment struct {
	Goals        string `json:"goals" validate:"required"`
	Achievements string `json:"achievements"`
	SupportNeeds string `json:"support_needs"`
}

// Key/Validate implementations

func (BasicInfo) Key() SectionKey                          { return SecBasicInfo }
func (Qualifications) Key() SectionKey                     { return SecQualifications }
func (ExperienceRecords) Key() SectionKey                  { return SecExperience }
func (ResearchJournals) Key() SectionKey                   { return SecResearchJournals }
func (BookChapters) Key() SectionKey                       { return SecBookChapters }
func (ConferencePapers) Key() SectionKey                   { return SecConferencePapers }
func (Patents) Key() SectionKey                            { return SecPatents }
func (ResearchProjects) Key() SectionKey                   { return SecResearchProjects }
func (ResearchGuidance) Key() SectionKey                   { return SecResearchGuidance }
func (FDPAttended) Key() SectionKey                        { return SecFDPAttended }
func (EventsOrganized) Key() SectionKey                    { return SecEventsOrganized }
func (MOOCsDeveloped) Key() SectionKey                     { return SecMOOCsDeveloped }
func (KeyContribution) Key() SectionKey                    { return SecKeyContribution }
func (CommitteeRoles) Key() SectionKey                     { return SecCommitteeRoles }
func (ProfessionalBodies) Key() SectionKey                 { return SecProfessionalBodies }
func (StudentFeedback) Key() SectionKey                    { return SecStudentFeedback }
func (InstitutionalDevelopmentActivities) Key() SectionKey { return SecInstitutionalDevelopment }
func (CommunityServiceActivities) Key() SectionKey         { return SecCommunityService }
func (ValuesAssessment) Key() SectionKey                   { return SecValues }
func (SelfDevelopment) Key() SectionKey                    { return SecSelfDevelopment }

func (s BasicInfo) Validate(v *validator.Validate) error        { return v.Struct(s) }
func (s KeyContribution) Validate(v *validator.Validate) error  { return v.Struct(s) }
func (s StudentFeedback) Validate(v *validator.Validate) error  { return v.Struct(s) }
func (s ValuesAssessment) Validate(v *validator.Validate) error { return v.Struct(s) }
func (s SelfDevelopment) Validate(v *validator.Validate) error  { return v.Struct(s) }

func validateEach(v *validator.Validate, n int, get func(i int) interface{}) error {
	for i := 0; i < n; i++ {
		if err := v.Struct(get(i)); err != nil {
			return err
		}
	}
	return nil
}

func (s Qualifications) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s ExperienceRecords) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s ResearchJournals) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s BookChapters) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s ConferencePapers) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s Patents) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s ResearchProjects) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s ResearchGuidance) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s FDPAttended) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s EventsOrganized) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s MOOCsDeveloped) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s CommitteeRoles) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s ProfessionalBodies) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s InstitutionalDevelopmentActivities) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}
func (s CommunityServiceActivities) Validate(v *validator.Validate) error {
	return validateEach(v, len(s), func(i int) interface{} { return s[i] })
}

// Marks implementations feed the scoring engine.

func entryMarks(n int, get func(i int) float64) []float64 {
	marks := make([]float64, n)
	for i := 0; i < n; i++ {
		marks[i] = get(i)
	}
	return marks
}

func (s ResearchJournals) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s BookChapters) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s ConferencePapers) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s Patents) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s ResearchProjects) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s ResearchGuidance) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s FDPAttended) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s EventsOrganized) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s MOOCsDeveloped) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s CommitteeRoles) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s ProfessionalBodies) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s InstitutionalDevelopmentActivities) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}
func (s CommunityServiceActivities) Marks() []float64 {
	return entryMarks(len(s), func(i int) float64 { return s[i].SelfMarks })
}

// Sections aggregates all current section data for one appraisal.
// Absent sections are nil and contribute zero to totals.
type Sections struct {
	Basic          *BasicInfo        `json:"basic,omitempty"`
	Qualifications Qualifications    `json:"qualifications,omitempty"`
	Experience     ExperienceRecords `json:"experience,omitempty"`

	ResearchJournals ResearchJournals `json:"research_journals,omitempty"`
	BookChapters     BookChapters     `json:"book_chapters,omitempty"`
	ConferencePapers ConferencePapers `json:"conference_papers,omitempty"`
	Patents          Patents          `json:"patents,omitempty"`
	ResearchProjects ResearchProjects `json:"research_projects,omitempty"`
	ResearchGuidance ResearchGuidance `json:"research_guidance,omitempty"`
	FDPAttended      FDPAttended      `json:"fdp_attended,omitempty"`
	EventsOrganized  EventsOrganized  `json:"events_organized,omitempty"`
	MOOCsDeveloped   MOOCsDeveloped   `json:"moocs_developed,omitempty"`

	KeyContribution          *KeyContribution                   `json:"key_contribution,omitempty"`
	CommitteeRoles           CommitteeRoles                     `json:"committee_roles,omitempty"`
	ProfessionalBodies       ProfessionalBodies                 `json:"professional_bodies,omitempty"`
	StudentFeedback          *StudentFeedback                   `json:"student_feedback,omitempty"`
	InstitutionalDevelopment InstitutionalDevelopmentActivities `json:"institutional_development,omitempty"`
	CommunityService         CommunityServiceActivities         `json:"community_service,omitempty"`

	Values *ValuesAssessment `json:"values,omitempty"`

	SelfDevelopment *SelfDevelopment `json:"self_development,omitempty"`
}

// Apply replaces the section identified by data.Key() wholesale.
func (s *Sections) Apply(data SectionData) {
	switch d := data.(type) {
	case BasicInfo:
		s.Basic = &d
	case Qualifications:
		s.Qualifications = d
	case ExperienceRecords:
		s.Experience = d
	case ResearchJournals:
		s.ResearchJournals = d
	case BookChapters:
		s.BookChapters = d
	case ConferencePapers:
		s.ConferencePapers = d
	case Patents:
		s.Patents = d
	case ResearchProjects:
		s.ResearchProjects = d
	case ResearchGuidance:
		s.ResearchGuidance = d
	case FDPAttended:
		s.FDPAttended = d
	case EventsOrganized:
		s.EventsOrganized = d
	case MOOCsDeveloped:
		s.MOOCsDeveloped = d
	case KeyContribution:
		s.KeyContribution = &d
	case CommitteeRoles:
		s.CommitteeRoles = d
	case ProfessionalBodies:
		s.ProfessionalBodies = d
	case StudentFeedback:
		s.StudentFeedback = &d
	case InstitutionalDevelopmentActivities:
		s.InstitutionalDevelopment = d
	case CommunityServiceActivities:
		s.CommunityService = d
	case ValuesAssessment:
		s.Values = &d
	case SelfDevelopment:
		s.SelfDevelopment = &d
	}
}

// Reviews

// ReviewerRole is the review stage an actor reviews at.
type ReviewerRole string

const (
	ReviewerHOD       ReviewerRole = "HOD"
	ReviewerIQAC      ReviewerRole = "IQAC"
	ReviewerPrincipal ReviewerRole = "PRINCIPAL"
)

type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// ReviewScores holds per-category reviewer-entered scores, keyed by the
// Category Cap keys. Entries are clamped to their caps before summation.
type ReviewScores struct {
	PartB map[CategoryKey]float64 `json:"partB"`
	PartC map[CategoryKey]float64 `json:"partC"`
	PartD map[CategoryKey]float64 `json:"partD"`
}

// ReviewInput is the payload a reviewer submits for one review stage.
type ReviewInput struct {
	Scores   ReviewScores `json:"scores"`
	Comments string       `json:"comments"`
	Decision Decision     `json:"decision"`
}

// Validate checks the decision, that all score keys are known categories of
// the right Part, and that marks are non-negative half-steps.
// allowReject is false for stages with no modeled rejection path.
func (ri *ReviewInput) Validate(validate *validator.Validate, allowReject bool) error {
	ri.Comments = core.CleanString(ri.Comments)

	switch ri.Decision {
	case DecisionApproved:
	case DecisionRejected:
		if !allowReject {
			return core.NewValidationError(nil, core.FieldError{Field: "decision", Error: "rejection is not available at this review stage"})
		}
		if ri.Comments == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "comments", Error: "a rejection reason is required"})
		}
		return nil
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "decision", Error: "decision must be APPROVED or REJECTED"})
	}

	parts := []struct {
		part   Part
		scores map[CategoryKey]float64
	}{
		{PartB, ri.Scores.PartB},
		{PartC, ri.Scores.PartC},
		{PartD, ri.Scores.PartD},
	}
	for _, p := range parts {
		for key, marks := range p.scores {
			cap, ok := CapFor(key)
			if !ok || cap.Part != p.part {
				return core.NewValidationError(nil, core.FieldError{
					Field: string(key), Error: fmt.Sprintf("unknown part %s category", p.part),
				})
			}
			if marks < 0 {
				return core.NewValidationError(nil, core.FieldError{Field: string(key), Error: "marks cannot be negative"})
			}
			if m := marks * 2; m != float64(int64(m)) {
				return core.NewValidationError(nil, core.FieldError{Field: string(key), Error: "marks must be awarded in steps of 0.5"})
			}
		}
	}
	return nil
}

// ReviewRecord is one reviewer role's stored review of an appraisal;
// overwritten (not accumulated) on resubmission after rejection.
type ReviewRecord struct {
	ID            int          `json:"id"`
	AppraisalID   int          `json:"appraisal_id"`
	Role          ReviewerRole `json:"role"`
	ReviewerID    int          `json:"reviewer_id"`
	Scores        ReviewScores `json:"scores"`
	Comments      string       `json:"comments"`
	Decision      Decision     `json:"decision"`
	ReviewedScore float64      `json:"reviewed_score"`
	ReviewedAt    time.Time    `json:"reviewed_at"`
}

// Audit

type AuditAction string

const (
	AuditCreated           AuditAction = "CREATED"
	AuditSectionSaved      AuditAction = "SECTION_SAVED"
	AuditRecalculated      AuditAction = "RECALCULATED"
	AuditSubmitted         AuditAction = "SUBMITTED"
	AuditHODReviewed       AuditAction = "HOD_REVIEWED"
	AuditHODRejected       AuditAction = "HOD_REJECTED"
	AuditIQACReviewed      AuditAction = "IQAC_REVIEWED"
	AuditPrincipalReviewed AuditAction = "PRINCIPAL_REVIEWED"
)

// AuditEntry is an append-only trace record; never mutated or deleted.
type AuditEntry struct {
	ID          int         `json:"id"`
	AppraisalID int         `json:"appraisal_id"`
	Action      AuditAction `json:"action"`
	ActorID     int         `json:"actor_id"`
	Payload     string      `json:"payload,omitempty"` // JSON
	Timestamp   time.Time   `json:"timestamp"`
}

// QueryFilter narrows appraisal listings; fields AND together.
type QueryFilter struct {
	CycleID    int
	Status     Status
	TeacherIDs []int // resolved from a department by the service
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.CycleID == 0 && qf.Status == "" && qf.TeacherIDs == nil
}
