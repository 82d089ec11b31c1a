package appraisal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("appraisal not found")
	ErrCycleNotFound = errors.New("cycle not found")
	ErrCycleExists   = errors.New("an open cycle already exists")
	ErrCycleClosed   = errors.New("the appraisal cycle is closed")
)

// InvalidTransitionError names the expected vs. actual status when an
// operation is attempted on an appraisal in the wrong state.
type InvalidTransitionError struct {
	Op       string
	Expected Status
	Actual   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s: appraisal status is %s, expected %s", e.Op, e.Actual, e.Expected)
}

func IsInvalidTransition(err error) bool {
	_, ok := errors.Cause(err).(*InvalidTransitionError)
	return ok
}

type (
	Repository interface {
		CreateAppraisal(ctx context.Context, appr Appraisal) (Appraisal, error)
		GetAppraisal(ctx context.Context, id int) (Appraisal, error)
		GetAppraisalByTeacherAndCycle(ctx context.Context, teacherID, cycleID int) (Appraisal, error)
		UpdateAppraisal(ctx context.Context, appr Appraisal) (Appraisal, error)
		FilterAppraisals(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Appraisal, error)

		GetSections(ctx context.Context, appraisalID int) (Sections, error)
		// ReplaceSection replaces the entries for one section wholesale
		// (delete-then-insert, not merge).
		ReplaceSection(ctx context.Context, appraisalID int, data SectionData) error

		// SaveReview upserts the review record for (appraisal, role).
		SaveReview(ctx context.Context, rec ReviewRecord) (ReviewRecord, error)
		GetReviews(ctx context.Context, appraisalID int) ([]ReviewRecord, error)

		AppendAudit(ctx context.Context, entry AuditEntry) (AuditEntry, error)
		QueryAudit(ctx context.Context, appraisalID int) ([]AuditEntry, error)

		CreateCycle(ctx context.Context, c Cycle) (Cycle, error)
		GetCycle(ctx context.Context, id int) (Cycle, error)
		GetOpenCycle(ctx context.Context) (Cycle, error)
		QueryCycles(ctx context.Context) ([]Cycle, error)
		UpdateCycle(ctx context.Context, c Cycle) (Cycle, error)
	}

	// ListFilter narrows appraisal listings for dashboards.
	ListFilter struct {
		CycleID    int    `query:"cycle"`
		Status     Status `query:"status"`
		Department string `query:"department"`
		TeacherID  int    `query:"teacher"`
	}

	// FullAppraisalData is the read model assembled for views: the appraisal
	// plus all section data, reviews and teacher/cycle references.
	FullAppraisalData struct {
		Appraisal Appraisal      `json:"appraisal"`
		Teacher   user.User      `json:"teacher"`
		Cycle     Cycle          `json:"cycle"`
		Sections  Sections       `json:"sections"`
		Reviews   []ReviewRecord `json:"reviews"`
	}

	ServiceInterface interface {
		GetOrCreate(ctx context.Context, teacherID, cycleID int) (Appraisal, error)
		SaveSection(ctx context.Context, actorID, appraisalID int, data SectionData) (Appraisal, error)
		RecalculateTotals(ctx context.Context, actorID, appraisalID int) (Appraisal, error)
		Submit(ctx context.Context, actorID, appraisalID int) (Appraisal, error)
		HODReview(ctx context.Context, reviewer user.User, appraisalID int, in ReviewInput) (Appraisal, error)
		IQACReview(ctx context.Context, reviewer user.User, appraisalID int, in ReviewInput) (Appraisal, error)
		PrincipalReview(ctx context.Context, reviewer user.User, appraisalID int, in ReviewInput) (Appraisal, error)

		Get(ctx context.Context, id int) (Appraisal, error)
		GetFullAppraisalData(ctx context.Context, id int) (FullAppraisalData, error)
		Filter(ctx context.Context, filter ListFilter, ordering ...core.DBOrdering) ([]Appraisal, error)
		Audit(ctx context.Context, appraisalID int) ([]AuditEntry, error)

		CreateCycle(ctx context.Context, nc NewCycle) (Cycle, error)
		CloseCycle(ctx context.Context, id int) (Cycle, error)
		GetCycle(ctx context.Context, id int) (Cycle, error)
		GetOpenCycle(ctx context.Context) (Cycle, error)
		QueryCycles(ctx context.Context) ([]Cycle, error)
	}

	service struct {
		repo    Repository
		usrRepo user.Repository
		mailSvc core.EmailService
		logger  core.Logger

		// transitions are serialized per appraisal ID: exactly one in-flight
		// review transition per appraisal. Entries are released once an
		// appraisal reaches its terminal status.
		mu    sync.Mutex
		locks map[int]*sync.Mutex
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, usrRepo user.Repository, mailSvc core.EmailService, logger core.Logger) ServiceInterface {
	return &service{
		repo:    repo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		logger:  logger,
		locks:   make(map[int]*sync.Mutex),
	}
}

func (svc *service) lock(appraisalID int) func() {
	svc.mu.Lock()
	l, ok := svc.locks[appraisalID]
	if !ok {
		l = new(sync.Mutex)
		svc.locks[appraisalID] = l
	}
	svc.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// releaseLock drops a locked appraisal's serialization entry; no further
// transitions can reach it.
func (svc *service) releaseLock(appraisalID int) {
	svc.mu.Lock()
	delete(svc.locks, appraisalID)
	svc.mu.Unlock()
}

// GetOrCreate returns the teacher's appraisal for the cycle, lazily creating
// it in DRAFT if none exists and the cycle is open. Idempotent: a second call
// returns the same appraisal and appends no further CREATED audit entry.
func (svc *service) GetOrCreate(ctx context.Context, teacherID, cycleID int) (Appraisal, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock() // serialize creates; the DB unique index is the backstop

	appr, err := svc.repo.GetAppraisalByTeacherAndCycle(ctx, teacherID, cycleID)
	if err == nil {
		return appr, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Appraisal{}, errors.Wrap(err, "finding appraisal by teacher and cycle")
	}

	cycle, err := svc.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return Appraisal{}, errors.Wrap(err, "finding cycle")
	}
	if !cycle.IsOpen {
		return Appraisal{}, ErrCycleClosed
	}

	now := time.Now().UTC()
	appr, err = svc.repo.CreateAppraisal(ctx, Appraisal{
		RefNo:     "APR-" + uuid.New().String(),
		TeacherID: teacherID,
		CycleID:   cycleID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Appraisal{}, errors.Wrap(err, "creating appraisal")
	}
	svc.audit(ctx, appr.ID, AuditCreated, teacherID, map[string]interface{}{"ref_no": appr.RefNo, "cycle_id": cycleID})
	return appr, nil
}

// SaveSection replaces one section's data wholesale while the appraisal is
// editable. Totals are NOT recomputed here; they go stale until the next
// RecalculateTotals call (explicit two-phase write).
func (svc *service) SaveSection(ctx context.Context, actorID, appraisalID int, data SectionData) (Appraisal, error) {
	defer svc.lock(appraisalID)()

	appr, err := svc.repo.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return Appraisal{}, err
	}
	if appr.Status != StatusDraft {
		return Appraisal{}, &InvalidTransitionError{Op: "save section", Expected: StatusDraft, Actual: appr.Status}
	}

	if err := svc.repo.ReplaceSection(ctx, appraisalID, data); err != nil {
		return Appraisal{}, errors.Wrapf(err, "replacing section %s", data.Key())
	}

	appr.TotalsStale = true
	appr.UpdatedAt = time.Now().UTC()
	appr, err = svc.repo.UpdateAppraisal(ctx, appr)
	if err != nil {
		return Appraisal{}, errors.Wrap(err, "updating appraisal")
	}
	svc.audit(ctx, appraisalID, AuditSectionSaved, actorID, map[string]interface{}{"section": data.Key()})
	return appr, nil
}

// RecalculateTotals recomputes the stored totals from current section data.
// Immediately after this call the totals are consistent with stored sections.
func (svc *service) RecalculateTotals(ctx context.Context, actorID, appraisalID int) (Appraisal, error) {
	defer svc.lock(appraisalID)()

	appr, err := svc.repo.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return Appraisal{}, err
	}
	if appr.Status != StatusDraft {
		return Appraisal{}, &InvalidTransitionError{Op: "recalculate totals", Expected: StatusDraft, Actual: appr.Status}
	}
	appr, err = svc.recalculate(ctx, appr)
	if err != nil {
		return Appraisal{}, err
	}
	svc.audit(ctx, appraisalID, AuditRecalculated, actorID, map[string]interface{}{"grand_total": appr.GrandTotal})
	return appr, nil
}

func (svc *service) recalculate(ctx context.Context, appr Appraisal) (Appraisal, error) {
	sections, err := svc.repo.GetSections(ctx, appr.ID)
	if err != nil {
		return Appraisal{}, errors.Wrap(err, "loading sections")
	}
	calc := Calculate(sections)
	appr.PartBTotal = calc.PartB.Total
	appr.PartCTotal = calc.PartC.Total
	appr.PartDTotal = calc.PartD.Total
	appr.GrandTotal = calc.GrandTotal
	appr.TotalsStale = false
	appr.UpdatedAt = time.Now().UTC()

	appr, err = svc.repo.UpdateAppraisal(ctx, appr)
	return appr, errors.Wrap(err, "updating appraisal totals")
}

// Submit freezes the self-assessment: totals are recomputed one last time,
// the self score snapshot is taken and the appraisal moves to SUBMITTED.
// The teacher can no longer edit sections afterwards.
func (svc *service) Submit(ctx context.Context, actorID, appraisalID int) (Appraisal, error) {
	defer svc.lock(appraisalID)()

	appr, err := svc.repo.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return Appraisal{}, err
	}
	if appr.Status != StatusDraft {
		return Appraisal{}, &InvalidTransitionError{Op: "submit", Expected: StatusDraft, Actual: appr.Status}
	}

	appr, err = svc.recalculate(ctx, appr)
	if err != nil {
		return Appraisal{}, err
	}

	now := time.Now().UTC()
	appr.Status = StatusSubmitted
	appr.SelfScore = appr.GrandTotal
	appr.SubmittedAt = now
	appr.UpdatedAt = now
	// a resubmission supersedes any earlier rejection
	appr.RejectionReason = ""
	appr.RejectedBy = ""
	appr.RejectedAt = time.Time{}

	appr, err = svc.repo.UpdateAppraisal(ctx, appr)
	if err != nil {
		return Appraisal{}, errors.Wrap(err, "updating appraisal")
	}
	svc.audit(ctx, appraisalID, AuditSubmitted, actorID, map[string]interface{}{"self_score": appr.SelfScore})
	svc.notifyNextReviewers(ctx, appr, ReviewerHOD)
	return appr, nil
}

// HODReview applies the HOD decision on a SUBMITTED appraisal.
// Rejection sends the appraisal back to DRAFT with its section data intact;
// approval stores the reviewed score and advances to HOD_REVIEWED.
func (svc *service) HODReview(ctx context.Context, reviewer user.User, appraisalID int, in ReviewInput) (Appraisal, error) {
	defer svc.lock(appraisalID)()

	appr, err := svc.repo.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return Appraisal{}, err
	}
	if appr.Status != StatusSubmitted {
		return Appraisal{}, &InvalidTransitionError{Op: "HOD review", Expected: StatusSubmitted, Actual: appr.Status}
	}

	now := time.Now().UTC()
	if in.Decision == DecisionRejected {
		appr.Status = StatusDraft
		appr.RejectionReason = in.Comments
		appr.RejectedBy = string(ReviewerHOD)
		appr.RejectedAt = now
		appr.UpdatedAt = now

		if _, err := svc.repo.SaveReview(ctx, ReviewRecord{
			AppraisalID: appraisalID,
			Role:        ReviewerHOD,
			ReviewerID:  reviewer.ID,
			Comments:    in.Comments,
			Decision:    DecisionRejected,
			ReviewedAt:  now,
		}); err != nil {
			return Appraisal{}, errors.Wrap(err, "saving review")
		}
		appr, err = svc.repo.UpdateAppraisal(ctx, appr)
		if err != nil {
			return Appraisal{}, errors.Wrap(err, "updating appraisal")
		}
		svc.audit(ctx, appraisalID, AuditHODRejected, reviewer.ID, map[string]interface{}{"reason": in.Comments})
		svc.notifyTeacher(ctx, appr,
			"Appraisal returned for rework",
			fmt.Sprintf("Your appraisal %s was returned by the HOD with the following remarks:\n\n%s", appr.RefNo, in.Comments),
		)
		return appr, nil
	}

	reviewedScore := sumReviewScores(in.Scores)
	if _, err := svc.repo.SaveReview(ctx, ReviewRecord{
		AppraisalID:   appraisalID,
		Role:          ReviewerHOD,
		ReviewerID:    reviewer.ID,
		Scores:        clampReviewScores(in.Scores),
		Comments:      in.Comments,
		Decision:      DecisionApproved,
		ReviewedScore: reviewedScore,
		ReviewedAt:    now,
	}); err != nil {
		return Appraisal{}, errors.Wrap(err, "saving review")
	}

	appr.Status = StatusHODReviewed
	appr.HODScore = reviewedScore
	appr.HODApprovedAt = now
	appr.UpdatedAt = now
	appr, err = svc.repo.UpdateAppraisal(ctx, appr)
	if err != nil {
		return Appraisal{}, errors.Wrap(err, "updating appraisal")
	}
	svc.audit(ctx, appraisalID, AuditHODReviewed, reviewer.ID, map[string]interface{}{"reviewed_score": reviewedScore})
	svc.notifyNextReviewers(ctx, appr, ReviewerIQAC)
	return appr, nil
}

// IQACReview applies the IQAC review on a HOD_REVIEWED appraisal.
// There is no rejection path at this stage.
func (svc *service) IQACReview(ctx context.Context, reviewer user.User, appraisalID int, in ReviewInput) (Appraisal, error) {
	defer svc.lock(appraisalID)()

	appr, err := svc.repo.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return Appraisal{}, err
	}
	if appr.Status != StatusHODReviewed {
		return Appraisal{}, &InvalidTransitionError{Op: "IQAC review", Expected: StatusHODReviewed, Actual: appr.Status}
	}

	now := time.Now().UTC()
	reviewedScore := sumReviewScores(in.Scores)
	if _, err := svc.repo.SaveReview(ctx, ReviewRecord{
		AppraisalID:   appraisalID,
		Role:          ReviewerIQAC,
		ReviewerID:    reviewer.ID,
		Scores:        clampReviewScores(in.Scores),
		Comments:      in.Comments,
		Decision:      DecisionApproved,
		ReviewedScore: reviewedScore,
		ReviewedAt:    now,
	}); err != nil {
		return Appraisal{}, errors.Wrap(err, "saving review")
	}

	appr.Status = StatusIQACReviewed
	appr.IQACScore = reviewedScore
	appr.IQACApprovedAt = now
	appr.UpdatedAt = now
	appr, err = svc.repo.UpdateAppraisal(ctx, appr)
	if err != nil {
		return Appraisal{}, errors.Wrap(err, "updating appraisal")
	}
	svc.audit(ctx, appraisalID, AuditIQACReviewed, reviewer.ID, map[string]interface{}{"reviewed_score": reviewedScore})
	svc.notifyRole(ctx, appr, user.RoleAdminPrincipal, "" /* any department */)
	return appr, nil
}

// PrincipalReview applies the final review on an IQAC_REVIEWED appraisal and
// locks it permanently.
func (svc *service) PrincipalReview(ctx context.Context, reviewer user.User, appraisalID int, in ReviewInput) (Appraisal, error) {
	defer svc.lock(appraisalID)()

	appr, err := svc.repo.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return Appraisal{}, err
	}
	if appr.Status != StatusIQACReviewed {
		return Appraisal{}, &InvalidTransitionError{Op: "principal review", Expected: StatusIQACReviewed, Actual: appr.Status}
	}

	now := time.Now().UTC()
	finalScore := sumReviewScores(in.Scores)
	if _, err := svc.repo.SaveReview(ctx, ReviewRecord{
		AppraisalID:   appraisalID,
		Role:          ReviewerPrincipal,
		ReviewerID:    reviewer.ID,
		Scores:        clampReviewScores(in.Scores),
		Comments:      in.Comments,
		Decision:      DecisionApproved,
		ReviewedScore: finalScore,
		ReviewedAt:    now,
	}); err != nil {
		return Appraisal{}, errors.Wrap(err, "saving review")
	}

	appr.Status = StatusPrincipalReviewed
	appr.FinalScore = finalScore
	appr.PrincipalApprovedAt = now
	appr.LockedAt = now
	appr.UpdatedAt = now
	appr, err = svc.repo.UpdateAppraisal(ctx, appr)
	if err != nil {
		return Appraisal{}, errors.Wrap(err, "updating appraisal")
	}
	svc.audit(ctx, appraisalID, AuditPrincipalReviewed, reviewer.ID, map[string]interface{}{"final_score": finalScore})
	svc.releaseLock(appraisalID)
	svc.notifyTeacher(ctx, appr,
		"Appraisal finalized",
		fmt.Sprintf("Your appraisal %s has been reviewed and finalized with a score of %.2f.", appr.RefNo, finalScore),
	)
	return appr, nil
}

// Reads

func (svc *service) Get(ctx context.Context, id int) (Appraisal, error) {
	return svc.repo.GetAppraisal(ctx, id)
}

func (svc *service) GetFullAppraisalData(ctx context.Context, id int) (FullAppraisalData, error) {
	appr, err := svc.repo.GetAppraisal(ctx, id)
	if err != nil {
		return FullAppraisalData{}, err
	}
	sections, err := svc.repo.GetSections(ctx, id)
	if err != nil {
		return FullAppraisalData{}, errors.Wrap(err, "loading sections")
	}
	reviews, err := svc.repo.GetReviews(ctx, id)
	if err != nil {
		return FullAppraisalData{}, errors.Wrap(err, "loading reviews")
	}
	teacher, err := svc.usrRepo.GetUserByID(ctx, appr.TeacherID)
	if err != nil {
		return FullAppraisalData{}, errors.Wrap(err, "loading teacher")
	}
	cycle, err := svc.repo.GetCycle(ctx, appr.CycleID)
	if err != nil {
		return FullAppraisalData{}, errors.Wrap(err, "loading cycle")
	}
	return FullAppraisalData{
		Appraisal: appr,
		Teacher:   teacher,
		Cycle:     cycle,
		Sections:  sections,
		Reviews:   reviews,
	}, nil
}

func (svc *service) Filter(ctx context.Context, filter ListFilter, ordering ...core.DBOrdering) ([]Appraisal, error) {
	qf := QueryFilter{CycleID: filter.CycleID, Status: filter.Status}
	if filter.TeacherID != 0 {
		qf.TeacherIDs = []int{filter.TeacherID}
	}
	if filter.Department != "" {
		teachers, err := svc.usrRepo.FilterUsers(ctx, user.QueryFilter{Department: filter.Department})
		if err != nil {
			return nil, errors.Wrap(err, "resolving department teachers")
		}
		if len(teachers) == 0 {
			return []Appraisal{}, nil
		}
		for _, t := range teachers {
			if filter.TeacherID == 0 || t.ID == filter.TeacherID {
				qf.TeacherIDs = append(qf.TeacherIDs, t.ID)
			}
		}
	}
	return svc.repo.FilterAppraisals(ctx, qf, ordering...)
}

func (svc *service) Audit(ctx context.Context, appraisalID int) ([]AuditEntry, error) {
	return svc.repo.QueryAudit(ctx, appraisalID)
}

// Cycles

func (svc *service) CreateCycle(ctx context.Context, nc NewCycle) (Cycle, error) {
	if _, err := svc.repo.GetOpenCycle(ctx); err == nil {
		return Cycle{}, core.NewValidationError(ErrCycleExists)
	} else if errors.Cause(err) != ErrCycleNotFound {
		return Cycle{}, errors.Wrap(err, "checking open cycle")
	}

	now := time.Now().UTC()
	return svc.repo.CreateCycle(ctx, Cycle{
		Name:         nc.Name,
		AcademicYear: nc.AcademicYear,
		StartDate:    nc.StartDate,
		EndDate:      nc.EndDate,
		IsOpen:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *service) CloseCycle(ctx context.Context, id int) (Cycle, error) {
	cycle, err := svc.repo.GetCycle(ctx, id)
	if err != nil {
		return Cycle{}, err
	}
	cycle.IsOpen = false
	cycle.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCycle(ctx, cycle)
}

func (svc *service) GetCycle(ctx context.Context, id int) (Cycle, error) {
	return svc.repo.GetCycle(ctx, id)
}

func (svc *service) GetOpenCycle(ctx context.Context) (Cycle, error) {
	return svc.repo.GetOpenCycle(ctx)
}

func (svc *service) QueryCycles(ctx context.Context) ([]Cycle, error) {
	return svc.repo.QueryCycles(ctx)
}

// helpers

// clampReviewScores clamps each reviewer-entered category score to its cap.
// Reviewers are shown the caps in the UI, but the engine does not trust that.
func clampReviewScores(scores ReviewScores) ReviewScores {
	clamped := ReviewScores{
		PartB: clampScoreMap(scores.PartB),
		PartC: clampScoreMap(scores.PartC),
		PartD: clampScoreMap(scores.PartD),
	}
	return clamped
}

func clampScoreMap(scores map[CategoryKey]float64) map[CategoryKey]float64 {
	if scores == nil {
		return nil
	}
	clamped := make(map[CategoryKey]float64, len(scores))
	for key, marks := range scores {
		if cap, ok := CapFor(key); ok && marks > cap.Max {
			marks = cap.Max
		}
		clamped[key] = marks
	}
	return clamped
}

// sumReviewScores sums the clamped reviewer-entered category scores across
// Parts B/C/D; this is computed independently from the self-assessed totals.
func sumReviewScores(scores ReviewScores) float64 {
	var total float64
	for _, m := range clampScoreMap(scores.PartB) {
		total += m
	}
	for _, m := range clampScoreMap(scores.PartC) {
		total += m
	}
	for _, m := range clampScoreMap(scores.PartD) {
		total += m
	}
	return core.Round2(total)
}

// audit appends one append-only trail entry. Failures are not fatal to the
// transition that triggered them, but they are reported: the trail is the
// only traceability record there is.
func (svc *service) audit(ctx context.Context, appraisalID int, action AuditAction, actorID int, payload map[string]interface{}) {
	var payloadStr string
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			payloadStr = string(b)
		}
	}
	_, err := svc.repo.AppendAudit(ctx, AuditEntry{
		AppraisalID: appraisalID,
		Action:      action,
		ActorID:     actorID,
		Payload:     payloadStr,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil && svc.logger != nil {
		svc.logger.Error(fmt.Sprintf("appending %s audit entry for appraisal %d: %v", action, appraisalID, err))
	}
}

// notifyNextReviewers emails the reviewers of the next stage in the teacher's
// department. Best effort; a failed lookup never fails the transition.
func (svc *service) notifyNextReviewers(ctx context.Context, appr Appraisal, next ReviewerRole) {
	role := user.RoleReviewerHOD
	if next == ReviewerIQAC {
		role = user.RoleReviewerIQAC
	}

	teacher, err := svc.usrRepo.GetUserByID(ctx, appr.TeacherID)
	if err != nil {
		return
	}
	dept := teacher.Department
	if next == ReviewerIQAC {
		dept = "" // IQAC reviews across departments
	}
	svc.notifyRole(ctx, appr, role, dept)
}

func (svc *service) notifyRole(ctx context.Context, appr Appraisal, role, department string) {
	reviewers, err := svc.usrRepo.FilterUsers(ctx, user.QueryFilter{Roles: []string{role}, Department: department})
	if err != nil || len(reviewers) == 0 {
		return
	}
	to := make([]mail.Address, 0, len(reviewers))
	for _, r := range reviewers {
		if r.IsActive && r.Email != "" {
			to = append(to, mail.Address{Name: r.Name, Address: r.Email})
		}
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      to,
		Subject: "Appraisal awaiting review",
		BodyStr: fmt.Sprintf("Appraisal %s is awaiting your review.", appr.RefNo),
	})
}

func (svc *service) notifyTeacher(ctx context.Context, appr Appraisal, subject, body string) {
	teacher, err := svc.usrRepo.GetUserByID(ctx, appr.TeacherID)
	if err != nil || teacher.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: teacher.Name, Address: teacher.Email}},
		Subject: subject,
		BodyStr: body,
	})
}
