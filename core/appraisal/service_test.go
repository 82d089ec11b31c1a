package appraisal_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/appraisal"
	"github.com/trezcool/tathmini/core/user"
	dummydb "github.com/trezcool/tathmini/storage/database/dummy"
	"github.com/trezcool/tathmini/tests"
)

type mailRecorder struct {
	sent []*core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

type logRecorder struct {
	errored []string
}

func (l *logRecorder) Debug(msg string, args ...interface{}) {}
func (l *logRecorder) Info(msg string, args ...interface{})  {}
func (l *logRecorder) Warn(msg string, args ...interface{})  {}
func (l *logRecorder) Error(msg string, args ...interface{}) { l.errored = append(l.errored, msg) }
func (l *logRecorder) Fatal(msg string, args ...interface{}) {}

type testEnv struct {
	svc     appraisal.ServiceInterface
	repo    appraisal.Repository
	usrRepo user.Repository
	mail    *mailRecorder
	logs    *logRecorder

	teacher   user.User
	hod       user.User
	iqac      user.User
	principal user.User
	cycle     appraisal.Cycle
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	repo := dummydb.NewAppraisalRepository(db)
	usrRepo := dummydb.NewUserRepository(db)
	mail := &mailRecorder{}
	logs := &logRecorder{}

	env := &testEnv{
		svc:     appraisal.NewService(repo, usrRepo, mail, logs),
		repo:    repo,
		usrRepo: usrRepo,
		mail:    mail,
		logs:    logs,
	}
	env.teacher = testutil.CreateUser(t, usrRepo, "Asha Teacher", "asha", "asha@test.cd", "", "CSE", []string{user.RoleTeacher}, true)
	env.hod = testutil.CreateUser(t, usrRepo, "Hod CSE", "hodcse", "hod@test.cd", "", "CSE", []string{user.RoleReviewerHOD}, true)
	env.iqac = testutil.CreateUser(t, usrRepo, "Iqac One", "iqac", "iqac@test.cd", "", "", []string{user.RoleReviewerIQAC}, true)
	env.principal = testutil.CreateUser(t, usrRepo, "The Principal", "principal", "principal@test.cd", "", "", []string{user.RoleAdminPrincipal}, true)
	env.cycle = testutil.CreateCycle(t, repo, "Annual Appraisal", "2025-26", true)
	return env
}

func (env *testEnv) fillSections(t *testing.T, ctx context.Context, appraisalID int) {
	t.Helper()
	sections := []appraisal.SectionData{
		appraisal.ResearchJournals{
			{EntryBase: appraisal.EntryBase{ID: 1, SelfMarks: 8}, Title: "Paper A", Journal: "IJCA"},
			{EntryBase: appraisal.EntryBase{ID: 2, SelfMarks: 200}, Title: "Paper B", Journal: "IJCA"},
		},
		&appraisal.KeyContribution{EntryBase: appraisal.EntryBase{SelfMarks: 30}, Description: "New labs"},
		appraisal.CommitteeRoles{
			{EntryBase: appraisal.EntryBase{ID: 1, SelfMarks: 10}, Committee: "Exam Cell"},
			{EntryBase: appraisal.EntryBase{ID: 2, SelfMarks: 15}, Committee: "NAAC"},
		},
		&appraisal.ValuesAssessment{EntryBase: appraisal.EntryBase{SelfMarks: 25}},
	}
	for _, data := range sections {
		if _, err := env.svc.SaveSection(ctx, env.teacher.ID, appraisalID, derefSection(data)); err != nil {
			t.Fatalf("SaveSection(%s) failed: %v", derefSection(data).Key(), err)
		}
	}
}

func derefSection(data appraisal.SectionData) appraisal.SectionData {
	switch d := data.(type) {
	case *appraisal.KeyContribution:
		return *d
	case *appraisal.ValuesAssessment:
		return *d
	case *appraisal.StudentFeedback:
		return *d
	}
	return data
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	appr1, err := env.svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	if appr1.Status != appraisal.StatusDraft {
		t.Errorf("Status = %s; want %s", appr1.Status, appraisal.StatusDraft)
	}
	if !strings.HasPrefix(appr1.RefNo, "APR-") {
		t.Errorf("RefNo = %q; want APR- prefix", appr1.RefNo)
	}

	appr2, err := env.svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("second GetOrCreate() failed: %v", err)
	}
	if appr2.ID != appr1.ID {
		t.Errorf("second call created a new appraisal: %d != %d", appr2.ID, appr1.ID)
	}

	audit, err := env.svc.Audit(ctx, appr1.ID)
	if err != nil {
		t.Fatalf("Audit() failed: %v", err)
	}
	var created int
	for _, entry := range audit {
		if entry.Action == appraisal.AuditCreated {
			created++
		}
	}
	if created != 1 {
		t.Errorf("CREATED audit entries = %d; want 1", created)
	}
}

func TestGetOrCreateClosedCycle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	closed := testutil.CreateCycle(t, env.repo, "Old Cycle", "2024-25", false)
	if _, err := env.svc.GetOrCreate(ctx, env.teacher.ID, closed.ID); err != appraisal.ErrCycleClosed {
		t.Errorf("GetOrCreate() error = %v; want %v", err, appraisal.ErrCycleClosed)
	}
}

func TestSaveSectionMarksTotalsStale(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	appr, err := env.svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}

	appr, err = env.svc.SaveSection(ctx, env.teacher.ID, appr.ID, appraisal.ResearchJournals{
		{EntryBase: appraisal.EntryBase{ID: 1, SelfMarks: 8}, Title: "Paper", Journal: "IJCA"},
	})
	if err != nil {
		t.Fatalf("SaveSection() failed: %v", err)
	}
	if !appr.TotalsStale {
		t.Error("TotalsStale = false after section save; want true")
	}

	appr, err = env.svc.RecalculateTotals(ctx, env.teacher.ID, appr.ID)
	if err != nil {
		t.Fatalf("RecalculateTotals() failed: %v", err)
	}
	if appr.TotalsStale {
		t.Error("TotalsStale = true after recalculation; want false")
	}
	if appr.PartBTotal != 8 {
		t.Errorf("PartBTotal = %v; want 8", appr.PartBTotal)
	}
	if appr.GrandTotal != 8 {
		t.Errorf("GrandTotal = %v; want 8", appr.GrandTotal)
	}

	audit, err := env.svc.Audit(ctx, appr.ID)
	if err != nil {
		t.Fatalf("Audit() failed: %v", err)
	}
	var recalculated bool
	for _, entry := range audit {
		if entry.Action == appraisal.AuditRecalculated {
			recalculated = true
		}
	}
	if !recalculated {
		t.Error("no RECALCULATED entry in the audit trail")
	}
}

type failingAuditRepo struct {
	appraisal.Repository
}

func (r failingAuditRepo) AppendAudit(ctx context.Context, entry appraisal.AuditEntry) (appraisal.AuditEntry, error) {
	return appraisal.AuditEntry{}, errors.New("audit store down")
}

func TestAuditFailureDoesNotBlockTransitions(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	logs := &logRecorder{}
	svc := appraisal.NewService(failingAuditRepo{env.repo}, env.usrRepo, env.mail, logs)

	appr, err := svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	if appr.Status != appraisal.StatusDraft {
		t.Errorf("Status = %s; want %s", appr.Status, appraisal.StatusDraft)
	}
	if len(logs.errored) != 1 {
		t.Fatalf("logged errors = %d; want 1", len(logs.errored))
	}
	if !strings.Contains(logs.errored[0], "audit") {
		t.Errorf("logged error %q does not mention the audit trail", logs.errored[0])
	}
}

func TestSubmitSnapshotsSelfScore(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	appr, err := env.svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	env.fillSections(t, ctx, appr.ID)

	appr, err = env.svc.Submit(ctx, env.teacher.ID, appr.ID)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if appr.Status != appraisal.StatusSubmitted {
		t.Errorf("Status = %s; want %s", appr.Status, appraisal.StatusSubmitted)
	}
	// journals 8+200 -> 15; keyContribution 30 -> 20; committees 10+15 -> 15; values 25
	const want = 15 + 20 + 15 + 25
	if appr.SelfScore != want {
		t.Errorf("SelfScore = %v; want %v", appr.SelfScore, want)
	}
	if appr.TotalsStale {
		t.Error("TotalsStale = true after submission; want false")
	}
	if appr.SubmittedAt.IsZero() {
		t.Error("SubmittedAt not set")
	}

	// editing is frozen
	_, err = env.svc.SaveSection(ctx, env.teacher.ID, appr.ID, appraisal.ResearchJournals{})
	if !appraisal.IsInvalidTransition(err) {
		t.Errorf("SaveSection() after submit error = %v; want InvalidTransitionError", err)
	}

	// HOD of the teacher's department is notified
	var notified bool
	for _, msg := range env.mail.sent {
		for _, to := range msg.To {
			if to.Address == env.hod.Email {
				notified = true
			}
		}
	}
	if !notified {
		t.Error("HOD was not notified of the submission")
	}
}

func TestReviewWorkflowHappyPath(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	appr, err := env.svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	env.fillSections(t, ctx, appr.ID)
	if _, err = env.svc.Submit(ctx, env.teacher.ID, appr.ID); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	hodScores := appraisal.ReviewInput{
		Decision: appraisal.DecisionApproved,
		Scores: appraisal.ReviewScores{
			PartB: map[appraisal.CategoryKey]float64{appraisal.CatResearchJournals: 12},
			PartC: map[appraisal.CategoryKey]float64{
				appraisal.CatKeyContribution: 18,
				appraisal.CatCommitteeRoles:  14,
			},
			PartD: map[appraisal.CategoryKey]float64{appraisal.CatValues: 24},
		},
	}
	appr, err = env.svc.HODReview(ctx, env.hod, appr.ID, hodScores)
	if err != nil {
		t.Fatalf("HODReview() failed: %v", err)
	}
	if appr.Status != appraisal.StatusHODReviewed {
		t.Errorf("Status = %s; want %s", appr.Status, appraisal.StatusHODReviewed)
	}
	if want := 12.0 + 18 + 14 + 24; appr.HODScore != want {
		t.Errorf("HODScore = %v; want %v", appr.HODScore, want)
	}

	// IQAC cannot be skipped: principal review is rejected at this stage
	_, err = env.svc.PrincipalReview(ctx, env.principal, appr.ID, hodScores)
	if !appraisal.IsInvalidTransition(err) {
		t.Errorf("PrincipalReview() on %s error = %v; want InvalidTransitionError", appr.Status, err)
	}

	iqacScores := appraisal.ReviewInput{
		Decision: appraisal.DecisionApproved,
		Scores: appraisal.ReviewScores{
			PartB: map[appraisal.CategoryKey]float64{appraisal.CatResearchJournals: 11},
			PartD: map[appraisal.CategoryKey]float64{appraisal.CatValues: 23},
		},
	}
	appr, err = env.svc.IQACReview(ctx, env.iqac, appr.ID, iqacScores)
	if err != nil {
		t.Fatalf("IQACReview() failed: %v", err)
	}
	if appr.Status != appraisal.StatusIQACReviewed {
		t.Errorf("Status = %s; want %s", appr.Status, appraisal.StatusIQACReviewed)
	}
	if appr.IQACScore != 34 {
		t.Errorf("IQACScore = %v; want 34", appr.IQACScore)
	}

	appr, err = env.svc.PrincipalReview(ctx, env.principal, appr.ID, appraisal.ReviewInput{
		Decision: appraisal.DecisionApproved,
		Scores: appraisal.ReviewScores{
			PartB: map[appraisal.CategoryKey]float64{appraisal.CatResearchJournals: 11.5},
			PartD: map[appraisal.CategoryKey]float64{appraisal.CatValues: 23.5},
		},
	})
	if err != nil {
		t.Fatalf("PrincipalReview() failed: %v", err)
	}
	if appr.Status != appraisal.StatusPrincipalReviewed {
		t.Errorf("Status = %s; want %s", appr.Status, appraisal.StatusPrincipalReviewed)
	}
	if appr.FinalScore != 35 {
		t.Errorf("FinalScore = %v; want 35", appr.FinalScore)
	}
	if appr.LockedAt.IsZero() {
		t.Error("LockedAt not set on final review")
	}

	// locked for good
	_, err = env.svc.Submit(ctx, env.teacher.ID, appr.ID)
	if !appraisal.IsInvalidTransition(err) {
		t.Errorf("Submit() on locked appraisal error = %v; want InvalidTransitionError", err)
	}

	reviews, err := env.repo.GetReviews(ctx, appr.ID)
	if err != nil {
		t.Fatalf("GetReviews() failed: %v", err)
	}
	if len(reviews) != 3 {
		t.Errorf("review records = %d; want 3", len(reviews))
	}
}

func TestHODRejectReturnsToDraft(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	appr, err := env.svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	env.fillSections(t, ctx, appr.ID)
	if _, err = env.svc.Submit(ctx, env.teacher.ID, appr.ID); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	appr, err = env.svc.HODReview(ctx, env.hod, appr.ID, appraisal.ReviewInput{
		Decision: appraisal.DecisionRejected,
		Comments: "Attach proof for the second journal paper",
	})
	if err != nil {
		t.Fatalf("HODReview(reject) failed: %v", err)
	}
	if appr.Status != appraisal.StatusDraft {
		t.Errorf("Status = %s; want %s", appr.Status, appraisal.StatusDraft)
	}
	if appr.RejectionReason == "" || appr.RejectedBy != "HOD" || appr.RejectedAt.IsZero() {
		t.Errorf("rejection metadata not set: %+v", appr)
	}

	// section data survives the rejection
	sections, err := env.repo.GetSections(ctx, appr.ID)
	if err != nil {
		t.Fatalf("GetSections() failed: %v", err)
	}
	if len(sections.ResearchJournals) != 2 {
		t.Errorf("research journal entries = %d; want 2", len(sections.ResearchJournals))
	}

	// the teacher fixes the entry and resubmits
	_, err = env.svc.SaveSection(ctx, env.teacher.ID, appr.ID, appraisal.ResearchJournals{
		{EntryBase: appraisal.EntryBase{ID: 1, SelfMarks: 8, Document: "doc-1"}, Title: "Paper A", Journal: "IJCA"},
	})
	if err != nil {
		t.Fatalf("SaveSection() after rejection failed: %v", err)
	}
	appr, err = env.svc.Submit(ctx, env.teacher.ID, appr.ID)
	if err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	if appr.Status != appraisal.StatusSubmitted {
		t.Errorf("Status = %s; want %s", appr.Status, appraisal.StatusSubmitted)
	}
	if appr.RejectionReason != "" || appr.RejectedBy != "" || !appr.RejectedAt.IsZero() {
		t.Errorf("rejection metadata not cleared on resubmission: %+v", appr)
	}

	// the HOD review record is overwritten, not accumulated
	if _, err = env.svc.HODReview(ctx, env.hod, appr.ID, appraisal.ReviewInput{Decision: appraisal.DecisionApproved}); err != nil {
		t.Fatalf("HODReview(approve) failed: %v", err)
	}
	reviews, err := env.repo.GetReviews(ctx, appr.ID)
	if err != nil {
		t.Fatalf("GetReviews() failed: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("review records = %d; want 1", len(reviews))
	}
	if reviews[0].Decision != appraisal.DecisionApproved {
		t.Errorf("review decision = %s; want %s", reviews[0].Decision, appraisal.DecisionApproved)
	}

	audit, err := env.svc.Audit(ctx, appr.ID)
	if err != nil {
		t.Fatalf("Audit() failed: %v", err)
	}
	var rejected bool
	for _, entry := range audit {
		if entry.Action == appraisal.AuditHODRejected {
			rejected = true
		}
	}
	if !rejected {
		t.Error("no HOD_REJECTED entry in the audit trail")
	}
}

func TestReviewerScoresAreClamped(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	appr, err := env.svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	env.fillSections(t, ctx, appr.ID)
	if _, err = env.svc.Submit(ctx, env.teacher.ID, appr.ID); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	appr, err = env.svc.HODReview(ctx, env.hod, appr.ID, appraisal.ReviewInput{
		Decision: appraisal.DecisionApproved,
		Scores: appraisal.ReviewScores{
			PartB: map[appraisal.CategoryKey]float64{appraisal.CatResearchJournals: 500},
			PartD: map[appraisal.CategoryKey]float64{appraisal.CatValues: 31},
		},
	})
	if err != nil {
		t.Fatalf("HODReview() failed: %v", err)
	}
	if want := 15.0 + 30; appr.HODScore != want {
		t.Errorf("HODScore = %v; want %v (clamped to category caps)", appr.HODScore, want)
	}
}

func TestFilterByDepartment(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	eceTeacher := testutil.CreateUser(t, env.usrRepo, "Binta Teacher", "binta", "binta@test.cd", "", "ECE", []string{user.RoleTeacher}, true)

	appr1, err := env.svc.GetOrCreate(ctx, env.teacher.ID, env.cycle.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	if _, err = env.svc.GetOrCreate(ctx, eceTeacher.ID, env.cycle.ID); err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}

	apprs, err := env.svc.Filter(ctx, appraisal.ListFilter{CycleID: env.cycle.ID, Department: "CSE"})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if len(apprs) != 1 || apprs[0].ID != appr1.ID {
		t.Errorf("Filter(CSE) = %+v; want only appraisal %d", apprs, appr1.ID)
	}

	apprs, err = env.svc.Filter(ctx, appraisal.ListFilter{CycleID: env.cycle.ID, Department: "Nonexistent"})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if len(apprs) != 0 {
		t.Errorf("Filter(Nonexistent) returned %d appraisals; want 0", len(apprs))
	}
}

func TestSingleOpenCycle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.svc.CreateCycle(ctx, appraisal.NewCycle{
		Name:         "Second Cycle",
		AcademicYear: "2026-27",
		StartDate:    env.cycle.StartDate,
		EndDate:      env.cycle.EndDate,
	})
	if _, ok := err.(*core.ValidationError); !ok {
		t.Fatalf("CreateCycle() error = %v; want ValidationError while a cycle is open", err)
	}

	if _, err = env.svc.CloseCycle(ctx, env.cycle.ID); err != nil {
		t.Fatalf("CloseCycle() failed: %v", err)
	}
	cycle, err := env.svc.CreateCycle(ctx, appraisal.NewCycle{
		Name:         "Second Cycle",
		AcademicYear: "2026-27",
		StartDate:    env.cycle.StartDate,
		EndDate:      env.cycle.EndDate,
	})
	if err != nil {
		t.Fatalf("CreateCycle() failed: %v", err)
	}
	if !cycle.IsOpen {
		t.Error("new cycle not open")
	}
}
