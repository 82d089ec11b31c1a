package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/tathmini/apps/api/echo"
	"github.com/trezcool/tathmini/core/appraisal"
	"github.com/trezcool/tathmini/core/user"
	testutil "github.com/trezcool/tathmini/tests"
)

type apiTestEnv struct {
	app       echoapi.Server
	teacher   user.User
	hod       user.User
	hodEE     user.User
	iqac      user.User
	principal user.User
	admin     user.User
	cycle     appraisal.Cycle
}

func setupAppraisalEnv(t *testing.T) apiTestEnv {
	t.Helper()
	app := setup(t)

	return apiTestEnv{
		app:       app,
		teacher:   testutil.CreateUser(t, usrRepo, "Asha", "asha", "asha@test.cd", "", "CSE", []string{user.RoleTeacher}, true),
		hod:       testutil.CreateUser(t, usrRepo, "Hod", "hodcse", "hod@test.cd", "", "CSE", []string{user.RoleReviewerHOD}, true),
		hodEE:     testutil.CreateUser(t, usrRepo, "Hod EE", "hodee1", "hodee@test.cd", "", "EE", []string{user.RoleReviewerHOD}, true),
		iqac:      testutil.CreateUser(t, usrRepo, "Iqac", "iqac01", "iqac@test.cd", "", "", []string{user.RoleReviewerIQAC}, true),
		principal: testutil.CreateUser(t, usrRepo, "Principal", "princip", "princip@test.cd", "", "", []string{user.RoleAdminPrincipal}, true),
		admin:     testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", "", []string{user.RoleAdmin}, true),
		cycle:     testutil.CreateCycle(t, apprRepo, "Annual Appraisal", "2025-26", true),
	}
}

// do runs one request and decodes the JSON response into out (if not nil).
func (env *apiTestEnv) do(t *testing.T, method, path, token string, body []byte, wantCode int, out interface{}) string {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, body)
	env.app.ServeHTTP(rec, req)
	require.Equalf(t, wantCode, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Body.String()
}

func Test_appraisalApi_caps(t *testing.T) {
	env := setupAppraisalEnv(t)

	t.Run("auth required", func(t *testing.T) {
		env.do(t, http.MethodGet, "/v1/appraisals/caps", "", nil, http.StatusUnauthorized, nil)
	})

	t.Run("served to any authenticated user", func(t *testing.T) {
		var resp struct {
			Caps       []appraisal.CategoryCap    `json:"caps"`
			PartMaxima map[appraisal.Part]float64 `json:"part_maxima"`
			GrandMax   float64                    `json:"grand_max"`
		}
		env.do(t, http.MethodGet, "/v1/appraisals/caps", getToken(t, env.teacher), nil, http.StatusOK, &resp)

		assert.Len(t, resp.Caps, len(appraisal.Caps))
		assert.Equal(t, appraisal.GrandMax, resp.GrandMax)
		assert.Equal(t, appraisal.PartBMax, resp.PartMaxima[appraisal.PartB])
	})
}

func Test_appraisalApi_workflow(t *testing.T) {
	env := setupAppraisalEnv(t)

	teacherToken := getToken(t, env.teacher)
	hodToken := getToken(t, env.hod)
	iqacToken := getToken(t, env.iqac)
	principalToken := getToken(t, env.principal)

	// the teacher's appraisal is created lazily in DRAFT
	var full appraisal.FullAppraisalData
	env.do(t, http.MethodGet, "/v1/appraisals/me", teacherToken, nil, http.StatusOK, &full)
	require.Equal(t, appraisal.StatusDraft, full.Appraisal.Status)
	require.Equal(t, env.teacher.ID, full.Appraisal.TeacherID)
	apprID := full.Appraisal.ID
	detail := fmt.Sprintf("/v1/appraisals/%d", apprID)

	// reviewers cannot edit sections
	env.do(t, http.MethodPut, detail+"/sections/partB.researchJournals", hodToken, nil, http.StatusForbidden, nil)

	journals := appraisal.ResearchJournals{
		{EntryBase: appraisal.EntryBase{SelfMarks: 8}, Title: "Adaptive Scheduling", Journal: "IEEE TPDS", Year: 2025},
		{EntryBase: appraisal.EntryBase{SelfMarks: 200}, Title: "Vision Survey", Journal: "ACM CSUR", Year: 2026},
	}
	var appr appraisal.Appraisal
	env.do(t, http.MethodPut, detail+"/sections/partB.researchJournals", teacherToken, marchallObj(t, journals), http.StatusOK, &appr)
	assert.True(t, appr.TotalsStale)

	// unknown section key / invalid entries are rejected
	env.do(t, http.MethodPut, detail+"/sections/partZ.lol", teacherToken, marchallObj(t, journals), http.StatusBadRequest, nil)
	badEntries := appraisal.ResearchJournals{{EntryBase: appraisal.EntryBase{SelfMarks: -1}, Title: "T", Journal: "J"}}
	env.do(t, http.MethodPut, detail+"/sections/partB.researchJournals", teacherToken, marchallObj(t, badEntries), http.StatusBadRequest, nil)

	// totals are capped per category (researchJournals: 15)
	env.do(t, http.MethodPost, detail+"/recalculate", teacherToken, nil, http.StatusOK, &appr)
	assert.False(t, appr.TotalsStale)
	assert.Equal(t, 15.0, appr.PartBTotal)
	assert.Equal(t, 15.0, appr.GrandTotal)

	// submit snapshots the self score
	env.do(t, http.MethodPost, detail+"/submit", teacherToken, nil, http.StatusOK, &appr)
	require.Equal(t, appraisal.StatusSubmitted, appr.Status)
	assert.Equal(t, 15.0, appr.SelfScore)
	assert.False(t, appr.SubmittedAt.IsZero())

	// editing after submission conflicts
	env.do(t, http.MethodPut, detail+"/sections/partB.researchJournals", teacherToken, marchallObj(t, journals), http.StatusConflict, nil)
	env.do(t, http.MethodPost, detail+"/submit", teacherToken, nil, http.StatusConflict, nil)

	// the HOD of another department cannot see it
	env.do(t, http.MethodGet, detail, getToken(t, env.hodEE), nil, http.StatusNotFound, nil)

	// stages cannot be skipped
	review := appraisal.ReviewInput{Decision: appraisal.DecisionApproved, Scores: appraisal.ReviewScores{
		PartB: map[appraisal.CategoryKey]float64{appraisal.CatResearchJournals: 500}, // clamped to 15
		PartC: map[appraisal.CategoryKey]float64{appraisal.CatKeyContribution: 12.5},
	}}
	env.do(t, http.MethodPost, detail+"/reviews/principal", principalToken, marchallObj(t, review), http.StatusConflict, nil)

	// HOD approves with clamped scores
	env.do(t, http.MethodPost, detail+"/reviews/hod", hodToken, marchallObj(t, review), http.StatusOK, &appr)
	require.Equal(t, appraisal.StatusHODReviewed, appr.Status)
	assert.Equal(t, 27.5, appr.HODScore)

	// IQAC cannot reject
	reject := appraisal.ReviewInput{Decision: appraisal.DecisionRejected, Comments: "not enough evidence"}
	env.do(t, http.MethodPost, detail+"/reviews/iqac", iqacToken, marchallObj(t, reject), http.StatusBadRequest, nil)

	env.do(t, http.MethodPost, detail+"/reviews/iqac", iqacToken, marchallObj(t, review), http.StatusOK, &appr)
	require.Equal(t, appraisal.StatusIQACReviewed, appr.Status)
	assert.Equal(t, 27.5, appr.IQACScore)

	env.do(t, http.MethodPost, detail+"/reviews/principal", principalToken, marchallObj(t, review), http.StatusOK, &appr)
	require.Equal(t, appraisal.StatusPrincipalReviewed, appr.Status)
	assert.Equal(t, 27.5, appr.FinalScore)
	assert.False(t, appr.LockedAt.IsZero())

	// the audit trail recorded every step
	var entries []appraisal.AuditEntry
	env.do(t, http.MethodGet, detail+"/audit", hodToken, nil, http.StatusOK, &entries)
	actions := make([]appraisal.AuditAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, appraisal.AuditCreated)
	assert.Contains(t, actions, appraisal.AuditSubmitted)
	assert.Contains(t, actions, appraisal.AuditHODReviewed)
	assert.Contains(t, actions, appraisal.AuditPrincipalReviewed)

	// teachers cannot read the audit trail
	env.do(t, http.MethodGet, detail+"/audit", teacherToken, nil, http.StatusForbidden, nil)
}

func Test_appraisalApi_hodReject(t *testing.T) {
	env := setupAppraisalEnv(t)

	teacherToken := getToken(t, env.teacher)
	hodToken := getToken(t, env.hod)

	var full appraisal.FullAppraisalData
	env.do(t, http.MethodGet, "/v1/appraisals/me", teacherToken, nil, http.StatusOK, &full)
	detail := fmt.Sprintf("/v1/appraisals/%d", full.Appraisal.ID)

	journals := appraisal.ResearchJournals{{EntryBase: appraisal.EntryBase{SelfMarks: 8}, Title: "T", Journal: "J"}}
	env.do(t, http.MethodPut, detail+"/sections/partB.researchJournals", teacherToken, marchallObj(t, journals), http.StatusOK, nil)

	var appr appraisal.Appraisal
	env.do(t, http.MethodPost, detail+"/submit", teacherToken, nil, http.StatusOK, &appr)

	// a rejection reason is required
	env.do(t, http.MethodPost, detail+"/reviews/hod", hodToken,
		marchallObj(t, appraisal.ReviewInput{Decision: appraisal.DecisionRejected}), http.StatusBadRequest, nil)

	reject := appraisal.ReviewInput{Decision: appraisal.DecisionRejected, Comments: "please attach documents"}
	env.do(t, http.MethodPost, detail+"/reviews/hod", hodToken, marchallObj(t, reject), http.StatusOK, &appr)
	require.Equal(t, appraisal.StatusDraft, appr.Status)
	assert.Equal(t, "please attach documents", appr.RejectionReason)
	assert.Equal(t, string(appraisal.ReviewerHOD), appr.RejectedBy)

	// section data survives the rejection and the teacher may rework and resubmit
	env.do(t, http.MethodGet, "/v1/appraisals/me", teacherToken, nil, http.StatusOK, &full)
	assert.Len(t, full.Sections.ResearchJournals, 1)

	env.do(t, http.MethodPost, detail+"/submit", teacherToken, nil, http.StatusOK, &appr)
	require.Equal(t, appraisal.StatusSubmitted, appr.Status)
	assert.Empty(t, appr.RejectionReason)
	assert.Empty(t, appr.RejectedBy)
}

func Test_appraisalApi_query(t *testing.T) {
	env := setupAppraisalEnv(t)

	teacherEE := testutil.CreateUser(t, usrRepo, "Zane", "zane01", "zane@test.cd", "", "EE", []string{user.RoleTeacher}, true)

	// lazily create one appraisal per teacher
	var full appraisal.FullAppraisalData
	env.do(t, http.MethodGet, "/v1/appraisals/me", getToken(t, env.teacher), nil, http.StatusOK, &full)
	cseApprID := full.Appraisal.ID
	env.do(t, http.MethodGet, "/v1/appraisals/me", getToken(t, teacherEE), nil, http.StatusOK, &full)
	eeApprID := full.Appraisal.ID

	t.Run("teachers cannot list", func(t *testing.T) {
		env.do(t, http.MethodGet, "/v1/appraisals", getToken(t, env.teacher), nil, http.StatusForbidden, nil)
	})

	t.Run("admins see everything", func(t *testing.T) {
		var apprs []appraisal.Appraisal
		env.do(t, http.MethodGet, "/v1/appraisals", getToken(t, env.admin), nil, http.StatusOK, &apprs)
		assert.Len(t, apprs, 2)
	})

	t.Run("HODs are scoped to their department", func(t *testing.T) {
		var apprs []appraisal.Appraisal
		env.do(t, http.MethodGet, "/v1/appraisals", getToken(t, env.hod), nil, http.StatusOK, &apprs)
		require.Len(t, apprs, 1)
		assert.Equal(t, cseApprID, apprs[0].ID)

		env.do(t, http.MethodGet, "/v1/appraisals", getToken(t, env.hodEE), nil, http.StatusOK, &apprs)
		require.Len(t, apprs, 1)
		assert.Equal(t, eeApprID, apprs[0].ID)
	})

	t.Run("IQAC sees across departments", func(t *testing.T) {
		var apprs []appraisal.Appraisal
		env.do(t, http.MethodGet, "/v1/appraisals?status=DRAFT", getToken(t, env.iqac), nil, http.StatusOK, &apprs)
		assert.Len(t, apprs, 2)
	})

	t.Run("filter by teacher", func(t *testing.T) {
		var apprs []appraisal.Appraisal
		path := fmt.Sprintf("/v1/appraisals?teacher=%d", teacherEE.ID)
		env.do(t, http.MethodGet, path, getToken(t, env.iqac), nil, http.StatusOK, &apprs)
		require.Len(t, apprs, 1)
		assert.Equal(t, eeApprID, apprs[0].ID)
	})
}

func Test_appraisalApi_cycles(t *testing.T) {
	env := setupAppraisalEnv(t)

	teacherToken := getToken(t, env.teacher)
	adminToken := getToken(t, env.admin)

	t.Run("open cycle is visible to everyone", func(t *testing.T) {
		var cycle appraisal.Cycle
		env.do(t, http.MethodGet, "/v1/cycles/open", teacherToken, nil, http.StatusOK, &cycle)
		assert.Equal(t, env.cycle.ID, cycle.ID)
	})

	t.Run("only admins manage cycles", func(t *testing.T) {
		env.do(t, http.MethodPost, "/v1/cycles", teacherToken, nil, http.StatusForbidden, nil)
		env.do(t, http.MethodPost, fmt.Sprintf("/v1/cycles/%d/close", env.cycle.ID), teacherToken, nil, http.StatusForbidden, nil)
	})

	t.Run("a second open cycle is refused", func(t *testing.T) {
		nc := appraisal.NewCycle{
			Name:         "Mid-term",
			AcademicYear: "2025-26",
			StartDate:    env.cycle.StartDate,
			EndDate:      env.cycle.EndDate,
		}
		env.do(t, http.MethodPost, "/v1/cycles", adminToken, marchallObj(t, nc), http.StatusBadRequest, nil)
	})

	t.Run("close then reopen", func(t *testing.T) {
		var cycle appraisal.Cycle
		env.do(t, http.MethodPost, fmt.Sprintf("/v1/cycles/%d/close", env.cycle.ID), adminToken, nil, http.StatusOK, &cycle)
		assert.False(t, cycle.IsOpen)

		// no open cycle to default to anymore, and the closed one refuses new appraisals
		env.do(t, http.MethodGet, "/v1/appraisals/me", teacherToken, nil, http.StatusNotFound, nil)
		env.do(t, http.MethodGet, fmt.Sprintf("/v1/appraisals/me?cycle=%d", env.cycle.ID), teacherToken, nil, http.StatusConflict, nil)

		nc := appraisal.NewCycle{
			Name:         "Annual Appraisal",
			AcademicYear: "2026-27",
			StartDate:    env.cycle.EndDate,
			EndDate:      env.cycle.EndDate.AddDate(1, 0, 0),
		}
		env.do(t, http.MethodPost, "/v1/cycles", adminToken, marchallObj(t, nc), http.StatusCreated, &cycle)
		assert.True(t, cycle.IsOpen)

		var cycles []appraisal.Cycle
		env.do(t, http.MethodGet, "/v1/cycles", teacherToken, nil, http.StatusOK, &cycles)
		assert.Len(t, cycles, 2)
	})
}
