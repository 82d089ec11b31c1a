package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/appraisal"
)

type dbAppraisal struct {
	ID          int              `db:"id"`
	RefNo       string           `db:"ref_no"`
	TeacherID   int              `db:"teacher_id"`
	CycleID     int              `db:"cycle_id"`
	Status      appraisal.Status `db:"status"`
	PartBTotal  float64          `db:"part_b_total"`
	PartCTotal  float64          `db:"part_c_total"`
	PartDTotal  float64          `db:"part_d_total"`
	GrandTotal  float64          `db:"grand_total"`
	TotalsStale bool             `db:"totals_stale"`
	SelfScore   float64          `db:"self_score"`
	HODScore    float64          `db:"hod_score"`
	IQACScore   float64          `db:"iqac_score"`
	FinalScore  float64          `db:"final_score"`

	RejectionReason string    `db:"rejection_reason"`
	RejectedBy      string    `db:"rejected_by"`
	RejectedAt      null.Time `db:"rejected_at"`

	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
	SubmittedAt         null.Time `db:"submitted_at"`
	HODApprovedAt       null.Time `db:"hod_approved_at"`
	IQACApprovedAt      null.Time `db:"iqac_approved_at"`
	PrincipalApprovedAt null.Time `db:"principal_approved_at"`
	LockedAt            null.Time `db:"locked_at"`
}

func (da dbAppraisal) toAppraisal() appraisal.Appraisal {
	return appraisal.Appraisal{
		ID:                  da.ID,
		RefNo:               da.RefNo,
		TeacherID:           da.TeacherID,
		CycleID:             da.CycleID,
		Status:              da.Status,
		PartBTotal:          da.PartBTotal,
		PartCTotal:          da.PartCTotal,
		PartDTotal:          da.PartDTotal,
		GrandTotal:          da.GrandTotal,
		TotalsStale:         da.TotalsStale,
		SelfScore:           da.SelfScore,
		HODScore:            da.HODScore,
		IQACScore:           da.IQACScore,
		FinalScore:          da.FinalScore,
		RejectionReason:     da.RejectionReason,
		RejectedBy:          da.RejectedBy,
		RejectedAt:          da.RejectedAt.Time,
		CreatedAt:           da.CreatedAt,
		UpdatedAt:           da.UpdatedAt,
		SubmittedAt:         da.SubmittedAt.Time,
		HODApprovedAt:       da.HODApprovedAt.Time,
		IQACApprovedAt:      da.IQACApprovedAt.Time,
		PrincipalApprovedAt: da.PrincipalApprovedAt.Time,
		LockedAt:            da.LockedAt.Time,
	}
}

// nullTime maps time.Time zero values to SQL NULL.
func nullTime(t time.Time) null.Time {
	return null.NewTime(t, !t.IsZero())
}

type appraisalRepository struct {
	db *sqlx.DB
}

var _ appraisal.Repository = (*appraisalRepository)(nil) // interface compliance check

func NewAppraisalRepository(db *sql.DB) appraisal.Repository {
	return &appraisalRepository{db: sqlx.NewDb(db, "postgres")}
}

const selectAppraisal = `
SELECT id, ref_no, teacher_id, cycle_id, status,
       part_b_total, part_c_total, part_d_total, grand_total, totals_stale,
       self_score, hod_score, iqac_score, final_score,
       rejection_reason, rejected_by, rejected_at,
       created_at, updated_at, submitted_at, hod_approved_at, iqac_approved_at, principal_approved_at, locked_at
FROM appraisals`

func (repo *appraisalRepository) CreateAppraisal(ctx context.Context, appr appraisal.Appraisal) (appraisal.Appraisal, error) {
	query := `
INSERT INTO appraisals (ref_no, teacher_id, cycle_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, query,
		appr.RefNo, appr.TeacherID, appr.CycleID, appr.Status, appr.CreatedAt, appr.UpdatedAt,
	).Scan(&appr.ID)
	return appr, errors.Wrap(err, "inserting appraisal")
}

func (repo *appraisalRepository) getAppraisal(ctx context.Context, where string, args ...interface{}) (appraisal.Appraisal, error) {
	var da dbAppraisal
	if err := repo.db.GetContext(ctx, &da, selectAppraisal+" WHERE "+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return appraisal.Appraisal{}, appraisal.ErrNotFound
		}
		return appraisal.Appraisal{}, errors.Wrap(err, "getting appraisal")
	}
	return da.toAppraisal(), nil
}

func (repo *appraisalRepository) GetAppraisal(ctx context.Context, id int) (appraisal.Appraisal, error) {
	return repo.getAppraisal(ctx, "id = $1", id)
}

func (repo *appraisalRepository) GetAppraisalByTeacherAndCycle(ctx context.Context, teacherID, cycleID int) (appraisal.Appraisal, error) {
	return repo.getAppraisal(ctx, "teacher_id = $1 AND cycle_id = $2", teacherID, cycleID)
}

func (repo *appraisalRepository) UpdateAppraisal(ctx context.Context, appr appraisal.Appraisal) (appraisal.Appraisal, error) {
	query := `
UPDATE appraisals
SET status = $1, part_b_total = $2, part_c_total = $3, part_d_total = $4, grand_total = $5, totals_stale = $6,
    self_score = $7, hod_score = $8, iqac_score = $9, final_score = $10,
    rejection_reason = $11, rejected_by = $12, rejected_at = $13,
    updated_at = $14, submitted_at = $15, hod_approved_at = $16, iqac_approved_at = $17,
    principal_approved_at = $18, locked_at = $19
WHERE id = $20`
	res, err := repo.db.ExecContext(
		ctx, query,
		appr.Status, appr.PartBTotal, appr.PartCTotal, appr.PartDTotal, appr.GrandTotal, appr.TotalsStale,
		appr.SelfScore, appr.HODScore, appr.IQACScore, appr.FinalScore,
		appr.RejectionReason, appr.RejectedBy, nullTime(appr.RejectedAt),
		appr.UpdatedAt, nullTime(appr.SubmittedAt), nullTime(appr.HODApprovedAt), nullTime(appr.IQACApprovedAt),
		nullTime(appr.PrincipalApprovedAt), nullTime(appr.LockedAt),
		appr.ID,
	)
	if err != nil {
		return appraisal.Appraisal{}, errors.Wrap(err, "updating appraisal")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appraisal.Appraisal{}, appraisal.ErrNotFound
	}
	return appr, nil
}

var appraisalOrderFields = map[string]string{
	"id":           "id",
	"grand_total":  "grand_total",
	"updated_at":   "updated_at",
	"submitted_at": "submitted_at",
}

func (repo *appraisalRepository) FilterAppraisals(ctx context.Context, filter appraisal.QueryFilter, ordering ...core.DBOrdering) ([]appraisal.Appraisal, error) {
	var conds []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.CycleID != 0 {
		conds = append(conds, "cycle_id = "+arg(filter.CycleID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.TeacherIDs != nil {
		ids := make([]int64, 0, len(filter.TeacherIDs))
		for _, id := range filter.TeacherIDs {
			ids = append(ids, int64(id))
		}
		conds = append(conds, "teacher_id = ANY("+arg(pq.Array(ids))+")")
	}

	query := selectAppraisal
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(appraisalOrderFields, ordering)

	var dbApprs []dbAppraisal
	if err := repo.db.SelectContext(ctx, &dbApprs, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering appraisals")
	}

	apprs := make([]appraisal.Appraisal, 0, len(dbApprs))
	for _, da := range dbApprs {
		apprs = append(apprs, da.toAppraisal())
	}
	return apprs, nil
}

// Sections

func (repo *appraisalRepository) GetSections(ctx context.Context, appraisalID int) (appraisal.Sections, error) {
	var sections appraisal.Sections

	rows, err := repo.db.QueryxContext(
		ctx, `SELECT section_key, payload FROM appraisal_entries WHERE appraisal_id = $1`, appraisalID)
	if err != nil {
		return sections, errors.Wrap(err, "querying sections")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key appraisal.SectionKey
		var payload []byte
		if err = rows.Scan(&key, &payload); err != nil {
			return sections, errors.Wrap(err, "scanning section")
		}
		data, err := appraisal.DecodeSection(key, payload)
		if err != nil {
			return sections, err
		}
		sections.Apply(data)
	}
	return sections, errors.Wrap(rows.Err(), "querying sections")
}

func (repo *appraisalRepository) ReplaceSection(ctx context.Context, appraisalID int, data appraisal.SectionData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "encoding section %s", data.Key())
	}

	query := `
INSERT INTO appraisal_entries (appraisal_id, section_key, payload)
VALUES ($1, $2, $3)
ON CONFLICT (appraisal_id, section_key) DO UPDATE SET payload = EXCLUDED.payload`
	_, err = repo.db.ExecContext(ctx, query, appraisalID, data.Key(), payload)
	return errors.Wrapf(err, "replacing section %s", data.Key())
}

// Reviews

func (repo *appraisalRepository) SaveReview(ctx context.Context, rec appraisal.ReviewRecord) (appraisal.ReviewRecord, error) {
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return appraisal.ReviewRecord{}, errors.Wrap(err, "encoding review scores")
	}

	query := `
INSERT INTO appraisal_reviews (appraisal_id, role, reviewer_id, scores, comments, decision, reviewed_score, reviewed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (appraisal_id, role) DO UPDATE
    SET reviewer_id = EXCLUDED.reviewer_id, scores = EXCLUDED.scores, comments = EXCLUDED.comments,
        decision = EXCLUDED.decision, reviewed_score = EXCLUDED.reviewed_score, reviewed_at = EXCLUDED.reviewed_at
RETURNING id`
	err = repo.db.QueryRowxContext(
		ctx, query,
		rec.AppraisalID, rec.Role, rec.ReviewerID, scores, rec.Comments, rec.Decision, rec.ReviewedScore, rec.ReviewedAt,
	).Scan(&rec.ID)
	return rec, errors.Wrap(err, "saving review")
}

func (repo *appraisalRepository) GetReviews(ctx context.Context, appraisalID int) ([]appraisal.ReviewRecord, error) {
	query := `
SELECT id, appraisal_id, role, reviewer_id, scores, comments, decision, reviewed_score, reviewed_at
FROM appraisal_reviews
WHERE appraisal_id = $1
ORDER BY reviewed_at`
	rows, err := repo.db.QueryxContext(ctx, query, appraisalID)
	if err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	defer func() { _ = rows.Close() }()

	recs := make([]appraisal.ReviewRecord, 0)
	for rows.Next() {
		var rec appraisal.ReviewRecord
		var scores []byte
		if err = rows.Scan(
			&rec.ID, &rec.AppraisalID, &rec.Role, &rec.ReviewerID, &scores,
			&rec.Comments, &rec.Decision, &rec.ReviewedScore, &rec.ReviewedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scanning review")
		}
		if scores != nil {
			if err = json.Unmarshal(scores, &rec.Scores); err != nil {
				return nil, errors.Wrap(err, "decoding review scores")
			}
		}
		recs = append(recs, rec)
	}
	return recs, errors.Wrap(rows.Err(), "querying reviews")
}

// Audit

func (repo *appraisalRepository) AppendAudit(ctx context.Context, entry appraisal.AuditEntry) (appraisal.AuditEntry, error) {
	var payload interface{}
	if entry.Payload != "" {
		payload = entry.Payload
	}
	query := `
INSERT INTO appraisal_audit (appraisal_id, action, actor_id, payload, timestamp)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, query,
		entry.AppraisalID, entry.Action, entry.ActorID, payload, entry.Timestamp,
	).Scan(&entry.ID)
	return entry, errors.Wrap(err, "appending audit entry")
}

func (repo *appraisalRepository) QueryAudit(ctx context.Context, appraisalID int) ([]appraisal.AuditEntry, error) {
	query := `
SELECT id, appraisal_id, action, actor_id, payload, timestamp
FROM appraisal_audit
WHERE appraisal_id = $1
ORDER BY id`
	rows, err := repo.db.QueryxContext(ctx, query, appraisalID)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit trail")
	}
	defer func() { _ = rows.Close() }()

	entries := make([]appraisal.AuditEntry, 0)
	for rows.Next() {
		var entry appraisal.AuditEntry
		var payload sql.NullString
		if err = rows.Scan(
			&entry.ID, &entry.AppraisalID, &entry.Action, &entry.ActorID, &payload, &entry.Timestamp,
		); err != nil {
			return nil, errors.Wrap(err, "scanning audit entry")
		}
		entry.Payload = payload.String
		entries = append(entries, entry)
	}
	return entries, errors.Wrap(rows.Err(), "querying audit trail")
}

// Cycles

const selectCycle = `SELECT id, name, academic_year, start_date, end_date, is_open, created_at, updated_at FROM cycles`

func (repo *appraisalRepository) CreateCycle(ctx context.Context, c appraisal.Cycle) (appraisal.Cycle, error) {
	query := `
INSERT INTO cycles (name, academic_year, start_date, end_date, is_open, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, query,
		c.Name, c.AcademicYear, c.StartDate, c.EndDate, c.IsOpen, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	return c, errors.Wrap(err, "inserting cycle")
}

func (repo *appraisalRepository) getCycle(ctx context.Context, where string, args ...interface{}) (appraisal.Cycle, error) {
	var c appraisal.Cycle
	if err := repo.db.QueryRowxContext(ctx, selectCycle+" WHERE "+where, args...).Scan(
		&c.ID, &c.Name, &c.AcademicYear, &c.StartDate, &c.EndDate, &c.IsOpen, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return appraisal.Cycle{}, appraisal.ErrCycleNotFound
		}
		return appraisal.Cycle{}, errors.Wrap(err, "getting cycle")
	}
	return c, nil
}

func (repo *appraisalRepository) GetCycle(ctx context.Context, id int) (appraisal.Cycle, error) {
	return repo.getCycle(ctx, "id = $1", id)
}

func (repo *appraisalRepository) GetOpenCycle(ctx context.Context) (appraisal.Cycle, error) {
	return repo.getCycle(ctx, "is_open ORDER BY id DESC LIMIT 1")
}

func (repo *appraisalRepository) QueryCycles(ctx context.Context) ([]appraisal.Cycle, error) {
	rows, err := repo.db.QueryxContext(ctx, selectCycle+" ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "querying cycles")
	}
	defer func() { _ = rows.Close() }()

	cycles := make([]appraisal.Cycle, 0)
	for rows.Next() {
		var c appraisal.Cycle
		if err = rows.Scan(
			&c.ID, &c.Name, &c.AcademicYear, &c.StartDate, &c.EndDate, &c.IsOpen, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scanning cycle")
		}
		cycles = append(cycles, c)
	}
	return cycles, errors.Wrap(rows.Err(), "querying cycles")
}

func (repo *appraisalRepository) UpdateCycle(ctx context.Context, c appraisal.Cycle) (appraisal.Cycle, error) {
	query := `
UPDATE cycles
SET name = $1, academic_year = $2, start_date = $3, end_date = $4, is_open = $5, updated_at = $6
WHERE id = $7`
	res, err := repo.db.ExecContext(
		ctx, query,
		c.Name, c.AcademicYear, c.StartDate, c.EndDate, c.IsOpen, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return appraisal.Cycle{}, errors.Wrap(err, "updating cycle")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appraisal.Cycle{}, appraisal.ErrCycleNotFound
	}
	return c, nil
}
