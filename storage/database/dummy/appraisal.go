package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/appraisal"
)

var (
	appraisalPKCount int
	cyclePKCount     int
	reviewPKCount    int
	auditPKCount     int
)

type appraisalRepository struct {
	db *appraisalTables
}

var _ appraisal.Repository = (*appraisalRepository)(nil) // interface compliance check

func NewAppraisalRepository(db *DB) appraisal.Repository {
	return &appraisalRepository{db: db.appraisal}
}

func (repo *appraisalRepository) query() []appraisal.Appraisal {
	apprs := make([]appraisal.Appraisal, 0, len(repo.db.appraisals))
	for _, a := range repo.db.appraisals {
		apprs = append(apprs, *a)
	}
	return apprs
}

func (repo *appraisalRepository) CreateAppraisal(_ context.Context, appr appraisal.Appraisal) (appraisal.Appraisal, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	appraisalPKCount++
	appr.ID = appraisalPKCount
	repo.db.appraisals[appr.ID] = &appr
	return appr, nil
}

func (repo *appraisalRepository) GetAppraisal(_ context.Context, id int) (appraisal.Appraisal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if appr, ok := repo.db.appraisals[id]; ok {
		return *appr, nil
	}
	return appraisal.Appraisal{}, appraisal.ErrNotFound
}

func (repo *appraisalRepository) GetAppraisalByTeacherAndCycle(_ context.Context, teacherID, cycleID int) (appraisal.Appraisal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, appr := range repo.db.appraisals {
		if appr.TeacherID == teacherID && appr.CycleID == cycleID {
			return *appr, nil
		}
	}
	return appraisal.Appraisal{}, appraisal.ErrNotFound
}

func (repo *appraisalRepository) UpdateAppraisal(_ context.Context, appr appraisal.Appraisal) (appraisal.Appraisal, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.appraisals[appr.ID]; !ok {
		return appraisal.Appraisal{}, appraisal.ErrNotFound
	}
	repo.db.appraisals[appr.ID] = &appr
	return appr, nil
}

func (repo *appraisalRepository) FilterAppraisals(_ context.Context, filter appraisal.QueryFilter, ordering ...core.DBOrdering) ([]appraisal.Appraisal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	apprs := repo.query()

	if filter.CycleID != 0 {
		var filtered []appraisal.Appraisal
		for _, a := range apprs {
			if a.CycleID == filter.CycleID {
				filtered = append(filtered, a)
			}
		}
		apprs = filtered
	}

	if filter.Status != "" {
		var filtered []appraisal.Appraisal
		for _, a := range apprs {
			if a.Status == filter.Status {
				filtered = append(filtered, a)
			}
		}
		apprs = filtered
	}

	if filter.TeacherIDs != nil {
		var filtered []appraisal.Appraisal
		for _, a := range apprs {
			for _, id := range filter.TeacherIDs {
				if a.TeacherID == id {
					filtered = append(filtered, a)
					break
				}
			}
		}
		apprs = filtered
	}

	sortAppraisals(apprs, ordering...)
	return apprs, nil
}

func (repo *appraisalRepository) GetSections(_ context.Context, appraisalID int) (appraisal.Sections, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sections appraisal.Sections
	for _, data := range repo.db.sections[appraisalID] {
		sections.Apply(data)
	}
	return sections, nil
}

func (repo *appraisalRepository) ReplaceSection(_ context.Context, appraisalID int, data appraisal.SectionData) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	byKey, ok := repo.db.sections[appraisalID]
	if !ok {
		byKey = make(map[appraisal.SectionKey]appraisal.SectionData)
		repo.db.sections[appraisalID] = byKey
	}
	byKey[data.Key()] = data
	return nil
}

func (repo *appraisalRepository) SaveReview(_ context.Context, rec appraisal.ReviewRecord) (appraisal.ReviewRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	byRole, ok := repo.db.reviews[rec.AppraisalID]
	if !ok {
		byRole = make(map[appraisal.ReviewerRole]*appraisal.ReviewRecord)
		repo.db.reviews[rec.AppraisalID] = byRole
	}
	if prev, ok := byRole[rec.Role]; ok {
		rec.ID = prev.ID
	} else {
		reviewPKCount++
		rec.ID = reviewPKCount
	}
	byRole[rec.Role] = &rec
	return rec, nil
}

func (repo *appraisalRepository) GetReviews(_ context.Context, appraisalID int) ([]appraisal.ReviewRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]appraisal.ReviewRecord, 0, len(repo.db.reviews[appraisalID]))
	for _, rec := range repo.db.reviews[appraisalID] {
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ReviewedAt.Before(recs[j].ReviewedAt) })
	return recs, nil
}

func (repo *appraisalRepository) AppendAudit(_ context.Context, entry appraisal.AuditEntry) (appraisal.AuditEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	auditPKCount++
	entry.ID = auditPKCount
	repo.db.audit[entry.AppraisalID] = append(repo.db.audit[entry.AppraisalID], entry)
	return entry, nil
}

func (repo *appraisalRepository) QueryAudit(_ context.Context, appraisalID int) ([]appraisal.AuditEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]appraisal.AuditEntry, len(repo.db.audit[appraisalID]))
	copy(entries, repo.db.audit[appraisalID])
	return entries, nil
}

func (repo *appraisalRepository) CreateCycle(_ context.Context, c appraisal.Cycle) (appraisal.Cycle, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cyclePKCount++
	c.ID = cyclePKCount
	repo.db.cycles[c.ID] = &c
	return c, nil
}

func (repo *appraisalRepository) GetCycle(_ context.Context, id int) (appraisal.Cycle, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.cycles[id]; ok {
		return *c, nil
	}
	return appraisal.Cycle{}, appraisal.ErrCycleNotFound
}

func (repo *appraisalRepository) GetOpenCycle(_ context.Context) (appraisal.Cycle, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.cycles {
		if c.IsOpen {
			return *c, nil
		}
	}
	return appraisal.Cycle{}, appraisal.ErrCycleNotFound
}

func (repo *appraisalRepository) QueryCycles(_ context.Context) ([]appraisal.Cycle, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cycles := make([]appraisal.Cycle, 0, len(repo.db.cycles))
	for _, c := range repo.db.cycles {
		cycles = append(cycles, *c)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].ID < cycles[j].ID })
	return cycles, nil
}

func (repo *appraisalRepository) UpdateCycle(_ context.Context, c appraisal.Cycle) (appraisal.Cycle, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.cycles[c.ID]; !ok {
		return appraisal.Cycle{}, appraisal.ErrCycleNotFound
	}
	repo.db.cycles[c.ID] = &c
	return c, nil
}

func sortAppraisals(apprs []appraisal.Appraisal, ordering ...core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(apprs, func(i, j int) bool { return apprs[i].ID < apprs[j].ID })
		return
	}
	ord := ordering[0]
	sort.Slice(apprs, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "grand_total":
			less = apprs[i].GrandTotal < apprs[j].GrandTotal
		case "updated_at":
			less = apprs[i].UpdatedAt.Before(apprs[j].UpdatedAt)
		case "submitted_at":
			less = apprs[i].SubmittedAt.Before(apprs[j].SubmittedAt)
		default:
			less = apprs[i].ID < apprs[j].ID
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
}
