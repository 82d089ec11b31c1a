package dummydb

import (
	"sync"

	"github.com/trezcool/tathmini/core/appraisal"
	"github.com/trezcool/tathmini/core/user"
)

type (
	DB struct {
		user      *userTable
		appraisal *appraisalTables
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
	}

	appraisalTables struct {
		sync.RWMutex
		appraisals map[int]*appraisal.Appraisal
		sections   map[int]map[appraisal.SectionKey]appraisal.SectionData // by appraisal ID
		reviews    map[int]map[appraisal.ReviewerRole]*appraisal.ReviewRecord
		audit      map[int][]appraisal.AuditEntry
		cycles     map[int]*appraisal.Cycle
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		appraisal: &appraisalTables{
			appraisals: make(map[int]*appraisal.Appraisal),
			sections:   make(map[int]map[appraisal.SectionKey]appraisal.SectionData),
			reviews:    make(map[int]map[appraisal.ReviewerRole]*appraisal.ReviewRecord),
			audit:      make(map[int][]appraisal.AuditEntry),
			cycles:     make(map[int]*appraisal.Cycle),
		},
	}
	return db, nil
}
