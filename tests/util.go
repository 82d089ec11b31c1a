package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/tathmini/core/appraisal"
	"github.com/trezcool/tathmini/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, department string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Username:   uname,
		Email:      email,
		Department: department,
		Roles:      roles,
		IsActive:   isActive,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCycle(t *testing.T, repo appraisal.Repository, name, year string, isOpen bool) appraisal.Cycle {
	now := time.Now().UTC()
	cycle, err := repo.CreateCycle(context.Background(), appraisal.Cycle{
		Name:         name,
		AcademicYear: year,
		StartDate:    now.AddDate(0, -6, 0),
		EndDate:      now.AddDate(0, 6, 0),
		IsOpen:       isOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("createCycle() failed: %v", err)
	}
	return cycle
}
