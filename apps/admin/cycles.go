package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/tathmini/core/appraisal"
)

const cycleDateLayout = "2006-01-02"

// addCycle opens a new appraisal cycle. Only one cycle may be open at a time.
func (cli *commandLine) addCycle(name, year, start, end string) error {
	ctx := context.Background()

	startDate, err := time.Parse(cycleDateLayout, start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", start)
	}
	endDate, err := time.Parse(cycleDateLayout, end)
	if err != nil {
		return fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", end)
	}
	if !endDate.After(startDate) {
		return fmt.Errorf("end date %s must be after start date %s", end, start)
	}

	if open, err := cli.apprRepo.GetOpenCycle(ctx); err == nil {
		return fmt.Errorf("cycle %q is still open; close it first", open.Name)
	} else if err != appraisal.ErrCycleNotFound {
		return err
	}

	now := time.Now().UTC()
	cycle, err := cli.apprRepo.CreateCycle(ctx, appraisal.Cycle{
		Name:         name,
		AcademicYear: year,
		StartDate:    startDate,
		EndDate:      endDate,
		IsOpen:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return err
	}
	logger.Printf("cycle %q (%d) opened", cycle.Name, cycle.ID)
	return nil
}

func (cli *commandLine) closeCycle() error {
	ctx := context.Background()

	cycle, err := cli.apprRepo.GetOpenCycle(ctx)
	if err != nil {
		return err
	}
	cycle.IsOpen = false
	cycle.UpdatedAt = time.Now().UTC()
	if _, err = cli.apprRepo.UpdateCycle(ctx, cycle); err != nil {
		return err
	}
	logger.Printf("cycle %q (%d) closed", cycle.Name, cycle.ID)
	return nil
}
