package scheduler

import "testing"

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("*/15 * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron expr", func() {}); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestDefaultRetryScheduleParses(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob(DefaultRetrySchedule, func() {}); err != nil {
		t.Errorf("Default retry schedule must parse, got %v", err)
	}
}
