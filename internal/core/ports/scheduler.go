package ports

import "time"

type SchedulerService interface {
	Start()
	Stop()
	// ScheduleResync runs task at the given interval until Stop.
	ScheduleResync(interval time.Duration, task func()) error
}
