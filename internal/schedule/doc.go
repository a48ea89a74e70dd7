// Package schedule runs named jobs on wall-clock schedules.
//
// Each registered job gets its own goroutine that sleeps until the next
// instant its Schedule produces, runs the job synchronously and repeats, so
// a job never overlaps itself while different jobs run concurrently. Trigger
// runs a job out of band and shares the same per-job guard.
package schedule
