// Package reminder implements the periodic jobs that turn task and user state
// into notifications: due-task reminders, overdue alerts, the morning and
// evening digests, and the weekly retention sweep.
//
// Each job is a method on Engine that performs one invocation and reports
// what it did. Engine.Jobs exposes them as schedule.Job values so a
// schedule.Scheduler can drive them. A failure for one task or user is logged
// and the invocation moves on; only a failure to load the candidates aborts
// it.
package reminder
