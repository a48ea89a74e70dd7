// Package domain contains the core entities of the reminder engine: tasks,
// notifications and the users that own them, together with the civil date and
// time-of-day values tasks are scheduled on. It is independent of any storage
// or delivery mechanism.
package domain
