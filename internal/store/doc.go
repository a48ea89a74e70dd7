// Package store defines the persistence interfaces for tasks, notifications
// and users, along with the errors every implementation maps its driver
// failures to. Implementations live under internal/platform.
package store
