// Package service contains the notification use cases shared by the HTTP API
// and the reminder engine.
//
// NotificationService owns the rules that span the store and the delivery
// channel: a notification is persisted before it is pushed, a duplicate
// (user, reference, type) is reported as ErrAlreadyNotified rather than a
// failure, and read-state changes are only allowed on the caller's own
// notifications. Ownership checks and the mutation they guard run in one
// transaction.
package service
