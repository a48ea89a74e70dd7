// Package logger configures the application's structured logger and carries
// request- or job-scoped loggers through context.Context.
package logger
