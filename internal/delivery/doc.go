// Package delivery pushes persisted notifications to connected clients.
//
// Delivery is best-effort: a Channel never reports failure to its caller.
// The durable notification row is the source of truth and a failed or
// dropped push is only logged. The Dispatcher decouples the reminder jobs
// from transport latency with a bounded queue drained by a small pool of
// workers; when no transport is configured the Noop channel is used.
package delivery
