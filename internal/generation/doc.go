// Package generation defines the boundary between the reminder engine and an
// external text-generation service. The engine asks a Generator for a short
// human-friendly message and falls back to built-in text on any error, so a
// Generator is never on the critical path of persisting a notification.
package generation
