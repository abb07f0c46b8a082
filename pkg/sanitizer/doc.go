// Package sanitizer normalizes free-text values typed by managers into CRM
// fields before they are sent to the kanban backend.
//
// All functions are idempotent and never fail: input that cannot be
// normalized is returned trimmed rather than dropped.
package sanitizer
