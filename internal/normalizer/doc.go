// Package normalizer turns AmoCRM leads into kanban bookings.
//
// Every function here is pure: no I/O, no shared state, and no input shape
// makes it fail. Unparseable values are replaced by defaults.
package normalizer
