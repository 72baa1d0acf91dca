// Package admission decides whether a device may register another attendee
// for a course and, when it may, persists the attendee.
//
// Device ids are supplied by the registering browser and can be spoofed or
// reset by the client. The per-device quota is an anti-duplicate convenience
// for walk-in registration, not a security control.
//
// The count-then-insert sequence is a critical section keyed on
// (courseId, deviceId). Controller serializes it in-process with a keyed
// mutex; Store implementations make the unit atomic against course deletion
// and may add their own cross-process lock (the PostgreSQL store takes a
// transaction-scoped advisory lock on the same key).
package admission
