// Package lifecycle manages named, lazily constructed, expensively resident
// components: local models, external tool handles, client sessions. A
// collaborator registers a component with a loader (and optionally an
// unloader), then calls Acquire whenever it needs the instance. The first
// Acquire constructs it, later ones return the cached instance, and an idle
// timer scheduled via ScheduleEviction releases it again when unused.
//
// The manager guarantees that concurrent Acquire calls for the same name run
// the loader at most once, that no caller ever observes a half-constructed
// instance, and that a slow load of one component never blocks operations on
// another. Instances are owned exclusively by the manager; callers must not
// retain them beyond the scope of a single operation.
package lifecycle
