// Package access is the pure authorization evaluator. It answers whether an
// actor may perform an action on a patient chart or medical record given
// the role permission masks and the relationship graph: chart ownership,
// doctor assignment, record authorship and time-bounded share grants.
//
// Decisions are values. Callers turn a denial into an error with
// [Decision.Err], which matches [ErrForbidden].
package access
