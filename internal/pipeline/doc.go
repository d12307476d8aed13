// Package pipeline executes stage plans for media files.
//
// The Executor runs each pending stage of a staging.Plan by calling the
// matching producer, writes caption artifacts atomically, and stops at the
// first producer failure so artifacts written by earlier stages remain
// reusable. The Runner wraps one invocation per media file: it takes the
// per-media lock, stamps a run id into the context, plans, and executes.
package pipeline
