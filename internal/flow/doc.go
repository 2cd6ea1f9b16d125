// Package flow defines the contract between the processing scheduler and the
// code that actually transforms a library file.
//
// The scheduler resolves a Definition from the Catalog and hands a Job to an
// Executor together with a per-file log sink. CommandExecutor is the bundled
// implementation: it runs an external command and maps its exit status to a
// Result. Returning ErrFlowNotFound tells the scheduler the definition could
// not be resolved at dispatch time.
package flow
