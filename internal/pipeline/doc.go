// Package pipeline runs a value through an ordered list of steps.
//
// The crawler processes every frontier URL as a pipeline: the politeness
// gate, the fetch, redirect handling, document detection, extraction, the
// language decision and persistence are separate steps over one job value.
// A step that settles the job early (a robots.txt refusal, a filtered page)
// returns ErrStop and the remaining steps are skipped.
//
// Steps own their cancellation. Execute does not check the context between
// steps, so a step that must run to completion once an earlier step has
// started (persisting a fetched page during shutdown) is never cut short.
package pipeline
