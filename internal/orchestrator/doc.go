// Package orchestrator runs a crewpm request end to end.
//
// A run threads one [RunState] through five stages:
//
//  1. The PM team is formed and the [Elaborator] interprets the request.
//  2. The [PlanGenerator] asks the PM for a phase plan until one passes the
//     line-count gate and parses into unique phases.
//  3. One producer/reviewer team is built per job label of the plan.
//  4. The phase executor drives every phase, in plan order, through the
//     bounded produce -> review -> judge cycle.
//  5. The [Synthesizer] merges the accepted artifacts into the deliverable.
//
// Progress is published on an event bus; artifacts and a manifest are
// written to the run's session so that an interrupted run can be resumed
// with [Orchestrator.Resume].
package orchestrator
