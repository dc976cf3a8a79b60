// Package team forms the producer/reviewer agent pairs that staff each job
// label of a plan.
//
// A [Team] owns every phase whose job label matches its own. Its [Agent]
// descriptors are immutable values: a role label, a goal and a generated
// persona. [Builder] creates one team per job label, optionally building
// several concurrently through a bounded goroutine pool; the first failure
// cancels the remaining builds and no partial team is ever returned.
package team
