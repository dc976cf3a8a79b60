// Package event provides the synchronous pub-sub bus over which a crewpm run
// reports its progress.
//
// The orchestrator publishes; presenters (console, TUI) and the metrics
// collector subscribe. Handlers run on the publisher's goroutine, so events
// arrive in exactly the order the run produced them.
//
// # Event Categories
//
// Run lifecycle: [RunStartedEvent], [RunCompletedEvent], [RunFailedEvent].
//
// Preparation: [ContextElaboratedEvent], [PlanGeneratedEvent],
// [PlanRejectedEvent] (a warning, not an error), [TeamFormedEvent].
//
// Phases: [PhaseStartedEvent], [ArtifactProducedEvent],
// [ReviewCompletedEvent], [VerdictRenderedEvent], [PhaseRetryingEvent],
// [PhaseAcceptedEvent], and finally [SynthesisCompletedEvent].
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypePhaseAccepted, func(e event.Event) {
//	    accepted := e.(event.PhaseAcceptedEvent)
//	    fmt.Printf("%d/%d %s accepted\n", accepted.Index, accepted.Total, accepted.Name)
//	})
//	bus.SubscribeAll(func(e event.Event) { logger.Debug("event", "type", e.EventType()) })
package event
