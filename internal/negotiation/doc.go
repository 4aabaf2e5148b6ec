// Package negotiation implements the two-agent negotiation protocol engine.
//
// Two agents that can only exchange asynchronous messages agree on which of
// them performs a task, and under which conditions, without a coordinator.
// An [Engine] runs one [Session] at a time:
//
//  1. Dice arbitration. Each side draws a number in [1,100000] and
//     broadcasts it. The first dice seen from another agent binds that agent
//     as the peer. The higher roll opens as sender; a tie makes both sides
//     receivers (no re-roll). If no peer dice arrives within the dice timeout
//     the agent assumes it is alone and wins.
//  2. Alternating offers. The sender proposes the next offer from its
//     [OfferSupply] and waits for a decision; the receiver scores the offer
//     against its reference (the supply's best offer) with a [Scorer] and
//     accepts any strictly positive utility. Rejection swaps roles.
//  3. Withdrawal. A sender that runs out of offers sends quit once. When
//     each side has both sent and observed a quit, the session ends with no
//     agreement.
//
// Every wait is bounded; a silent peer always resolves to [OutcomeWinner]
// for the waiting side.
//
// # Concurrency
//
// [Engine.Run] executes the state loop on the caller's goroutine.
// [Engine.OnMessage] and [Engine.HandleRaw] are called from transport
// goroutines. Inbound payloads travel through small buffered channels, one
// per signal category, so a signal raised before the driver waits stays
// pending until consumed.
//
// # Usage
//
//	eng := negotiation.NewEngine(sender, offers, scorer,
//	    negotiation.WithLogger(logger),
//	    negotiation.WithBus(bus),
//	)
//	cancel, _ := tr.Subscribe(ctx, eng.HandleRaw)
//	defer cancel()
//
//	res := eng.Run(ctx)
//	fmt.Println(res.Outcome, res.Rounds)
package negotiation
