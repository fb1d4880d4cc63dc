// Package eventloop provides the single-owner scheduling model used by the
// client core.
//
// Push frames, timer ticks, network results, and user actions arrive on many
// goroutines. Each of them is posted to a Loop and runs to completion before
// the next one starts, so the session, channel, and timeline state owned by
// the loop is never mutated in parallel.
//
//	loop := eventloop.New(logger)
//	go loop.Run(ctx)
//
//	loop.Post(func() { engine.ApplyEvent(ev) })
//	_ = loop.Do(ctx, func() { view = engine.Messages() })
package eventloop
