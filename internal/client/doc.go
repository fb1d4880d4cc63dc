// Package client wires the anonchat components into one running client.
//
// # Overview
//
// A Client owns a single event loop. The session store, the push/pull
// transport channel, and the message timeline all live on that loop, so
// none of them needs locking. Network work runs on helper goroutines and
// posts its result back to the loop.
//
// Control flow:
//
//   - Run restores any persisted credential. The session stays Verifying
//     until the server answers.
//   - When the session becomes Authenticated, a fresh timeline is created
//     and the transport channel starts. Push events and pull snapshots flow
//     into the timeline.
//   - When the session leaves Authenticated, the channel stops, the
//     timeline is closed, and subscribers see an empty view.
//   - A 401 from a pull or a send ends the session.
//
// # Usage
//
//	c, err := client.New(client.Options{Config: cfg, Store: credentials, Logger: logger})
//	go c.Run(ctx)
//
//	state, _ := c.AwaitSession(ctx)
//	if state.Status != session.Authenticated {
//		_, err = c.Login(ctx, email, password)
//	}
//	localID, err := c.Send(ctx, "hello")
//
// Subscriber callbacks (OnSession, OnChannel, OnMessages) run on the loop.
// They must return quickly and must not call Client methods directly.
package client
