// Package timeline implements the message sync engine.
//
// # Overview
//
// The Engine owns the canonical chat view. Three sources feed it:
//
//   - ApplySnapshot: the periodic pull of the server's recent messages
//   - ApplyEvent: new_message and messages_cleared frames from the push channel
//   - SendLocal: optimistic entries created before the server answers
//
// The view is always ordered by (CreatedAt, Key) and holds at most one
// Confirmed entry per server id, whatever order push and pull report facts in.
//
// # Origins
//
// Every entry is tagged Confirmed, Pending, or Failed. A Pending entry becomes
// Confirmed when the send is acknowledged, or Failed when it is rejected.
// Failed entries stay visible until Retry or Discard; nothing is re-sent
// automatically.
//
// # Threading
//
// The Engine is owned by an eventloop.Loop. Send results are posted back to
// the loop, and Close makes any result still in flight a no-op.
package timeline
