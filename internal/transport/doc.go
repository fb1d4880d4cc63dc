// Package transport keeps the client in sync with the server over a push
// channel (websocket) backed by a periodic pull.
//
// # Modes
//
//	Stopped ──Start──▶ Connecting ──dial ok──▶ Push
//	                       │                    │ drop
//	                       │ dial failed        ▼
//	                       └──────▶ PullOnly ◀── Reconnecting (MaxAttempts failed redials)
//	                                   │             │
//	                                   └─dial ok─▶ Push ◀─dial ok
//
// While the channel runs, the pull cycle always runs too: at SafetyInterval
// while push is up and at PullInterval otherwise. Each change into or out of
// Push triggers an immediate pull so nothing missed in between stays missing.
// Redials use capped exponential backoff (cenkalti/backoff); PullOnly keeps
// probing push at the capped delay.
//
// # Frames
//
// ParseEvent accepts new_message and messages_cleared. Malformed frames are
// logged at warn and dropped; pong and unknown types are logged at debug. No
// frame ever changes the mode.
//
// # Keepalive
//
// A "ping" text frame is written every KeepaliveInterval and the server
// answers with pong. The read deadline is twice the interval, so a half-open
// connection is detected as a drop.
//
// # Threading
//
// Channel methods run on an eventloop.Loop. Dial, read, and pull results are
// posted back tagged with the generation that started them; Stop bumps the
// generation so late results cannot touch a stopped channel.
package transport
