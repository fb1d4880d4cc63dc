// Package notify provides the subscribe/unsubscribe observer used by the
// session store, transport channel, and message timeline.
package notify
