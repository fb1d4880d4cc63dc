// Package dedupe provides a time-bounded key set. The timeline uses it to
// remember ids removed by a messages_cleared event so that a pull started
// before the clear cannot bring them back.
package dedupe
