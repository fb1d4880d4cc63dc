// ABOUTME: Channel modes and the observable ChannelState snapshot
// ABOUTME: Stale reports when neither push nor a recent pull vouches for the view

package transport

import (
	"fmt"
	"time"
)

// Mode is the push channel's state.
type Mode int

const (
	Stopped Mode = iota
	Connecting
	Push
	Reconnecting
	PullOnly
)

func (m Mode) String() string {
	switch m {
	case Stopped:
		return "stopped"
	case Connecting:
		return "connecting"
	case Push:
		return "push"
	case Reconnecting:
		return "reconnecting"
	case PullOnly:
		return "pull-only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ChannelState is a snapshot of the channel.
type ChannelState struct {
	Mode         Mode
	LastSyncedAt time.Time // last successful pull or pushed event
	DownSince    time.Time // when the channel started or last left Push; zero in Push and Stopped
	Attempts     int       // consecutive failed dials since push was last up
}

// Stale reports whether the view may be out of date: push is not up and
// neither a pull nor the start of the outage lies within threshold. A
// stopped channel is never stale.
func (s ChannelState) Stale(now time.Time, threshold time.Duration) bool {
	if s.Mode == Push || s.Mode == Stopped {
		return false
	}
	ref := s.LastSyncedAt
	if s.DownSince.After(ref) {
		ref = s.DownSince
	}
	if ref.IsZero() {
		return true
	}
	return now.Sub(ref) > threshold
}
