package domain

// FragmentStream is an upstream sequence of content fragments.
// Recv returns io.EOF once the upstream finished normally.
type FragmentStream interface {
	Recv() (string, error)
	Close()
}

type RelayState int

const (
	RelayIdle RelayState = iota
	RelayStreaming
	RelayDone
	RelayFailed
)

func (s RelayState) String() string {
	switch s {
	case RelayIdle:
		return "idle"
	case RelayStreaming:
		return "streaming"
	case RelayDone:
		return "done"
	case RelayFailed:
		return "failed"
	}
	return "unknown"
}

const ErrorFragmentPrefix = "Error: "
