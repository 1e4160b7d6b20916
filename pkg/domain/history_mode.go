package domain

import "fmt"

// HistoryMode selects who owns conversation history.
type HistoryMode string

const (
	// HistoryModeStateless expects the caller to resubmit the full history every turn.
	HistoryModeStateless HistoryMode = "stateless"
	// HistoryModeSession retains history on the server, keyed by session id.
	HistoryModeSession HistoryMode = "session"
)

const DefaultSessionID = "default"

func (m *HistoryMode) UnmarshalText(text []byte) error {
	switch mode := HistoryMode(text); mode {
	case HistoryModeStateless, HistoryModeSession:
		*m = mode
		return nil
	default:
		return fmt.Errorf("unknown history mode %q", text)
	}
}
