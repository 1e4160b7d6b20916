package domain

const (
	HealthStatusOnline  = "online"
	HealthStatusOffline = "offline"
)

type Health struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func Online() Health {
	return Health{Status: HealthStatusOnline}
}

func Offline(err error) Health {
	return Health{Status: HealthStatusOffline, Error: err.Error()}
}

func (h Health) IsOnline() bool { return h.Status == HealthStatusOnline }
