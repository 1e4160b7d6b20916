package domain

// Summary is the outcome of a summarization attempt. The zero value is unavailable.
type Summary struct {
	text      string
	available bool
}

func SummaryOf(text string) Summary {
	return Summary{text: text, available: text != ""}
}

func SummaryUnavailable() Summary {
	return Summary{}
}

func (s Summary) Available() bool { return s.available }

func (s Summary) Text() string { return s.text }
