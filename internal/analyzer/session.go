package analyzer

import (
	"github.com/dyike/StockAnalyzer/internal/dataflows"
	"github.com/dyike/StockAnalyzer/internal/display"
)

// Mode says how an Outcome touches the result box.
type Mode int

const (
	ModeNone Mode = iota
	ModeReplace
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	default:
		return "none"
	}
}

// Outcome is what a details or predict run asks the UI to do.
type Outcome struct {
	Symbol string
	Mode   Mode
	Text   string
	Alert  string
}

// Session is the state shared between runs: the entry text and the result box.
type Session struct {
	Entry   string
	Box     *display.ResultBox
	Alerter display.Alerter
}

func NewSession(alerter display.Alerter) *Session {
	return &Session{
		Entry:   dataflows.CompanyPlaceholder,
		Box:     display.NewResultBox(),
		Alerter: alerter,
	}
}

// Apply writes o to the result box and raises its alert. It must only be
// called from the goroutine that owns the session.
func (s *Session) Apply(o Outcome) {
	switch o.Mode {
	case ModeReplace:
		s.Box.Replace(o.Text)
	case ModeAppend:
		s.Box.Append(o.Text)
	}
	if o.Alert != "" && s.Alerter != nil {
		s.Alerter.Alert(o.Alert)
	}
}
