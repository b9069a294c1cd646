package cli

import (
	"io"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/StockAnalyzer/internal/display"
)

// Menu choices offered after a company is entered.
const (
	choiceDetails = "🔍 Search"
	choicePredict = "📈 Predict Future Price"
	choiceCompany = "✏️  Change company"
	choiceExit    = "🚪 Exit"
)

// PromptForCompany asks for a company name, pre-filled with the current entry.
// The text is returned as typed; validation happens on submit.
func PromptForCompany(current string, opts ...survey.AskOpt) (string, error) {
	var name string
	if err := survey.AskOne(companyPrompt(current), &name, opts...); err != nil {
		return "", err
	}
	return name, nil
}

func companyPrompt(current string) *survey.Input {
	return &survey.Input{
		Message: "Company name:",
		Help:    "A listed company name such as Reliance Industries. Spaces are replaced with hyphens before lookup.",
		Default: current,
	}
}

// PromptForAction asks which button to press for the entered company.
func PromptForAction(company string, opts ...survey.AskOpt) (action, bool, error) {
	var choice string
	if err := survey.AskOne(actionPrompt(company), &choice, opts...); err != nil {
		return 0, false, err
	}
	return actionFor(choice)
}

func actionPrompt(company string) *survey.Select {
	return &survey.Select{
		Message: "What next for " + company + "?",
		Options: []string{choiceDetails, choicePredict, choiceCompany, choiceExit},
		Default: choiceDetails,
	}
}

// actionFor maps a menu choice to the action to run. ok is false when the
// user wants to enter another company; errExit ends the session.
func actionFor(choice string) (action, bool, error) {
	switch choice {
	case choiceDetails:
		return actionDetails, true, nil
	case choicePredict:
		return actionPredict, true, nil
	case choiceCompany:
		return 0, false, nil
	default:
		return 0, false, errExit
	}
}

// promptAlerter shows an alert and waits for the user to dismiss it, the
// way a modal dialog would.
type promptAlerter struct {
	print *display.WriterAlerter
	opts  []survey.AskOpt
}

func newPromptAlerter(w io.Writer, opts ...survey.AskOpt) *promptAlerter {
	return &promptAlerter{print: display.NewWriterAlerter(w), opts: opts}
}

func (p *promptAlerter) Alert(message string) {
	p.print.Alert(message)
	var ok string
	_ = survey.AskOne(&survey.Select{
		Message: "Alert",
		Options: []string{"OK"},
	}, &ok, p.opts...)
}
