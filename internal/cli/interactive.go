package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/sirupsen/logrus"

	"github.com/dyike/StockAnalyzer/internal/analyzer"
)

var errExit = errors.New("exit")

// runInteractiveMode keeps one session alive across prompts: the entered
// company and the result box survive between Search and Predict.
func runInteractiveMode(ctx context.Context, a *app) error {
	if !a.cfg.Debug {
		// Keep retry warnings from tearing through the prompts.
		a.log.SetLevel(logrus.ErrorLevel)
	}

	ClearScreen(a.out)
	DisplayWelcomeBanner(a.out)

	an, err := a.newAnalyzer(a.cfg)
	if err != nil {
		return err
	}

	disp := analyzer.NewDispatcher(ctx)
	defer disp.Close()

	session := analyzer.NewSession(newPromptAlerter(a.err))

	for {
		entry, err := PromptForCompany(session.Entry)
		if err != nil {
			return quitOn(err)
		}
		session.Entry = entry

		for {
			act, ok, err := PromptForAction(session.Entry)
			if err != nil {
				return quitOn(err)
			}
			if !ok {
				break
			}

			if err := a.runAction(ctx, disp, an, session, act); err != nil {
				return err
			}
		}
	}
}

// runAction runs one button press. Ctrl-C cancels the request but not the
// session.
func (a *app) runAction(ctx context.Context, disp *analyzer.Dispatcher, an *analyzer.Analyzer, session *analyzer.Session, act action) error {
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	DisplayWorking(a.out, "Working on "+session.Entry+"...")
	out, err := disp.Run(runCtx, a.job(an, act, session.Entry))
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.Canceled) {
			DisplayInfo(a.out, "Request cancelled.")
			return nil
		}
		return err
	}

	session.Apply(out)
	if session.Box.Text() == "" {
		return nil
	}
	return session.Box.Print(a.out)
}

func quitOn(err error) error {
	if errors.Is(err, errExit) || errors.Is(err, terminal.InterruptErr) {
		return nil
	}
	return err
}
