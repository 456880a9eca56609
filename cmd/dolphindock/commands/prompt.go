package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

var errNotInteractive = errors.New("not running on a terminal")

// isInteractive reports whether stdin and stdout are both terminals.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var runForm = func(form *huh.Form) error {
	return form.WithOutput(os.Stderr).Run()
}

// pickService asks the operator to choose one of records.
func pickService(title string, records []winsvc.Record) (winsvc.Record, error) {
	if len(records) == 1 {
		return records[0], nil
	}
	if !isInteractive() {
		return winsvc.Record{}, fmt.Errorf("%w: name the service to act on", errNotInteractive)
	}

	opts := make([]huh.Option[int], len(records))
	for i, r := range records {
		label := r.Name()
		if r.DisplayName() != "" && r.DisplayName() != r.Name() {
			label = fmt.Sprintf("%s (%s)", r.Name(), r.DisplayName())
		}
		opts[i] = huh.NewOption(fmt.Sprintf("%s  [%s]", label, r.State()), i)
	}
	var idx int
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().Title(title).Options(opts...).Value(&idx),
	)))
	if err != nil {
		return winsvc.Record{}, err
	}
	return records[idx], nil
}

// pickAction asks the operator to choose one of actions.
func pickAction(title string, actions []string) (string, error) {
	if !isInteractive() {
		return "", errNotInteractive
	}
	var choice string
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title(title).Options(huh.NewOptions(actions...)...).Value(&choice),
	)))
	return choice, err
}

// confirm asks a yes/no question. assumeYes skips the prompt; without a
// terminal the question cannot be asked and the answer is an error.
func confirm(title string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !isInteractive() {
		return false, fmt.Errorf("%w: pass --yes to confirm", errNotInteractive)
	}
	var ok bool
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok),
	)))
	return ok, err
}

// promptPassword reads a new administrative password twice with echo off.
func promptPassword() (string, error) {
	if !isInteractive() {
		return "", fmt.Errorf("%w: pass --password or --generate-password", errNotInteractive)
	}
	var pw, again string
	err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Root password").EchoMode(huh.EchoModePassword).Value(&pw).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("password must not be empty")
				}
				return nil
			}),
		huh.NewInput().Title("Repeat password").EchoMode(huh.EchoModePassword).Value(&again).
			Validate(func(s string) error {
				if s != pw {
					return errors.New("passwords do not match")
				}
				return nil
			}),
	)))
	if err != nil {
		return "", err
	}
	return pw, nil
}
