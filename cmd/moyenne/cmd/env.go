package cmd

import (
	"context"
	"fmt"
	"io"

	"studytools/internal/average"
	"studytools/internal/components/telemetry"
	"studytools/internal/console"
	"studytools/internal/ecoledirecte"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type gradeSource interface {
	Login(ctx context.Context, identifier, secret string) (ecoledirecte.Session, error)
	Grades(ctx context.Context, session *ecoledirecte.Session) (ecoledirecte.Grades, error)
}

// env holds what a command talks to, tests replace all of it.
type env struct {
	prompter *console.Prompter
	// out receives the results, status receives spinners
	out    io.Writer
	status io.Writer
	grades gradeSource
	tel    telemetry.API
}

func (e env) identifier(given string) (string, error) {
	if given != "" {
		return given, nil
	}
	return e.prompter.Line("Identifier:")
}

// fetch logs in and downloads every grade of the account.
func (e env) fetch(ctx context.Context, identifier string) (ecoledirecte.Session, ecoledirecte.Grades, error) {
	secret, err := e.prompter.Password("Password:")
	if err != nil {
		return ecoledirecte.Session{}, ecoledirecte.Grades{}, err
	}

	spinner := console.StartSpinner(e.status, text.FgCyan, "Logging in ...")
	session, err := e.grades.Login(ctx, identifier, secret)
	if err != nil {
		spinner.Fail("Login failed")
		return ecoledirecte.Session{}, ecoledirecte.Grades{}, err
	}
	spinner.Succeed(fmt.Sprintf("Logged in as %s %s", session.Account.FirstName, session.Account.LastName))

	spinner = console.StartSpinner(e.status, text.FgCyan, "Fetching grades ...")
	grades, err := e.grades.Grades(ctx, &session)
	if err != nil {
		spinner.Fail("Could not fetch grades")
		return ecoledirecte.Session{}, ecoledirecte.Grades{}, err
	}
	spinner.Succeed(fmt.Sprintf("Fetched %d grades", len(grades.Grades)))

	return session, grades, nil
}

func printPeriods(out io.Writer, grades ecoledirecte.Grades, records []average.Record, codes []string) {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Period]++
	}

	t := console.NewTable(out)
	t.AppendHeader(table.Row{"#", "Code", "Period", "Grades"})
	for i, code := range codes {
		t.AppendRow(table.Row{i, code, grades.PeriodName(code), counts[code]})
	}
	t.Render()
}
