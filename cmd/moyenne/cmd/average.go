package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"studytools/internal/average"
	"studytools/internal/config"
	"studytools/internal/console"
	"studytools/internal/failure"
	"studytools/internal/gradestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

const (
	defaultOver      = 20
	defaultPrecision = 1
)

type averageRequest struct {
	Identifier string
	// Period is a period code, name or index, empty to ask.
	Period string
	// Over and Precision are asked when nil.
	Over      *float64
	Precision *int
	// DefaultOver and DefaultPrecision are offered when asking.
	DefaultOver      float64
	DefaultPrecision int

	SnapshotDb    string
	SnapshotToken string
	Now           time.Time
}

var averageFlags struct {
	identifier string
	period     string
	over       float64
	precision  int
	snapshotDb string
}

var averageCmd = &cobra.Command{
	Use:   "average",
	Short: "Computes the subject averages and the overall average of a period.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}

		req := averageRequest{
			Identifier:       config.First(averageFlags.identifier, conf.Ecoledirecte.Identifier),
			Period:           averageFlags.period,
			DefaultOver:      defaultOver,
			DefaultPrecision: defaultPrecision,
			SnapshotDb:       config.First(averageFlags.snapshotDb, conf.SnapshotDb),
			SnapshotToken:    conf.SnapshotDbToken,
			Now:              time.Now(),
		}
		if conf.Average.Over > 0 {
			req.DefaultOver = conf.Average.Over
		}
		if conf.Average.Precision != nil {
			req.DefaultPrecision = *conf.Average.Precision
		}
		if cmd.Flags().Changed("over") {
			req.Over = &averageFlags.over
		}
		if cmd.Flags().Changed("precision") {
			req.Precision = &averageFlags.precision
		}

		return e.average(cmd.Context(), req)
	},
}

func init() {
	averageCmd.Flags().StringVar(&averageFlags.identifier, "identifiant", "", "EcoleDirecte login, asked when empty.")
	averageCmd.Flags().StringVar(&averageFlags.period, "period", "", "Period code, name or index, asked when empty.")
	averageCmd.Flags().Float64Var(&averageFlags.over, "over", defaultOver, "Scale the averages are expressed on, asked when not given.")
	averageCmd.Flags().IntVar(&averageFlags.precision, "precision", defaultPrecision, "Number of decimals, asked when not given.")
	averageCmd.Flags().StringVar(&averageFlags.snapshotDb, "snapshot-db", "", "Record the report into this sqlite file or libsql url.")
	rootCmd.AddCommand(averageCmd)
}

func (e env) average(ctx context.Context, req averageRequest) error {
	identifier, err := e.identifier(req.Identifier)
	if err != nil {
		return err
	}
	_, grades, err := e.fetch(ctx, identifier)
	if err != nil {
		return err
	}

	records := grades.Records()
	codes := average.Periods(records)
	if len(codes) == 0 {
		return fmt.Errorf("no grades were published: %w", average.ErrUndefinedOverall)
	}
	printPeriods(e.out, grades, records, codes)

	names := make([]string, len(codes))
	for i, code := range codes {
		names[i] = grades.PeriodName(code)
	}
	index, err := e.choosePeriod(req.Period, codes, names)
	if err != nil {
		return err
	}

	opts, err := e.options(req)
	if err != nil {
		return err
	}

	report, err := average.NewCalculator(e.tel).Compute(records, codes[index], opts)
	if err != nil {
		return err
	}
	printReport(e.out, report, names[index], opts)

	if req.SnapshotDb == "" {
		return nil
	}
	db, err := gradestore.Open(req.SnapshotDb, req.SnapshotToken)
	if err != nil {
		return err
	}
	defer db.Close()
	err = gradestore.NewStore(db).Save(ctx, gradestore.SaveRequest{
		Time:    req.Now,
		Account: identifier,
		Report:  report,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	fmt.Fprintln(e.status, "Snapshot saved.")
	return nil
}

func resolvePeriod(answer string, codes, names []string) (int, error) {
	index, err := console.ResolveChoice(answer, codes)
	if err == nil {
		return index, nil
	}
	return console.ResolveChoice(answer, names)
}

func (e env) choosePeriod(given string, codes, names []string) (int, error) {
	resolve := func(answer string) (int, error) {
		return resolvePeriod(answer, codes, names)
	}
	if given != "" {
		index, err := resolve(given)
		if err != nil {
			return 0, failure.Validation("period: %s", err.Error())
		}
		return index, nil
	}
	return e.prompter.Select("Period", average.DefaultPeriodIndex(codes), resolve)
}

func (e env) options(req averageRequest) (average.Options, error) {
	var opts average.Options

	if req.Over != nil {
		opts.Over = *req.Over
	} else {
		over, err := e.prompter.Number("Averages over", req.DefaultOver, func(v float64) error {
			return average.Options{Over: v}.Validate()
		})
		if err != nil {
			return opts, err
		}
		opts.Over = over
	}

	if req.Precision != nil {
		opts.Precision = *req.Precision
	} else {
		precision, err := e.prompter.Int("Decimals", req.DefaultPrecision, func(v int) error {
			return average.Options{Over: 1, Precision: v}.Validate()
		})
		if err != nil {
			return opts, err
		}
		opts.Precision = precision
	}

	err := opts.Validate()
	if err != nil {
		return opts, &failure.Error{Kind: failure.KindValidation, Err: err}
	}
	return opts, nil
}

func printReport(out io.Writer, report average.Report, periodName string, opts average.Options) {
	t := console.NewTable(out)
	t.SetTitle(periodName)
	t.AppendHeader(table.Row{"#", "Subject", fmt.Sprintf("Average /%g", opts.Over)})
	for i, subject := range report.Subjects {
		t.AppendRow(table.Row{i + 1, subject.Subject, subject.Rendered})
	}
	t.AppendFooter(table.Row{"", report.Overall.Subject, report.Overall.Rendered})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()

	if len(report.Unrated) > 0 {
		fmt.Fprintf(out, "Not graded yet: %s\n", strings.Join(report.Unrated, ", "))
	}
}
