// Package gradestore keeps a history of computed averages in sqlite or in a
// remote libsql database.
package gradestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"studytools/internal/average"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var tracer = otel.Tracer("studytools/gradestore")

// Open opens the database at target and creates the schema if needed.
// Targets with a scheme (libsql://, https://, ...) are remote libsql databases,
// anything else is a sqlite file path or ":memory:".
func Open(target, authToken string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	if strings.Contains(target, "://") {
		dsn := target
		if authToken != "" {
			values := url.Values{}
			values.Add("authToken", authToken)
			dsn += "?" + values.Encode()
		}
		db, err = sql.Open("libsql", dsn)
	} else {
		if target == "" {
			return nil, fmt.Errorf("a database path was not specified")
		}
		db, err = sql.Open("sqlite", target)
		if err != nil {
			return nil, err
		}
		// every connection to :memory: is a different database
		db.SetMaxOpenConns(1)
	}
	if err != nil {
		return nil, err
	}

	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err = db.Exec(stmt)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return db, nil
}

type Store struct {
	db *sql.DB
	// Location decides which snapshots belong to the same day.
	Location *time.Location
}

func NewStore(database *sql.DB) Store {
	return Store{db: database, Location: time.Local}
}

type SaveRequest struct {
	Time    time.Time
	Account string
	Report  average.Report
}

// Save records every ranked subject and the overall average of the report.
// Snapshots saved earlier the same day for the same account and period are
// replaced, so running the tool several times a day keeps one point per day.
func (s Store) Save(ctx context.Context, req SaveRequest) error {
	ctx, span := tracer.Start(ctx, "Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("account", req.Account),
		attribute.String("period", req.Report.Period),
	)

	err := s.save(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s Store) save(ctx context.Context, req SaveRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t := req.Time.In(s.Location)
	startOfDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.Location).Unix()
	startOfNextDay := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, s.Location).Unix()

	_, err = tx.ExecContext(
		ctx,
		`delete from grade_snapshot
		where time >= ? and time < ?
		and account_subject_id in (
			select id from account_subject where account = ? and period = ?
		)`,
		startOfDay, startOfNextDay, req.Account, req.Report.Period,
	)
	if err != nil {
		return err
	}

	for i, entry := range req.Report.Entries() {
		// Entries ends with the overall average
		overall := 0
		if i == len(req.Report.Subjects) {
			overall = 1
		}

		_, err = tx.ExecContext(
			ctx,
			`insert or ignore into account_subject(account, period, subject, overall) values (?, ?, ?, ?)`,
			req.Account, req.Report.Period, entry.Subject, overall,
		)
		if err != nil {
			return err
		}

		var id int64
		err = tx.QueryRowContext(
			ctx,
			`select id from account_subject where account = ? and period = ? and subject = ? and overall = ?`,
			req.Account, req.Report.Period, entry.Subject, overall,
		).Scan(&id)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(
			ctx,
			`insert into grade_snapshot(account_subject_id, time, value) values (?, ?, ?)`,
			id, req.Time.Unix(), entry.Value,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type Snapshot struct {
	Time  time.Time
	Value float64
}

type Series struct {
	Period  string
	Subject string
	// Overall is set on the series of the overall average.
	Overall   bool
	Snapshots []Snapshot
}

// History returns the stored series of an account, oldest snapshot first.
// An empty period returns the series of every period.
func (s Store) History(ctx context.Context, account, period string) ([]Series, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	query := `select s.period, s.subject, s.overall, g.time, g.value
		from grade_snapshot g
		inner join account_subject s on s.id = g.account_subject_id
		where s.account = ?`
	args := []any{account}
	if period != "" {
		query += " and s.period = ?"
		args = append(args, period)
	}
	query += " order by s.period, s.overall, s.id, g.time"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer rows.Close()

	var series []Series
	for rows.Next() {
		var (
			rowPeriod string
			subject   string
			overall   int64
			unix      int64
			value     float64
		)
		err = rows.Scan(&rowPeriod, &subject, &overall, &unix, &value)
		if err != nil {
			return nil, err
		}

		last := len(series) - 1
		isOverall := overall != 0
		if last < 0 || series[last].Period != rowPeriod || series[last].Subject != subject || series[last].Overall != isOverall {
			series = append(series, Series{Period: rowPeriod, Subject: subject, Overall: isOverall})
			last++
		}
		series[last].Snapshots = append(series[last].Snapshots, Snapshot{
			Time:  time.Unix(unix, 0),
			Value: value,
		})
	}
	return series, rows.Err()
}
