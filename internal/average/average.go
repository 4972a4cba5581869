// Package average turns a flat list of grade records into ranked,
// coefficient-weighted subject averages for one grading period.
package average

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"studytools/internal/components/assert"
	"studytools/internal/components/telemetry"
)

const (
	report_calculator_skip_record = "calculator.skip-record"
	report_calculator_unrated     = "calculator.unrated-subject"
)

// OverallLabel is the label the overall average is reported under.
const OverallLabel = "MOYENNE GENERALE"

const maxPrecision = 10

var (
	// ErrUndefinedOverall is returned when no subject in the selected period
	// has a defined average, so the overall average would be a division by zero.
	ErrUndefinedOverall = errors.New("no subject has a defined average in this period")
	ErrInvalidOptions   = errors.New("invalid average options")
)

// Record is one graded assignment as the grade service reports it. Numeric
// fields are kept in their decimal-comma text form ("17,4").
type Record struct {
	Subject     string
	Period      string
	Value       string
	Max         string
	Coefficient string
	// NonNumeric is set for markers such as absences ("Abs") which do not
	// count towards an average but still make the subject show up.
	NonNumeric bool

	Label string
	Date  string
}

type Options struct {
	// Over is the maximum the averages are rescaled to (ex. 20).
	Over float64
	// Precision is the number of digits kept after the decimal point.
	Precision int
}

func (o Options) Validate() error {
	if math.IsNaN(o.Over) || math.IsInf(o.Over, 0) || o.Over <= 0 {
		return fmt.Errorf("%w: over must be a positive number, got %v", ErrInvalidOptions, o.Over)
	}
	if o.Precision < 0 || o.Precision > maxPrecision {
		return fmt.Errorf("%w: precision must be between 0 and %d, got %d", ErrInvalidOptions, maxPrecision, o.Precision)
	}
	return nil
}

func (o Options) render(value float64) string {
	return strconv.FormatFloat(value, 'f', o.Precision, 64)
}

type Average struct {
	Subject string
	// Value keeps full precision, Rendered is Value rounded once to the
	// requested precision.
	Value    float64
	Rendered string
}

type Report struct {
	Period string
	// Subjects is ranked from best to worst.
	Subjects []Average
	// Unrated lists the subjects that have entries in the period but no
	// numeric grade with a positive coefficient, in encounter order.
	Unrated []string
	Overall Average
}

// Entries returns the ranked subjects followed by the overall average.
func (r Report) Entries() []Average {
	out := make([]Average, 0, len(r.Subjects)+1)
	out = append(out, r.Subjects...)
	return append(out, r.Overall)
}

// ParseDecimal parses a decimal-comma number like "17,4".
func ParseDecimal(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return value, nil
}

// Periods returns the distinct period codes found in records in encounter order.
func Periods(records []Record) []string {
	var periods []string
	for _, r := range records {
		if !slices.Contains(periods, r.Period) {
			periods = append(periods, r.Period)
		}
	}
	return periods
}

// DefaultPeriodIndex is the period offered when the user does not choose one:
// the last one, which is usually the current one.
func DefaultPeriodIndex(periods []string) int {
	if len(periods) == 0 {
		return 0
	}
	return len(periods) - 1
}

type accumulator struct {
	weighted     float64
	coefficients float64
}

type Calculator struct {
	tel telemetry.API
}

func NewCalculator(tel telemetry.API) Calculator {
	assert.NotNil(tel)
	return Calculator{tel: telemetry.NewScopedAPI("average", tel)}
}

// normalize returns the record's achieved/max ratio and its coefficient, ok is
// false when the record cannot take part in an average.
func (c Calculator) normalize(r Record) (value, coefficient float64, ok bool) {
	skip := func(reason string, err error) (float64, float64, bool) {
		c.tel.ReportWarning(report_calculator_skip_record, r.Subject, r.Label, reason, err)
		return 0, 0, false
	}

	achieved, err := ParseDecimal(r.Value)
	if err != nil {
		return skip("unparseable value", err)
	}
	maximum, err := ParseDecimal(r.Max)
	if err != nil {
		return skip("unparseable maximum", err)
	}
	if maximum <= 0 {
		return skip("maximum must be positive", fmt.Errorf("max=%v", maximum))
	}
	coefficient, err = ParseDecimal(r.Coefficient)
	if err != nil {
		return skip("unparseable coefficient", err)
	}
	if coefficient < 0 {
		return skip("negative coefficient", fmt.Errorf("coef=%v", coefficient))
	}
	value = achieved / maximum
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return skip("value out of range", fmt.Errorf("value=%v max=%v", achieved, maximum))
	}
	if math.IsInf(value*coefficient, 0) {
		return skip("weighted value out of range", fmt.Errorf("value=%v coef=%v", value, coefficient))
	}
	return value, coefficient, true
}

// Compute averages the records of the selected period.
//
// Each subject average is sum(value/max * coef) / sum(coef) rescaled to
// opts.Over. The overall average is the unweighted mean of the subject
// averages, every subject counts once.
func (c Calculator) Compute(records []Record, period string, opts Options) (Report, error) {
	err := opts.Validate()
	if err != nil {
		return Report{}, err
	}

	var order []string
	subjects := map[string]*accumulator{}

	for _, r := range records {
		if r.Period != period {
			continue
		}
		acc, seen := subjects[r.Subject]
		if !seen {
			acc = &accumulator{}
			subjects[r.Subject] = acc
			order = append(order, r.Subject)
		}
		if r.NonNumeric {
			continue
		}
		value, coefficient, ok := c.normalize(r)
		if !ok {
			continue
		}
		acc.weighted += value * coefficient
		acc.coefficients += coefficient
	}

	report := Report{Period: period}
	sum := 0.0
	for _, subject := range order {
		acc := subjects[subject]
		if acc.coefficients == 0 {
			c.tel.ReportWarning(report_calculator_unrated, subject, period)
			report.Unrated = append(report.Unrated, subject)
			continue
		}
		value := acc.weighted / acc.coefficients * opts.Over
		if math.IsInf(value, 0) || math.IsNaN(value) {
			c.tel.ReportWarning(report_calculator_skip_record, subject, period, "average out of range", value)
			report.Unrated = append(report.Unrated, subject)
			continue
		}
		sum += value
		report.Subjects = append(report.Subjects, Average{
			Subject:  subject,
			Value:    value,
			Rendered: opts.render(value),
		})
	}

	if len(report.Subjects) == 0 {
		return report, fmt.Errorf("period %q: %w", period, ErrUndefinedOverall)
	}

	slices.SortStableFunc(report.Subjects, func(a, b Average) int {
		// reversed to sort descending
		av, _ := strconv.ParseFloat(a.Rendered, 64)
		bv, _ := strconv.ParseFloat(b.Rendered, 64)
		if av < bv {
			return 1
		}
		if av > bv {
			return -1
		}
		return 0
	})

	overall := sum / float64(len(report.Subjects))
	report.Overall = Average{
		Subject:  OverallLabel,
		Value:    overall,
		Rendered: opts.render(overall),
	}
	return report, nil
}
