package average

import (
	"errors"
	"strconv"
	"testing"

	"studytools/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func grade(subject, period, value, max, coef string) Record {
	return Record{
		Subject:     subject,
		Period:      period,
		Value:       value,
		Max:         max,
		Coefficient: coef,
	}
}

func absence(subject, period string) Record {
	return Record{
		Subject:     subject,
		Period:      period,
		Value:       "Abs",
		Max:         "20",
		Coefficient: "1",
		NonNumeric:  true,
	}
}

var ignoreValue = cmpopts.IgnoreFields(Average{}, "Value")

func newTestCalculator() (Calculator, *telemetry.Recorder) {
	rec := &telemetry.Recorder{}
	return NewCalculator(rec), rec
}

func TestParseDecimal(t *testing.T) {
	testCases := []struct {
		in       string
		expected float64
		fails    bool
	}{
		{in: "17,4", expected: 17.4},
		{in: " 20 ", expected: 20},
		{in: "0,5", expected: 0.5},
		{in: "12.25", expected: 12.25},
		{in: "Abs", fails: true},
		{in: "", fails: true},
		{in: "1,2,3", fails: true},
		{in: "NaN", fails: true},
		{in: "Inf", fails: true},
	}

	for _, test := range testCases {
		value, err := ParseDecimal(test.in)
		if test.fails {
			require.Error(t, err, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		require.InDelta(t, test.expected, value, 1e-9, test.in)
	}
}

func TestPeriods(t *testing.T) {
	records := []Record{
		grade("Math", "A001", "1", "2", "1"),
		grade("Math", "A002", "1", "2", "1"),
		absence("French", "A001"),
		grade("History", "A003", "1", "2", "1"),
	}
	periods := Periods(records)
	require.Equal(t, []string{"A001", "A002", "A003"}, periods)
	require.Nil(t, Periods(nil))

	require.Equal(t, 2, DefaultPeriodIndex(periods))
	require.Equal(t, 0, DefaultPeriodIndex(nil))
}

func TestComputeWeightedSubject(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("Math", "P1", "15,0", "20,0", "2"),
		grade("Math", "P1", "10,0", "20,0", "1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 2})
	require.NoError(t, err)

	require.Len(t, report.Subjects, 1)
	require.Equal(t, "Math", report.Subjects[0].Subject)
	require.Equal(t, "13.33", report.Subjects[0].Rendered)
	require.InDelta(t, 40.0/3.0, report.Subjects[0].Value, 1e-9)
	require.Equal(t, "13.33", report.Overall.Rendered)
	require.Equal(t, OverallLabel, report.Overall.Subject)
}

func TestComputeOrderIndependent(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("Physics", "P1", "12,5", "20", "1"),
		grade("Physics", "P1", "7", "10", "0,5"),
		grade("Physics", "P1", "18", "20", "3"),
		grade("Physics", "P1", "4", "5", "2"),
	}
	reversed := []Record{records[3], records[2], records[1], records[0]}

	a, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 3})
	require.NoError(t, err)
	b, err := calc.Compute(reversed, "P1", Options{Over: 20, Precision: 3})
	require.NoError(t, err)

	expected := (12.5/20*1 + 0.7*0.5 + 0.9*3 + 0.8*2) / (1 + 0.5 + 3 + 2) * 20
	require.InDelta(t, expected, a.Subjects[0].Value, 1e-9)
	require.InDelta(t, a.Subjects[0].Value, b.Subjects[0].Value, 1e-9)
	require.Equal(t, a.Subjects[0].Rendered, b.Subjects[0].Rendered)
}

func TestComputeRanking(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("Art", "P1", "10,004", "20", "1"),
		grade("Biology", "P1", "15", "20", "1"),
		grade("Chemistry", "P1", "10,001", "20", "1"),
		grade("Drama", "P1", "19", "20", "1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 2})
	require.NoError(t, err)

	// Art and Chemistry both render as 10.00 so they keep their encounter order
	expected := []Average{
		{Subject: "Drama", Rendered: "19.00"},
		{Subject: "Biology", Rendered: "15.00"},
		{Subject: "Art", Rendered: "10.00"},
		{Subject: "Chemistry", Rendered: "10.00"},
	}
	if diff := cmp.Diff(expected, report.Subjects, ignoreValue); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}

	entries := report.Entries()
	require.Len(t, entries, 5)
	require.Equal(t, OverallLabel, entries[4].Subject)
}

func TestComputeOverallIsUnweighted(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("Math", "P1", "20", "20", "5"),
		grade("Math", "P1", "20", "20", "5"),
		grade("French", "P1", "10", "20", "1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 2})
	require.NoError(t, err)
	require.Equal(t, "15.00", report.Overall.Rendered)
}

func TestComputeRescale(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("English", "P1", "7", "10", "1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 100, Precision: 0})
	require.NoError(t, err)
	require.Equal(t, "70", report.Subjects[0].Rendered)
	require.Equal(t, "70", report.Overall.Rendered)
}

func TestComputeFiltersPeriod(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("Math", "P1", "20", "20", "1"),
		grade("Math", "P2", "0", "20", "1"),
		grade("History", "P2", "5", "20", "1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 1})
	require.NoError(t, err)
	require.Len(t, report.Subjects, 1)
	require.Equal(t, "20.0", report.Subjects[0].Rendered)
	require.Empty(t, report.Unrated)
}

func TestComputeAbsenceOnlySubject(t *testing.T) {
	calc, rec := newTestCalculator()
	records := []Record{
		absence("Sport", "P1"),
		grade("Math", "P1", "12", "20", "1"),
		absence("Math", "P1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 1})
	require.NoError(t, err)

	require.Len(t, report.Subjects, 1)
	require.Equal(t, "Math", report.Subjects[0].Subject)
	require.Equal(t, []string{"Sport"}, report.Unrated)
	require.Equal(t, "12.0", report.Overall.Rendered)
	require.Equal(t, []string{"average: " + report_calculator_unrated}, rec.WarningIDs())
}

func TestComputeEmptyPeriod(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("Math", "P1", "12", "20", "1"),
	}

	report, err := calc.Compute(records, "P9", Options{Over: 20, Precision: 2})
	require.ErrorIs(t, err, ErrUndefinedOverall)
	require.Empty(t, report.Subjects)
	require.Equal(t, "", report.Overall.Rendered)

	_, err = calc.Compute(nil, "P1", Options{Over: 20, Precision: 2})
	require.True(t, errors.Is(err, ErrUndefinedOverall))
}

func TestComputeOnlyAbsencesIsUndefined(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		absence("Sport", "P1"),
		absence("Music", "P1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 2})
	require.ErrorIs(t, err, ErrUndefinedOverall)
	require.Equal(t, []string{"Sport", "Music"}, report.Unrated)
}

func TestComputeSkipsBrokenRecords(t *testing.T) {
	calc, rec := newTestCalculator()
	records := []Record{
		grade("Math", "P1", "15", "20", "1"),
		grade("Math", "P1", "12", "0", "1"),
		grade("Math", "P1", "12", "", "1"),
		grade("Math", "P1", "Disp", "20", "1"),
		grade("Math", "P1", "12", "20", "x"),
		grade("Math", "P1", "12", "20", "-1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 2})
	require.NoError(t, err)
	require.Equal(t, "15.00", report.Subjects[0].Rendered)

	ids := rec.WarningIDs()
	require.Len(t, ids, 5)
	for _, id := range ids {
		require.Equal(t, "average: "+report_calculator_skip_record, id)
	}
}

func TestComputeSkipsOutOfRangeRatios(t *testing.T) {
	calc, rec := newTestCalculator()
	records := []Record{
		grade("Math", "P1", "1e308", "1e-10", "0"),
		grade("Math", "P1", "10", "20", "1"),
		grade("French", "P1", "1e308", "1", "1e10"),
		grade("French", "P1", "12", "20", "1"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 1})
	require.NoError(t, err)
	if diff := cmp.Diff([]Average{
		{Subject: "French", Rendered: "12.0"},
		{Subject: "Math", Rendered: "10.0"},
	}, report.Subjects, ignoreValue); diff != "" {
		t.Fatal("unexpected subjects (-want +got)", diff)
	}
	require.Equal(t, "11.0", report.Overall.Rendered)
	require.Equal(t, []string{
		"average: " + report_calculator_skip_record,
		"average: " + report_calculator_skip_record,
	}, rec.WarningIDs())
}

func TestComputeZeroCoefficients(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("Latin", "P1", "18", "20", "0"),
		grade("Math", "P1", "8", "20", "0"),
		grade("Math", "P1", "16", "20", "2"),
	}

	report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"Latin"}, report.Unrated)
	require.Equal(t, "16.0", report.Subjects[0].Rendered)
}

func TestComputeRoundsOnce(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{
		grade("Math", "P1", "13,37", "20", "1"),
		grade("Math", "P1", "11,11", "20", "3"),
		grade("French", "P1", "9,99", "20", "1"),
		grade("History", "P1", "14,445", "20", "1"),
	}

	for precision := 0; precision <= 4; precision++ {
		report, err := calc.Compute(records, "P1", Options{Over: 20, Precision: precision})
		require.NoError(t, err)
		for _, entry := range report.Entries() {
			reparsed, err := strconv.ParseFloat(entry.Rendered, 64)
			require.NoError(t, err)
			require.Equal(t, entry.Rendered, strconv.FormatFloat(reparsed, 'f', precision, 64))
			require.Equal(t, strconv.FormatFloat(entry.Value, 'f', precision, 64), entry.Rendered)
		}
	}
}

func TestComputeInvalidOptions(t *testing.T) {
	calc, _ := newTestCalculator()
	records := []Record{grade("Math", "P1", "12", "20", "1")}

	testCases := []Options{
		{Over: 0, Precision: 2},
		{Over: -20, Precision: 2},
		{Over: 20, Precision: -1},
		{Over: 20, Precision: 11},
	}
	for _, opts := range testCases {
		_, err := calc.Compute(records, "P1", opts)
		require.ErrorIs(t, err, ErrInvalidOptions)
	}
}
