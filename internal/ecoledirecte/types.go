package ecoledirecte

import (
	"bytes"
	"encoding/json"

	"studytools/internal/average"
)

// FlexString decodes a JSON value that the API sends either as a string or
// as a bare number ("coef": 1 vs "coef": "1").
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		err := json.Unmarshal(data, &s)
		if err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	err := json.Unmarshal(data, &n)
	if err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

type envelope[T any] struct {
	Code    int    `json:"code"`
	Token   string `json:"token"`
	Message string `json:"message"`
	// the grades endpoint uses `msg` instead of `message`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

func (e envelope[T]) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

type Account struct {
	ID            int    `json:"id"`
	Identifier    string `json:"identifiant"`
	FirstName     string `json:"prenom"`
	LastName      string `json:"nom"`
	Type          string `json:"typeCompte"`
	Establishment string `json:"nomEtablissement"`
}

type loginData struct {
	Accounts []Account `json:"accounts"`
}

// Session is an authenticated account.
type Session struct {
	Token   string
	Account Account
}

type Grade struct {
	Subject     string     `json:"libelleMatiere"`
	SubjectCode string     `json:"codeMatiere"`
	Period      string     `json:"codePeriode"`
	Label       string     `json:"devoir"`
	Date        string     `json:"date"`
	Value       FlexString `json:"valeur"`
	Max         FlexString `json:"noteSur"`
	Coefficient FlexString `json:"coef"`
	// set when the value is a marker such as "Abs" instead of a number
	Letter bool `json:"enLettre"`
}

type Period struct {
	Code string `json:"idPeriode"`
	Name string `json:"periode"`
}

type gradesData struct {
	Notes    []Grade  `json:"notes"`
	Periodes []Period `json:"periodes"`
}

type Grades struct {
	Grades  []Grade
	Periods []Period
}

// Records converts the grades into calculator input.
func (g Grades) Records() []average.Record {
	records := make([]average.Record, len(g.Grades))
	for i, grade := range g.Grades {
		records[i] = average.Record{
			Subject:     grade.Subject,
			Period:      grade.Period,
			Value:       string(grade.Value),
			Max:         string(grade.Max),
			Coefficient: string(grade.Coefficient),
			NonNumeric:  grade.Letter,
			Label:       grade.Label,
			Date:        grade.Date,
		}
	}
	return records
}

// PeriodName returns the human readable name of a period code, or the code
// itself when the service did not describe it.
func (g Grades) PeriodName(code string) string {
	for _, p := range g.Periods {
		if p.Code == code && p.Name != "" {
			return p.Name
		}
	}
	return code
}
