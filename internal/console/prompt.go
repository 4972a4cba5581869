// Package console holds the interactive pieces shared by the command line
// tools: prompts, tables, spinners and progress bars.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"studytools/internal/failure"

	"github.com/antzucaro/matchr"
	"golang.org/x/term"
)

const DefaultMaxAttempts = 5

// names typed by the user are matched against options above this Jaro-Winkler similarity
const choiceSimilarity = 0.9

// Prompter asks questions on Out and reads answers line by line from In.
type Prompter struct {
	in  *bufio.Reader
	raw io.Reader
	out io.Writer
	// MaxAttempts bounds how many invalid answers are accepted before giving up.
	MaxAttempts int
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:          bufio.NewReader(in),
		raw:         in,
		out:         out,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Stdio returns a prompter on the process' standard input and standard error,
// so that prompts do not end up in redirected output.
func Stdio() *Prompter {
	return NewPrompter(os.Stdin, os.Stderr)
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", failure.Validation("input closed before an answer was given")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Line asks for a single line of text.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s ", label)
	return p.readLine()
}

// Password asks for a secret without echoing it when the input is a terminal.
func (p *Prompter) Password(label string) (string, error) {
	file, isFile := p.raw.(*os.File)
	if !isFile || !term.IsTerminal(int(file.Fd())) || p.in.Buffered() > 0 {
		return p.Line(label)
	}

	fmt.Fprintf(p.out, "%s ", label)
	secret, err := term.ReadPassword(int(file.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}

func (p *Prompter) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// ask runs the bounded validation loop: empty answers pick the default and
// answers rejected by parse are asked again.
func ask[T any](p *Prompter, label string, def T, parse func(string) (T, error)) (T, error) {
	for i := 0; i < p.attempts(); i++ {
		answer, err := p.Line(fmt.Sprintf("%s (default: %v)", label, def))
		if err != nil {
			return def, err
		}
		if answer == "" {
			return def, nil
		}
		value, err := parse(answer)
		if err != nil {
			fmt.Fprintf(p.out, "%s\n", err.Error())
			continue
		}
		return value, nil
	}
	return def, failure.Validation("no valid answer after %d attempts", p.attempts())
}

// Number asks for a decimal number, validate may be nil.
func (p *Prompter) Number(label string, def float64, validate func(float64) error) (float64, error) {
	return ask(p, label, def, func(answer string) (float64, error) {
		value, err := strconv.ParseFloat(strings.Replace(answer, ",", ".", 1), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", answer)
		}
		if validate != nil {
			err = validate(value)
			if err != nil {
				return 0, err
			}
		}
		return value, nil
	})
}

// Int asks for an integer, validate may be nil.
func (p *Prompter) Int(label string, def int, validate func(int) error) (int, error) {
	return ask(p, label, def, func(answer string) (int, error) {
		value, err := strconv.Atoi(answer)
		if err != nil {
			return 0, fmt.Errorf("%q is not a whole number", answer)
		}
		if validate != nil {
			err = validate(value)
			if err != nil {
				return 0, err
			}
		}
		return value, nil
	})
}

// ResolveChoice maps an answer to an index of options. The answer can be an
// index, an option written exactly (ignoring case), or an option with a typo.
func ResolveChoice(answer string, options []string) (int, error) {
	answer = strings.TrimSpace(answer)
	index, err := strconv.Atoi(answer)
	if err == nil {
		if index < 0 || index >= len(options) {
			return 0, fmt.Errorf("%d is not between 0 and %d", index, len(options)-1)
		}
		return index, nil
	}

	for i, option := range options {
		if strings.EqualFold(option, answer) {
			return i, nil
		}
	}

	best := -1
	bestSimilarity := 0.0
	for i, option := range options {
		similarity := matchr.JaroWinkler(strings.ToLower(answer), strings.ToLower(option), false)
		if similarity > bestSimilarity {
			best = i
			bestSimilarity = similarity
		}
	}
	if best < 0 || bestSimilarity < choiceSimilarity {
		return 0, fmt.Errorf("%q does not match any option", answer)
	}
	return best, nil
}

// Choice asks to pick one of options, def is the index used for an empty answer.
func (p *Prompter) Choice(label string, options []string, def int) (int, error) {
	if len(options) == 0 {
		return 0, failure.Validation("nothing to choose from")
	}
	return p.Select(label, def, func(answer string) (int, error) {
		return ResolveChoice(answer, options)
	})
}

// Select is Choice with a custom resolution of the answer, for options that
// can be named in more than one way.
func (p *Prompter) Select(label string, def int, resolve func(answer string) (int, error)) (int, error) {
	return ask(p, label, def, resolve)
}
