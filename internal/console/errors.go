package console

import (
	"fmt"
	"io"

	"studytools/internal/failure"

	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintError writes the line shown to the user when a command fails.
func PrintError(out io.Writer, err error) {
	var prefix string
	switch failure.KindOf(err) {
	case failure.KindRemoteRejection:
		prefix = "rejected:"
	case failure.KindValidation:
		prefix = "invalid input:"
	case failure.KindTransport:
		prefix = "network error:"
	default:
		prefix = "error:"
	}
	fmt.Fprintf(out, "%s %s\n", text.FgRed.Sprint(prefix), err.Error())
}
