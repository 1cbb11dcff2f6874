package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"erbgo/internal/common/errors"
)

// printError writes err as "error: message", adding the template line when
// the error carries one.
func printError(w io.Writer, err error, colored bool) {
	label := color.New(color.FgRed, color.Bold)
	detail := color.New(color.FgYellow)
	if colored {
		label.EnableColor()
		detail.EnableColor()
	} else {
		label.DisableColor()
		detail.DisableColor()
	}

	msg := err.Error()
	var appErr *errors.AppError
	isApp := stderrors.As(err, &appErr)
	if isApp {
		msg = appErr.Message
		if appErr.Cause != nil && !strings.Contains(msg, appErr.Cause.Error()) {
			msg += ": " + appErr.Cause.Error()
		}
	}

	label.Fprint(w, "error: ")
	fmt.Fprintln(w, msg)

	if isApp {
		if line, ok := appErr.Context["line"]; ok {
			detail.Fprintf(w, "  at line %v\n", line)
		}
	}
}
