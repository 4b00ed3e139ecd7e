// Package testutil holds small helpers shared by this module's test
// files.
package testutil

import (
	"fmt"

	"github.com/d4l3k/messagediff"
)

// Diff renders a structural diff between got and want, for use in test
// failure messages where a plain %+v dump would bury the one field that
// actually differs.
func Diff(got, want any) string {
	diff, equal := messagediff.PrettyDiff(want, got)
	if equal {
		return ""
	}
	return fmt.Sprintf("\n%s", diff)
}
