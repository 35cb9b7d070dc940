package u

import (
	"fmt"
	"runtime"
	"strings"
)

// PanicIf panics with a message formatted from args if cond is true.
// Only for programmer errors.
func PanicIf(cond bool, args ...any) {
	if !cond {
		return
	}
	s := "condition failed"
	if len(args) > 0 {
		s = fmt.Sprintf("%s", args[0])
		if len(args) > 1 {
			s = fmt.Sprintf(s, args[1:]...)
		}
	}
	panic(s)
}

func IsWindows() bool {
	return strings.Contains(runtime.GOOS, "windows")
}
