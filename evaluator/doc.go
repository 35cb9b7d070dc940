// Package evaluator runs models outside of the process: a local
// executable (Command), an HTTP service (HTTP) or an executable on a
// remote machine (SSH). All exchange records as key=value files.
package evaluator

const (
	// default names of files exchanged with a model
	DefaultInFile  = "data.in"
	DefaultOutFile = "data.out"
)

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
