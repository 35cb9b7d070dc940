/*
Package kvfile reads and writes flat key=value files, the format used to
exchange inputs and outputs with a model (data.in / data.out):

	panelRating=250
	location=rooftop

One entry per line. The first '=' separates key from value, later '='
belong to the value. There is no quoting, escaping or comment syntax and
all values are strings. Typed accessors (Float, Int, Bool) parse on demand.

Reading strips trailing whitespace from each line and skips lines that are
empty after stripping. A non-empty line without '=' (or with an empty key)
is an error; we never return a partial record.

Writing is atomic: the record goes to a temporary file that is renamed over
the destination, so the destination either has the previous content or the
complete new content. Records that would not read back the same (keys with
'=' or newlines, values with newlines or trailing whitespace) are rejected
before anything is written.

Files with .gz, .bz2, .zst, .zstd or .br extension are (de)compressed
transparently (.bz2 is read-only).
*/
package kvfile
