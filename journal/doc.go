/*
Package journal writes and reads a log of key=value records, e.g. inputs
and outputs of every case evaluated by a study.

Each record is a block:

	--- ${size} ${timestamp_in_unix_epoch_ms} ${name}\n
	${body}

${name} is optional and ${timestamp} is omitted when Writer.NoTimestamp is
set. The body is a record serialized with kvfile.Marshal. When the body
doesn't end with a newline, a newline is added for readability (it's not
counted in ${size}).

The format is append-only so a journal of an interrupted study can be read
up to the last complete block.
*/
package journal
