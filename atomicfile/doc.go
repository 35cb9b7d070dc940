/*
Package atomicfile writes files so that readers never see a half-written
file: data goes to a temporary file in the destination directory which is
renamed over the destination only after a successful write, sync and close.

If anything fails, the temporary file is removed and the previous content
of the destination (if any) is left untouched.

	func writeRecordFile(path string, data []byte) error {
		f, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// a no-op after successful Close()
		defer f.RemoveIfNotClosed()

		if _, err = f.Write(data); err != nil {
			return err
		}
		return f.Close()
	}

New files are created with mode 0644. When replacing an existing file its
permissions are kept.
*/
package atomicfile
