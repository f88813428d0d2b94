package activity

// CaptureError runs f and reports its error, if any, on statusLine.
func CaptureError(statusLine *StatusLine, f func() error) error {
	if err := f(); err != nil {
		if statusLine != nil {
			statusLine.Fail(err)
		}
		return err
	}
	return nil
}
