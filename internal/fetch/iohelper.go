package fetch

import "io"

// readBody reads up to maxBytes from r and reports whether the body was
// truncated. It never returns an error for hitting the cap — truncation
// is a recorded fact, not a failure.
func readBody(r io.Reader, maxBytes int64) (data []byte, truncated bool, err error) {
	limited := io.LimitReader(r, maxBytes+1)
	data, err = io.ReadAll(limited)
	if err != nil {
		return data, false, err
	}
	if int64(len(data)) > maxBytes {
		return data[:maxBytes], true, nil
	}
	return data, false, nil
}

// drainAndClose drains up to 64KB of r then closes it, so the underlying
// connection can be reused by the pool even when the caller stopped
// reading early (e.g. after hitting max_body_bytes).
func drainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64*1024))
	return rc.Close()
}
