package applier

import "errors"

// ErrEntryMissing means a required zip entry was not found — a CORRUPT-class
// failure in the caller's terms. Any other error returned by this package
// (extraction I/O failures) is an ERROR-class failure.
var ErrEntryMissing = errors.New("applier: required package entry missing")
