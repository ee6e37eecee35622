package repository

import "fmt"

// PartialWriteError is returned by repositories that cannot write a batch
// atomically. The first Written records of the batch were stored and must not
// be sent again.
type PartialWriteError struct {
	Written int
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("wrote %d records before failing: %v", e.Written, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
