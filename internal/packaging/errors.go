package packaging

import "fmt"

// PackagingError is an I/O failure while reading or writing a deployable package.
type PackagingError struct {
	Op   string
	Path string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("package %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}
