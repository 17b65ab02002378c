package batch

import (
	"errors"
	"fmt"
)

var ErrMalformedRequest = errors.New("malformed batch request")

// ChunkError reports a failure that aborted a whole chunk.
type ChunkError struct {
	ChunkIndex int
	Err        error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
