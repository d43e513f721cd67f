package audio

import (
	"context"
	"io"
)

// AbstractAnalyzer is anything consuming PCM of a fixed format.
type AbstractAnalyzer interface {
	io.Closer

	Encoding(context.Context) (Encoding, error)
	Channels(context.Context) (Channel, error)
}
