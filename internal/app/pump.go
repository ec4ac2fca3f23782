package app

import (
	"context"
	"io"

	"github.com/1ureka/p2pchan/internal/signaling"
)

// lineReader yields one input line at a time.
type lineReader interface {
	ReadLine(ctx context.Context) (string, error)
}

var _ lineReader = (*signaling.Prompter)(nil)

// pump sends every input line as one message until input ends, ctx is
// cancelled, or a send fails. Empty lines are skipped.
func pump(ctx context.Context, in lineReader, send func(context.Context, []byte) error) error {
	for {
		line, err := in.ReadLine(ctx)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				return io.EOF
			}
			return err
		}

		if err := send(ctx, []byte(line)); err != nil {
			return err
		}
	}
}
