package signaling

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// maxLine bounds one pasted token line.
const maxLine = 1 << 20

// Prompter is the copy-paste side channel: tokens are written to Out and
// the peer's token is read from In, one per line. After signaling the same
// Prompter keeps serving input lines through ReadLine.
type Prompter struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan string
	err   error // valid once lines is closed
}

func (p *Prompter) start() {
	p.lines = make(chan string)

	go func() {
		defer close(p.lines)

		sc := bufio.NewScanner(p.In)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				p.lines <- line
			}
		}

		p.err = sc.Err()
		if p.err == nil {
			p.err = io.ErrUnexpectedEOF
		}
	}()
}

// ReadLine waits for the next non-empty line, trimmed. It returns
// io.ErrUnexpectedEOF when In ends. Cancelling ctx abandons the wait but
// not the line being read; the next call receives it.
func (p *Prompter) ReadLine(ctx context.Context) (string, error) {
	p.once.Do(p.start)

	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", p.err
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ManualOffer runs the offer side with copy-paste tokens: print the offer
// token, then read and apply the answer token.
func ManualOffer(ctx context.Context, n Negotiator, p *Prompter) error {
	offer, err := CreateOffer(ctx, n)
	if err != nil {
		return err
	}

	token, err := EncodeToken(offer)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "Send this offer to the other peer:\n\n%s\n\nPaste the answer token:\n", token)

	line, err := p.ReadLine(ctx)
	if err != nil {
		return fmt.Errorf("read answer token: %w", err)
	}

	var answer AnswerBundle
	if err := DecodeToken(line, &answer); err != nil {
		return err
	}
	return CompleteOffer(ctx, n, offer, answer)
}

// ManualAnswer runs the answer side with copy-paste tokens: read the offer
// token, then print the answer token.
func ManualAnswer(ctx context.Context, n Negotiator, p *Prompter) error {
	fmt.Fprintln(p.Out, "Paste the offer token:")

	line, err := p.ReadLine(ctx)
	if err != nil {
		return fmt.Errorf("read offer token: %w", err)
	}

	var offer OfferBundle
	if err := DecodeToken(line, &offer); err != nil {
		return err
	}

	answer, err := AcceptOffer(ctx, n, offer)
	if err != nil {
		return err
	}

	token, err := EncodeToken(answer)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "Send this answer back to the offering peer:\n\n%s\n\n", token)
	return nil
}
