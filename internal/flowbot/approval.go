package flowbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

type Decision int

const (
	Approve Decision = iota
	Skip
	Quit
)

func (d Decision) String() string {
	switch d {
	case Approve:
		return "approve"
	case Skip:
		return "skip"
	case Quit:
		return "quit"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Approver decides whether a displayed trade is submitted.
type Approver interface {
	Approve(ctx context.Context, t Trade) (Decision, error)
}

type AlwaysApprove struct{}

func (AlwaysApprove) Approve(context.Context, Trade) (Decision, error) { return Approve, nil }

// NeverApprove skips every trade.
type NeverApprove struct{}

func (NeverApprove) Approve(context.Context, Trade) (Decision, error) { return Skip, nil }

// Prompt asks an operator on a terminal: y proceeds, n skips, q quits.
// Anything else re-prompts. End of input counts as q.
type Prompt struct {
	out   io.Writer
	lines chan promptLine
}

type promptLine struct {
	text string
	err  error
}

// NewPrompt starts a reader goroutine on in that lives for the process.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	p := &Prompt{out: out, lines: make(chan promptLine)}
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			p.lines <- promptLine{text: sc.Text()}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		for {
			p.lines <- promptLine{err: err}
		}
	}()
	return p
}

func (p *Prompt) Approve(ctx context.Context, t Trade) (Decision, error) {
	fmt.Fprintf(p.out, "\n%s\n", t.Recap())
	for {
		fmt.Fprint(p.out, "Execute trade? [y]es / [n]o / [q]uit: ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return Skip, ctx.Err()
		case line := <-p.lines:
			if line.err != nil {
				fmt.Fprintln(p.out)
				if line.err == io.EOF {
					return Quit, nil
				}
				return Quit, fmt.Errorf("read approval: %w", line.err)
			}
			switch strings.ToLower(strings.TrimSpace(line.text)) {
			case "y", "yes":
				return Approve, nil
			case "n", "no":
				return Skip, nil
			case "q", "quit":
				return Quit, nil
			}
			fmt.Fprintln(p.out, "Please answer y, n or q.")
		}
	}
}
