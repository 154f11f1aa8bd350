package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"stepup/internal/stepup"
)

// terminalObserver drives an attempt from a line based terminal. A line with
// a code submits it, "r" resends and "q" cancels.
type terminalObserver struct {
	in   io.Reader
	out  io.Writer
	once sync.Once

	// announce prints the expiry on the first tick of a new challenge.
	announce bool
}

func newTerminalObserver(in io.Reader, out io.Writer) *terminalObserver {
	return &terminalObserver{in: in, out: out}
}

func (o *terminalObserver) OnChallengeActive(a *stepup.Attempt, c stepup.Challenge) {
	switch c.Type {
	case stepup.ChallengeTOTP:
		fmt.Fprintln(o.out, "Enter the code from your authenticator app.")
	default:
		fmt.Fprintf(o.out, "A code was sent to your %s device.\n", c.Type)
	}
	o.announce = true

	// The first challenge starts the reader. Resends keep using it.
	if o.in != nil {
		o.once.Do(func() { go o.readInput(a) })
	}
}

func (o *terminalObserver) readInput(a *stepup.Attempt) {
	scanner := bufio.NewScanner(o.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "q":
			a.Cancel()
			return
		case "r":
			if !a.Resend() {
				fmt.Fprintln(o.out, "A new code cannot be sent yet.")
			}
		default:
			// Rejections are reported through OnError.
			_ = a.Submit(line)
		}

		select {
		case <-a.Done():
			return
		default:
		}
	}
	a.Cancel()
}

func (o *terminalObserver) OnTick(remaining int) {
	if o.announce {
		o.announce = false
		fmt.Fprintf(o.out, "Expires in %s. Type r to resend or q to cancel.\n", stepup.FormatRemaining(remaining))
		return
	}
	if remaining > 0 && remaining%60 == 0 {
		fmt.Fprintf(o.out, "%s left\n", stepup.FormatRemaining(remaining))
	}
}

func (o *terminalObserver) OnResendEligible() {
	fmt.Fprintln(o.out, "Did not get the code? Type r to send a new one.")
}

func (o *terminalObserver) OnExpired() {
	fmt.Fprintln(o.out, "The challenge expired.")
}

func (o *terminalObserver) OnError(err *stepup.Error) {
	if !err.Fatal() {
		fmt.Fprintln(o.out, err.Message)
	}
}

func (o *terminalObserver) OnElevated(token stepup.ElevatedToken) {
	fmt.Fprintf(o.out, "Verified until %s.\n", token.ValidUntil.Local().Format("15:04:05"))
}

func (o *terminalObserver) OnCodeCleared() {
	fmt.Fprint(o.out, "Code: ")
}
