// Command vote casts a vote from a terminal using a link from a campaign
// email.
//
//	vote --api http://localhost:3318 'https://survey.vocaltworld.com/poll/P1?token=...'
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	"github.com/vocaltworld/micropoll/client"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/votepage"
)

var errAborted = errors.New("aborted")

func main() {
	var api string

	fs := pflag.NewFlagSet("vote", pflag.ExitOnError)
	fs.StringVar(&api, "api", "http://localhost:3318", "micropoll API base URL")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vote [--api URL] VOTE_LINK")
		os.Exit(2)
	}

	params, err := votepage.ParseVoteURL(fs.Arg(0))
	if err != nil {
		slog.Error("bad vote link", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	page := votepage.New(client.New(api, nil))
	if err := run(ctx, os.Stdin, os.Stdout, page, params); err != nil {
		if !errors.Is(err, errAborted) {
			slog.Debug("vote failed", "error", err)
		}
		os.Exit(1)
	}
}

// run walks page through load, choice and confirmation, reading answers
// from in.
func run(ctx context.Context, in io.Reader, out io.Writer, page *votepage.Controller, params votepage.Params) error {
	answers := bufio.NewScanner(in)
	ask := func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		if !answers.Scan() {
			if err := answers.Err(); err != nil {
				return "", err
			}
			return "", errAborted
		}
		return strings.ToLower(strings.TrimSpace(answers.Text())), nil
	}

	if err := page.Load(ctx, params); err != nil {
		fmt.Fprintln(out, page.View().Message)
		return err
	}

	poll := page.View().Poll
	fmt.Fprintf(out, "%s\n  1) %s\n  2) %s\n", poll.Question, poll.OptionYes, poll.OptionNo)

	for page.View().State != votepage.Submitted {
		v := page.View()

		if v.State == votepage.Ready {
			answer, err := ask("Your choice [1/2]: ")
			if err != nil {
				return err
			}
			choice, ok := models.ParseChoice(answer)
			if !ok {
				fmt.Fprintln(out, "Please answer 1 or 2.")
				continue
			}
			if err := page.Select(choice); err != nil {
				return err
			}
			continue
		}

		answer, err := ask(fmt.Sprintf("Vote %q? Votes cannot be changed [y/N]: ", v.Choice.Label(poll)))
		if err != nil {
			return err
		}
		if answer != "y" && answer != "yes" {
			if err := page.Cancel(); err != nil {
				return err
			}
			continue
		}

		if err := page.Confirm(ctx); err != nil {
			fmt.Fprintln(out, page.View().Message)
			return err
		}
	}

	fmt.Fprintln(out, "Thank you, your vote was recorded.")
	return nil
}
