// Command votelink signs vote links in bulk for an email campaign. It reads
// one address per line on stdin and writes email, url and expiry as
// tab-separated lines.
//
//	votelink --poll P1 < recipients.txt > links.tsv
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/cliparse"
	"github.com/vocaltworld/micropoll/clock"
	"github.com/vocaltworld/micropoll/voting"
)

func main() {
	var (
		pollID  string
		base    string
		ttl     time.Duration
		envFile string
	)

	fs := pflag.NewFlagSet("votelink", pflag.ExitOnError)
	fs.StringVarP(&pollID, "poll", "q", "", "Poll id")
	fs.StringVar(&base, "redirect-base", cliparse.DefaultRedirectBase, "Vote page base URL")
	fs.DurationVar(&ttl, "ttl", cliparse.DefaultLinkTTL, "Link validity, must be positive")
	fs.StringVar(&envFile, "env-file", "", "Load environment from this file")
	fs.Parse(os.Args[1:])

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Error("failed to load env file", "error", err)
			os.Exit(1)
		}
	}

	secret := strings.TrimSpace(os.Getenv("MICRO_POLL_SECRET"))
	if secret == "" {
		slog.Error("MICRO_POLL_SECRET required")
		os.Exit(1)
	}
	if err := checkFlags(pollID, ttl); err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	issuer := voting.NewIssuer([]byte(secret), ttl, clock.Real())
	slog.Info("issuing links", "poll_id", pollID, "expires", humanize.Time(time.Now().Add(ttl)))
	n, skipped, err := issueAll(os.Stdin, os.Stdout, issuer, base, pollID)
	if err != nil {
		slog.Error("failed to issue links", "error", err)
		os.Exit(1)
	}
	slog.Info("links issued", "poll_id", pollID, "count", humanize.Comma(int64(n)), "skipped", skipped)
}

// checkFlags rejects a missing poll and a ttl the issuer would silently
// replace with its default.
func checkFlags(pollID string, ttl time.Duration) error {
	if pollID == "" {
		return errors.New("--poll required")
	}
	if ttl <= 0 {
		return fmt.Errorf("--ttl must be positive, got %s", ttl)
	}
	return nil
}

// issueAll writes one link per valid address in r, expiry in RFC 3339.
// Blank lines and lines starting with # are ignored; bad addresses are
// skipped and counted, and logged by line number only.
func issueAll(r io.Reader, w io.Writer, issuer *voting.Issuer, base, pollID string) (issued, skipped int, err error) {
	out := bufio.NewWriter(w)
	sc := bufio.NewScanner(r)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		link, err := issuer.IssueLink(pollID, line, -1)
		if err != nil {
			slog.Warn("skipping recipient", "line", lineNo, "error", err)
			skipped++
			continue
		}

		fmt.Fprintf(out, "%s\t%s\t%s\n",
			auth.NormalizeEmail(line),
			voting.VoteURL(base, link.PollID, link.Token),
			link.ExpiresAt.UTC().Format(time.RFC3339),
		)
		issued++
	}
	if err := sc.Err(); err != nil {
		return issued, skipped, err
	}
	return issued, skipped, out.Flush()
}
