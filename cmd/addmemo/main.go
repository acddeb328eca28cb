// Command addmemo submits a single vocabulary memo straight to the Apps Script
// web app, bypassing the relay service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ent0n29/vocabrelay/internal/memo"
	"github.com/ent0n29/vocabrelay/internal/observability"
	"github.com/ent0n29/vocabrelay/internal/webhook"
)

const defaultWebhookURL = "https://script.google.com/macros/s/AKfycbyvrWFOp8afJwRjREQs98NFE8hBNseHNWLV6j4rTIN9JdEP96BFO0-bYhdXa-HqC9ooEA/exec"

type options struct {
	url     string
	record  memo.Record
	timeout time.Duration
}

func main() {
	_ = godotenv.Load()

	logger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "addmemo: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		logger.Error("invalid flags", zap.Error(err))
		return
	}
	if err := run(context.Background(), opts, logger); err != nil {
		logger.Error("addMemo failed", zap.Error(err))
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var opts options
	fs.StringVar(&opts.url, "url", defaultWebhookURL, "Apps Script web app URL")
	fs.StringVar(&opts.record.Word, "word", "run into", "vocabulary word")
	fs.StringVar(&opts.record.Meaning, "meaning", "偶然出会う", "meaning of the word")
	fs.StringVar(&opts.record.Example, "example", "I ran into my old friend at the station.", "example sentence")
	fs.StringVar(&opts.record.Memo, "memo", "", "free-form note")
	fs.DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout (0 disables)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.url = strings.TrimSpace(opts.url)
	if opts.url == "" {
		return options{}, fmt.Errorf("url is required")
	}
	if err := opts.record.Validate(); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	client := webhook.NewClient(opts.url, opts.timeout)
	result, err := client.Send(ctx, memo.AddMemoEnvelope(opts.record))
	if err != nil {
		return err
	}
	logger.Info("webhook response", zap.ByteString("result", result))
	return nil
}
