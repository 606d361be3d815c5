package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/samvad-hq/webtext/internal/app"
	"github.com/samvad-hq/webtext/internal/domain"
)

// errTransport marks a plain-mode transport failure already reported on stderr.
var errTransport = errors.New("transport failure")

// CLI is the command line of the webtext binary.
type CLI struct {
	Get     GetCmd     `cmd:"" help:"Issue a GET request and print the response text."`
	Post    PostCmd    `cmd:"" help:"POST text and print the response text."`
	History HistoryCmd `cmd:"" help:"List journaled exchanges, newest first."`
}

// RequestFlags are shared by get and post.
type RequestFlags struct {
	Mode   string        `short:"m" default:"sync" help:"Call shape: sync, async, callback or async-callback."`
	Every  time.Duration `help:"Repeat the request at this interval until interrupted."`
	Status bool          `short:"s" help:"Print the status code before the text (callback modes only)."`
}

type GetCmd struct {
	URL          string `arg:"" help:"URL to fetch."`
	RequestFlags `embed:""`
}

type PostCmd struct {
	URL          string `arg:"" help:"URL to post to."`
	Body         string `short:"b" xor:"body" help:"Body text."`
	BodyFile     string `type:"existingfile" xor:"body" help:"Read the body text from a file."`
	ContentType  string `short:"t" help:"Content-Type of the body (default application/json)."`
	RequestFlags `embed:""`
}

type HistoryCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum number of exchanges to list (0 for all)."`
}

func (cli *CLI) dispatch(ctx context.Context, command string, runner *app.Runner, w io.Writer) error {
	switch command {
	case "get <url>":
		return cli.Get.RequestFlags.exec(ctx, runner, w, app.Call{Method: http.MethodGet, URL: cli.Get.URL})
	case "post <url>":
		body, err := cli.Post.body()
		if err != nil {
			return err
		}
		call := app.Call{Method: http.MethodPost, URL: cli.Post.URL, Body: body, ContentType: cli.Post.ContentType}
		return cli.Post.RequestFlags.exec(ctx, runner, w, call)
	case "history":
		return cli.History.exec(runner, w)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (p *PostCmd) body() (string, error) {
	if p.BodyFile == "" {
		return p.Body, nil
	}
	raw, err := os.ReadFile(p.BodyFile)
	if err != nil {
		return "", fmt.Errorf("read body file: %w", err)
	}
	return string(raw), nil
}

func (f RequestFlags) exec(ctx context.Context, runner *app.Runner, w io.Writer, call app.Call) error {
	mode, err := app.ParseMode(f.Mode)
	if err != nil {
		return err
	}
	call.Mode = mode

	emit := func(ex domain.Exchange) error {
		return writeExchange(w, ex, f.Status)
	}

	if f.Every > 0 {
		return runner.Watch(ctx, call, f.Every, emit)
	}

	ex, err := runner.Exchange(ctx, call)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return fmt.Errorf("interrupted: %w", err)
	}
	if err != nil {
		if ex.ID == "" {
			return err
		}
		fmt.Fprintf(os.Stderr, "webtext: %v\n", err)
		return errTransport
	}
	return emit(ex)
}

func writeExchange(w io.Writer, ex domain.Exchange, withStatus bool) error {
	if withStatus && ex.HasStatus {
		if _, err := fmt.Fprintln(w, ex.Status); err != nil {
			return err
		}
	}
	text := ex.Text
	if ex.Failed() && !ex.HasStatus {
		text = ex.Error
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func (h HistoryCmd) exec(runner *app.Runner, w io.Writer) error {
	list, err := runner.History(h.Limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, ex := range list {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}
	return nil
}
