package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/zhouzirui/kite-dashboard/backend/internal/client"
	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/chatbot"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/search"
	"github.com/zhouzirui/kite-dashboard/backend/internal/session"
	"github.com/zhouzirui/kite-dashboard/backend/internal/storage/holdings"
)

const chatPrompt = "you> "

type chatCmd struct {
	cfg       *config.Config
	transport string
	timeout   time.Duration
	local     bool
}

func (*chatCmd) Name() string     { return "chat" }
func (*chatCmd) Synopsis() string { return "talk to the portfolio assistant" }
func (*chatCmd) Usage() string {
	return `chat [-transport http|ws] [-timeout <duration>] [-local] [message...]

  Starts an interactive chat. Messages given as arguments are sent first.
  Type 'bye' or press Ctrl+D to exit.
`
}

func (c *chatCmd) SetFlags(f *flag.FlagSet) {
	transport, timeout := "http", time.Duration(0)
	if c.cfg != nil {
		transport, timeout = c.cfg.Client.Transport, c.cfg.Client.RequestTimeout
	}
	f.StringVar(&c.transport, "transport", transport, "chat transport: http or ws")
	f.DurationVar(&c.timeout, "timeout", timeout, "give up on a reply after this long (0 waits forever)")
	f.BoolVar(&c.local, "local", false, "answer in-process with the configured language model instead of calling the backend")
}

func (c *chatCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, closeFn, err := c.service(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing chat: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	var opts []session.Option
	if c.timeout > 0 {
		opts = append(opts, session.WithTimeout(c.timeout))
	}
	sess := session.New(svc, opts...)

	out := newTranscript(os.Stdout, newRenderer(), false)
	session.NewAdapter(out.render, out.scroll).Attach(sess)

	if err := runChat(ctx, sess, os.Stdin, os.Stdout, f.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// service picks the backend the session talks to.
func (c *chatCmd) service(ctx context.Context) (session.Service, func(), error) {
	if c.local {
		db, err := holdings.Open(c.cfg.Storage.HoldingsDB)
		if err != nil {
			return nil, nil, err
		}
		repo := holdings.NewRepository(db)

		var webSearch chatbot.ArticleSearcher
		if c.cfg.Market.TavilyAPIKey != "" {
			webSearch = search.NewTavilyClient(c.cfg.Market.TavilyAPIKey, c.cfg.Market.TavilyBaseURL, nil)
		}
		llm, err := chatbot.NewToolCompleter(ctx, c.cfg.AI, repo, webSearch)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return chatbot.NewService(llm, repo), func() { db.Close() }, nil
	}

	switch c.transport {
	case "ws":
		ws, err := client.NewWSTransport(c.cfg.Client.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return ws, func() { ws.Close() }, nil
	case "http":
		return client.New(c.cfg.Client.BaseURL, nil), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", c.transport)
	}
}

// runChat feeds queued messages, then lines from r, into sess until EOF, a
// farewell or ctx cancellation. Each reply is awaited before reading on.
func runChat(ctx context.Context, sess *session.Session, r io.Reader, w io.Writer, queued []string) error {
	reader := bufio.NewReader(r)
	for {
		fmt.Fprint(w, chatPrompt)

		var line string
		if len(queued) > 0 {
			line, queued = queued[0], queued[1:]
			fmt.Fprintln(w, line)
		} else {
			var err error
			line, err = reader.ReadString('\n')
			if err != nil && (err != io.EOF || line == "") {
				if err == io.EOF {
					fmt.Fprintln(w)
					return nil
				}
				return err
			}
		}

		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "bye") || strings.EqualFold(line, "exit") {
			return nil
		}

		sess.SetInput(line)
		done, ok := sess.SendInput(ctx)
		if !ok {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil
		}
	}
}
