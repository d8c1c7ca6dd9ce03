// Command dashboard is the terminal client of the Kite portfolio dashboard.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	commands := []subcommands.Command{
		&chatCmd{cfg: cfg},
		&holdingsCmd{cfg: cfg},
		&sectorsCmd{cfg: cfg},
		&newsCmd{cfg: cfg},
		&loginCmd{cfg: cfg},
	}

	name := path.Base(os.Args[0])
	completion(commands).Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(int(commander.Execute(ctx)))
}

// completion describes every subcommand and its flags for shell completion.
func completion(commands []subcommands.Command) *complete.Command {
	root := &complete.Command{Sub: make(map[string]*complete.Command, len(commands))}
	for _, c := range commands {
		sub := &complete.Command{Flags: map[string]complete.Predictor{}}
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		fs.VisitAll(func(f *flag.Flag) {
			if f.Name == "transport" {
				sub.Flags[f.Name] = predict.Set{"http", "ws"}
				return
			}
			sub.Flags[f.Name] = predict.Nothing
		})
		root.Sub[c.Name()] = sub
	}
	return root
}
