package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"tds-relay/cmd/ask"
	"tds-relay/cmd/serve"
	"tds-relay/config"
)

func main() {
	app := &cli.App{
		Name:  "tds-relay",
		Usage: "Relay questions to a managed assistant and return {answer, links}",
		Before: func(ctx *cli.Context) error {
			return config.LoadDotEnv()
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Serve the chat page and the query API",
				Flags:   config.ServerFlags(),
				Action:  serve.Serve,
			},
			{
				Name:      "ask",
				Aliases:   []string{"a"},
				Usage:     "Send a single question to the assistant and print the normalized reply",
				ArgsUsage: "QUESTION",
				Flags:     ask.Flags(),
				Action:    ask.Ask,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
