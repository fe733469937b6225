package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalln("avsnode failed:", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "avsnode",
		Usage: "BLS quorum aggregation and transaction submission node",
		Commands: []*cli.Command{
			RunCommand(),
			KeygenCommand(),
			PopCommand(),
			SignCommand(),
			VerifyCommand(),
		},
	}
}
