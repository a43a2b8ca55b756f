package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//	@title						Certification Documents API
//	@version					1.0
//	@description				Document workflow for certification applications.
//	@BasePath					/
//	@securityDefinitions.apikey	ActorID
//	@in							header
//	@name						X-Actor-ID
func main() {
	app := &cli.App{
		Name:  "certdocs",
		Usage: "Document workflow API for certification applications",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
