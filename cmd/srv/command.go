package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	s.app = cli.NewApp()
	s.app.Action = cli.ShowAppHelp
	s.app.Name = "referral"
	s.app.Usage = "Referral contest bot of a telegram channel"
	s.app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path of the toml config file",
			EnvVars: []string{"CONFIG_FILE"},
		},
	}
	s.app.Before = s.loadConfig
	s.app.Commands = []*cli.Command{
		{
			Action:      s.startBot,
			Name:        "bot",
			Usage:       "Start the telegram bot",
			Category:    "Bot",
			Description: `Long-polls telegram updates, runs the cron jobs and serves the metrics endpoint.`,
		},
		{
			Action:      s.startNotifier,
			Name:        "notifier",
			Usage:       "Start the operator notifier",
			Category:    "Worker",
			Description: `Consumes referral and closure events from kafka and forwards them to the operators.`,
		},
		{
			Action:   s.startMigrate,
			Name:     "migrate",
			Usage:    "Migrate the database",
			Category: "Database",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "version",
					Value: "latest",
					Usage: "Migrator to run: latest or auto",
				},
			},
		},
		{
			Action:      s.startCloseWeek,
			Name:        "close-week",
			Usage:       "Close the current week",
			Category:    "Closure",
			Description: `Archives the claims of the current week and writes the winners report.`,
			Flags:       closureFlags(),
		},
		{
			Action:      s.startCloseMonth,
			Name:        "close-month",
			Usage:       "Close the current month",
			Category:    "Closure",
			Description: `Totals the archived weeks of the month and writes the winners report.`,
			Flags:       closureFlags(),
		},
	}
}

func closureFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:  "operator",
			Usage: "Operator id which runs the closure, defaults to the first configured one",
		},
		&cli.StringFlag{
			Name:  "output",
			Value: ".",
			Usage: "Directory of the winners report",
		},
	}
}
