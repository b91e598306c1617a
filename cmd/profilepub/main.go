package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/fairspec/profilepub/cmd/profilepub/commands"
	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
	"github.com/fairspec/profilepub/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("profilepub"),
		kong.Description("Publish versioned copies of the Fairspec profiles with resolved references"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default()}
	err := parser.Run(global, &cli)

	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
