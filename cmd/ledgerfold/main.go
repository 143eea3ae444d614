package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/ledgerfold/ledgerfold/cli"
)

var (
	// Version contains the application version number. It's set via ldflags
	// when building.
	Version = ""

	// CommitSHA contains the SHA of the commit that this application was built
	// against. It's set via ldflags when building.
	CommitSHA = ""

	cliStruct struct {
		Version kong.VersionFlag `help:"Show version information"`
		cli.Commands
	}
)

func main() {
	// Set version information in cli package
	cli.Version = Version
	cli.CommitSHA = CommitSHA

	ctx := kong.Parse(&cliStruct,
		kong.Vars{
			"version": buildVersion(),
		},
		kong.Name("ledgerfold"),
		kong.Description("A double-entry plain-text accounting engine."),
		kong.UsageOnError(),
		kong.Bind(&cliStruct.Globals),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func buildVersion() string {
	if Version == "" {
		Version = "dev"
	}
	if CommitSHA == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, CommitSHA)
}
