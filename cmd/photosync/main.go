package main

import (
	"fmt"
	"os"

	"github.com/Hedok25/photo-services/cmd/photosync/cli"
	"github.com/Hedok25/photo-services/cmd/photosync/cli/server"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	info := cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}
	root := cli.NewRootCommand(info)

	root.AddCommand(cli.NewVersionCommand(info))

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewSyncCommand())
	root.AddCommand(server.NewMigrateCommand())
	root.AddCommand(server.NewConfigCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
