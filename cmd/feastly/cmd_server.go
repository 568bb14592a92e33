package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/feastly/feastly/app/gateway"
	"github.com/feastly/feastly/app/repositories/memory"
	"github.com/feastly/feastly/internal/kernel"
	"github.com/feastly/feastly/internal/server"
	"github.com/feastly/feastly/pkg/ws"
)

var serveWorkers int

// feastly serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(serveWorkers)
	},
}

// feastly route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printRoutes(cmd.OutOrStdout())
	},
}

// printRoutes assembles the kernel on throwaway infrastructure; only the
// route table is read.
func printRoutes(out io.Writer) error {
	k, err := kernel.New(kernel.Deps{
		Store:   memory.NewStore(),
		Gateway: gateway.NewCashfree(gateway.Config{}),
		Hub:     ws.NewHub(),
	})
	if err != nil {
		return err
	}

	infos := k.Router.Routes()
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Path != infos[j].Path {
			return infos[i].Path < infos[j].Path
		}
		return infos[i].Method < infos[j].Method
	})

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}

func init() {
	serveCmd.Flags().IntVarP(&serveWorkers, "workers", "w", 2, "Queue consumers to run inside the server process")
}
