package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"telnetd/internal/app"
	"telnetd/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn"},
	Short:   "Inspect recorded telnet sessions",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := app.Boot(cfgFile, !verbose); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

var (
	verbose   bool
	listLimit int
)

func init() {
	connectionsCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	connectionsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "number of sessions to show (0 for all)")
	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsShowCmd)
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent sessions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		records, err := app.Store.ListConnections(listLimit)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Remote", "Terminal", "Connected", "Duration", "Traffic", "Reason"})
		table.SetBorder(false)
		table.SetCaption(true, fmt.Sprintf("Total: %d sessions.", len(records)))
		for _, r := range records {
			table.Append([]string{
				strconv.FormatUint(uint64(r.ID), 10),
				r.RemoteAddr,
				orUnknown(r.TerminalType),
				humanize.Time(r.ConnectedAt),
				r.Duration().Round(time.Second).String(),
				fmt.Sprintf("%s in / %s out", humanize.Bytes(uint64(r.BytesIn)), humanize.Bytes(uint64(r.BytesOut))),
				status(&r),
			})
		}
		table.Render()
	},
}

var connectionsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Display one recorded session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			log.Fatalf("Error: invalid id %q", args[0])
		}

		r, err := app.Store.FindConnection(uint(id))
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID:\t%d\n", r.ID)
		fmt.Fprintf(w, "Connection:\t#%d\n", r.ConnectionID)
		fmt.Fprintf(w, "Remote:\t%s\n", r.RemoteAddr)
		fmt.Fprintf(w, "Terminal:\t%s\n", orUnknown(r.TerminalType))
		if r.Width > 0 && r.Height > 0 {
			fmt.Fprintf(w, "Window:\t%dx%d\n", r.Width, r.Height)
		}
		fmt.Fprintf(w, "Connected At:\t%s\n", r.ConnectedAt.Local().Format(timeLayout))
		if r.DisconnectedAt != nil {
			fmt.Fprintf(w, "Disconnected At:\t%s\n", r.DisconnectedAt.Local().Format(timeLayout))
		}
		fmt.Fprintf(w, "Duration:\t%s\n", r.Duration().Round(time.Second))
		fmt.Fprintf(w, "Bytes In:\t%s\n", humanize.Bytes(uint64(r.BytesIn)))
		fmt.Fprintf(w, "Bytes Out:\t%s\n", humanize.Bytes(uint64(r.BytesOut)))
		fmt.Fprintf(w, "Reason:\t%s\n", status(r))
		w.Flush()
	},
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func status(r *store.ConnectionRecord) string {
	if r.Open() {
		return "open"
	}
	return r.Reason
}
