package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"toastd/internal/transport/httpapi"
)

func (cf *clientFlags) client() *httpapi.Client {
	return httpapi.NewClient(cf.addr, cf.token)
}

func sendCmd(cf *clientFlags) *cobra.Command {
	var req httpapi.CreateRequest
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "send [title]",
		Short: "Show a new toast",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Title = args[0]
			}
			if duration > 0 {
				req.Duration = duration.String()
			}
			id, err := cf.client().Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "body text")
	cmd.Flags().StringVarP(&req.Variant, "variant", "v", "", "variant (default, destructive, success, warning, info)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "auto-dismiss after this long")
	return cmd
}

func listCmd(cf *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List toasts in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			toasts, err := cf.client().List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOPEN\tVARIANT\tTITLE\tCREATED")
			for _, t := range toasts {
				fmt.Fprintf(tw, "%s\t%v\t%s\t%s\t%s\n", t.ID, t.Open, t.Variant, t.Title, humanize.Time(t.CreatedAt))
			}
			return tw.Flush()
		},
	}
}

func dismissCmd(cf *clientFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "dismiss [id]",
		Short: "Close a toast (or all with --all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := targetID(args, all)
			if err != nil {
				return err
			}
			return cf.client().Dismiss(cmd.Context(), id)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "dismiss every toast")
	return cmd
}

func removeCmd(cf *clientFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "Drop a toast immediately (or all with --all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := targetID(args, all)
			if err != nil {
				return err
			}
			return cf.client().Remove(cmd.Context(), id)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove every toast")
	return cmd
}

func targetID(args []string, all bool) (string, error) {
	switch {
	case all && len(args) > 0:
		return "", fmt.Errorf("--all takes no id")
	case all:
		return "", nil
	case len(args) == 0 || strings.TrimSpace(args[0]) == "":
		return "", fmt.Errorf("an id or --all is required")
	}
	return strings.TrimSpace(args[0]), nil
}

func historyCmd(cf *clientFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			entries, err := cf.client().History(ctx, limit)
			if err != nil {
				if httpapi.IsNotFound(err) {
					return fmt.Errorf("history is disabled on the daemon (no storage configured)")
				}
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tID\tEVENT\tREASON\tTITLE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", humanize.Time(e.At), e.ToastID, e.Kind, e.Reason, e.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}
