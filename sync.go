package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chxlky/forum-trello-sync/internal/apperr"
	"github.com/chxlky/forum-trello-sync/internal/reconcile"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var removeExtra bool

var syncCmd = &cobra.Command{
	Use:   "sync <server-id>",
	Short: "Sync one server's forums to its Trello board and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fmt.Errorf("failed to initialise: %w", err)
		}
		defer a.close()

		// Interrupts stop new per-item work; in-flight calls finish.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := reconcile.Options{RemoveExtra: viper.GetBool("sync.remove_extra")}
		if cmd.Flags().Changed("remove-extra") {
			opts.RemoveExtra = removeExtra
		}

		rep, err := a.engine.Sync(ctx, args[0], opts)
		if err != nil {
			if e, ok := apperr.As(err); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%s\n", e.Title, e.Description)
			}
			return err
		}

		if rep.Skipped()+rep.Failed() > 0 {
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Status", "Action", "Kind", "Discord", "Trello", "Reason"})
			for _, o := range rep.Outcomes {
				if o.Status == reconcile.StatusSucceeded {
					continue
				}
				reason := ""
				if o.Err != nil {
					reason = o.Err.Error()
				}
				tw.AppendRow(table.Row{o.Status, o.Action, o.Kind, o.DiscordID, o.TrelloID, reason})
			}
			tw.Render()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sync attempted: %d succeeded, %d skipped, %d failed\n",
			rep.Succeeded(), rep.Skipped(), rep.Failed())
		zap.L().Debug("Sync command finished", zap.String("serverID", args[0]))
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&removeExtra, "remove-extra", false, "delete board labels that match no forum tag")
}
