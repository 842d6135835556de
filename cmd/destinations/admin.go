package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shpitdev/destination-pipeline/internal/version"
	"github.com/spf13/cobra"
)

func (c *cli) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record from the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the index without --yes")
			}
			if err := c.app.Index.ClearIndex(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.stdout, "index cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing the index")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics and settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.app.Index.GetIndexStats(cmd.Context())
			if err != nil {
				return err
			}
			return c.printJSON(st)
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <objectID>",
		Short: "Print one published record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.app.Index.GetRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("record %q not found", args[0])
			}
			return c.printJSON(rec)
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <objectID>...",
		Short: "Delete records by objectID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Index.DeleteRecords(cmd.Context(), args); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "deleted %d records\n", len(args))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Current)
			return err
		},
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
