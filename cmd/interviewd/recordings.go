package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/interview-coach/internal/blobstore"
	"github.com/GriffinCanCode/interview-coach/internal/config"
)

var recordingsCmd = &cobra.Command{
	Use:   "recordings",
	Short: "Manage stored interview recordings",
}

var recordingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored recordings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *blobstore.SQLiteStore) error {
			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recordings.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s %8s %10d bytes  %s\n",
					e.SessionID, e.MIMEType, e.Duration.Round(time.Millisecond), e.Size, e.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var outputFlag string

var recordingsGetCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Export a recording to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *blobstore.SQLiteStore) error {
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no recording for session %s", args[0])
			}
			path := outputFlag
			if path == "" {
				path = args[0] + extension(rec.MIMEType)
			}
			if err := os.WriteFile(path, rec.Data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(rec.Data), path)
			return nil
		})
	},
}

var recordingsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *blobstore.SQLiteStore) error {
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted recording %s\n", args[0])
			return nil
		})
	},
}

func init() {
	recordingsGetCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default <session-id>.<ext>)")

	recordingsCmd.AddCommand(recordingsListCmd)
	recordingsCmd.AddCommand(recordingsGetCmd)
	recordingsCmd.AddCommand(recordingsDeleteCmd)
}

func withStore(fn func(*blobstore.SQLiteStore) error) error {
	store, err := blobstore.Open(config.Load().RecordingsDB)
	if err != nil {
		return fmt.Errorf("opening recordings: %w", err)
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func extension(mime string) string {
	switch mime {
	case "audio/wav":
		return ".wav"
	case "video/mp4":
		return ".mp4"
	}
	return ".webm"
}
