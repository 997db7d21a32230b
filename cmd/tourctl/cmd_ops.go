package main

import (
	"fmt"
	"time"

	"tourbook/internal/database"
	"tourbook/internal/export"

	"github.com/spf13/cobra"
)

// tourctl export
func newExportCmd(boot bootFunc) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all bookings to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := boot()
			if err != nil {
				return err
			}
			defer e.Close()

			if dir == "" {
				dir = e.cfg.Exports.Path
			}
			bookings, err := e.store.ListBookings(cmd.Context())
			if err != nil {
				return err
			}
			path, err := export.Save(dir, bookings, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookings to %s\n", len(bookings), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory (default exports.path)")
	return cmd
}

// tourctl backup
func newBackupCmd(boot bootFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Take a one-off SQLite backup and prune old ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := boot()
			if err != nil {
				return err
			}
			defer e.Close()

			db, ok := e.store.(*database.DB)
			if !ok {
				return fmt.Errorf("backup needs the sqlite driver, got %q", e.cfg.Database.Driver)
			}
			backups := database.NewBackupService(db, e.cfg.Backup, e.logger)
			path, err := backups.PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			backups.CleanupOldBackups()
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
			return nil
		},
	}
}
