package main

import (
	"fmt"
	"text/tabwriter"

	"tourbook/internal/auth"
	"tourbook/internal/models"
	"tourbook/internal/service"

	"github.com/spf13/cobra"
)

func newUserService(e *env) *service.UserService {
	return service.NewUserService(e.store, auth.NewTokenManager(e.cfg.API.Auth), e.logger)
}

// tourctl user add|list|delete
func newUserCmd(boot bootFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	var name, email, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create or update a user by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := boot()
			if err != nil {
				return err
			}
			defer e.Close()

			user := &models.User{Name: name, Email: email, Role: role}
			if err := newUserService(e).SaveUser(cmd.Context(), user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved user %s (%s, %s)\n", user.Email, user.ID, user.Role)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&email, "email", "", "login email")
	add.Flags().StringVar(&role, "role", models.RoleUser, "user or admin")
	_ = add.MarkFlagRequired("email")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := boot()
			if err != nil {
				return err
			}
			defer e.Close()

			users, err := newUserService(e).ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tDELETED")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Email, u.Name, u.Role, u.IsDeleted())
			}
			return tw.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a user; their tokens stop working",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := boot()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := newUserService(e).DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

// tourctl token
func newTokenCmd(boot bootFunc) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := boot()
			if err != nil {
				return err
			}
			defer e.Close()

			token, _, err := newUserService(e).IssueToken(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
