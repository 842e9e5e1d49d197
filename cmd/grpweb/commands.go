package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grpweb/grpweb/internal/guard"
	"github.com/grpweb/grpweb/internal/resource"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in: run `grpweb login` first")

func newLoginCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in with credentials or a bearer token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, clientOptions{})
			if err != nil {
				return err
			}
			defer c.close()

			if cmd.Flags().Changed("token") {
				return reported(c.app.UseToken(cmd.Context(), []string{token}))
			}
			return reported(c.app.Login(cmd.Context(), args))
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Store this bearer token instead of signing in")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, clientOptions{})
			if err != nil {
				return err
			}
			defer c.close()
			return reported(c.app.Logout(cmd.Context()))
		},
	}
}

func newWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity of the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, clientOptions{})
			if err != nil {
				return err
			}
			defer c.close()
			if err := c.app.WhoAmI(cmd.Context()); err != nil {
				return errNotLoggedIn
			}
			return nil
		},
	}
}

func newDashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, clientOptions{})
			if err != nil {
				return err
			}
			defer c.close()
			return openView(c, cmd, guard.RouteDashboard)
		},
	}
}

func newQuoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quote",
		Short: "Print a random inspirational quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, clientOptions{})
			if err != nil {
				return err
			}
			defer c.close()
			return c.app.Quote()
		},
	}
}

func newTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Work with the session token",
	}
	tokenCmd.AddCommand(&cobra.Command{
		Use:   "copy",
		Short: "Copy the session token to the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, clientOptions{})
			if err != nil {
				return err
			}
			defer c.close()
			err = c.app.CopyToken(cmd.Context())
			if errors.Is(err, guard.ErrRedirected) {
				return errNotLoggedIn
			}
			return reported(err)
		},
	})
	return tokenCmd
}

type resourceView struct {
	short  string
	name   string
	fields []resource.Field
	route  guard.Route
}

func newResourceCommand(view resourceView) *cobra.Command {
	resourceCmd := &cobra.Command{
		Use:   string(view.route),
		Short: view.short,
	}

	resourceCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List every %s", view.name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, clientOptions{})
			if err != nil {
				return err
			}
			defer c.close()
			return openView(c, cmd, view.route)
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a %s", view.name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormCommand(cmd, view, nil)
		},
	}
	addFieldFlags(createCmd, view)
	resourceCmd.AddCommand(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Update a %s", view.name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormCommand(cmd, view, args)
		},
	}
	addFieldFlags(updateCmd, view)
	resourceCmd.AddCommand(updateCmd)

	var assumeYes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s", view.name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := clientOptions{}
			if assumeYes {
				options.confirmer = resource.ConfirmFunc(func(string) bool { return true })
			}
			c, err := newClient(cmd, options)
			if err != nil {
				return err
			}
			defer c.close()

			c.app.SetQuiet(true)
			if err := c.app.Open(cmd.Context(), view.route); err != nil {
				return errNotLoggedIn
			}
			c.app.SetQuiet(false)
			return reported(c.app.Delete(cmd.Context(), args))
		},
	}
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	resourceCmd.AddCommand(deleteCmd)

	return resourceCmd
}

// flagName maps a field such as "position_code" to its flag "code".
func flagName(view resourceView, field resource.Field) string {
	return strings.ReplaceAll(strings.TrimPrefix(field.Name, view.name+"_"), "_", "-")
}

func addFieldFlags(cmd *cobra.Command, view resourceView) {
	for _, field := range view.fields {
		cmd.Flags().String(flagName(view, field), "", field.Placeholder)
	}
}

// runFormCommand fills the form from flags and submits it. With an id the
// record is selected for editing first and only the given flags change it.
func runFormCommand(cmd *cobra.Command, view resourceView, args []string) error {
	c, err := newClient(cmd, clientOptions{})
	if err != nil {
		return err
	}
	defer c.close()

	ctx := cmd.Context()
	c.app.SetQuiet(true)
	if err := c.app.Open(ctx, view.route); err != nil {
		return errNotLoggedIn
	}
	if len(args) > 0 {
		if err := c.app.Edit(args); err != nil {
			return reported(err)
		}
	}
	for _, field := range view.fields {
		flag := flagName(view, field)
		if !cmd.Flags().Changed(flag) {
			continue
		}
		value, _ := cmd.Flags().GetString(flag)
		if err := c.app.Set([]string{field.Name, value}); err != nil {
			return reported(err)
		}
	}
	c.app.SetQuiet(false)
	return reported(c.app.Save(ctx))
}

func openView(c *client, cmd *cobra.Command, route guard.Route) error {
	if err := c.app.Open(cmd.Context(), route); err != nil {
		return errNotLoggedIn
	}
	return nil
}

func reported(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errReported, err)
}
