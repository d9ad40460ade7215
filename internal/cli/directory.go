package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

// requireAdmin allows the command when the directory is still empty, so
// the first admin can be created, and otherwise only for admins.
func requireAdmin(ctx context.Context) error {
	users, err := Users.List(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}
	user, err := currentUser()
	if err != nil {
		return err
	}
	if user.Role != models.RoleAdmin {
		return fmt.Errorf("only admins can change users and projects")
	}
	return nil
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var (
	userAddUsername       string
	userAddRole           string
	userAddOperatorNumber string
)

var userAddCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Add a user",
	Long: `Add an operator (digitador), leader or admin. While no users exist
anyone may add one; afterwards only admins can.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Users == nil {
			return fmt.Errorf("user directory not initialized")
		}
		role := models.Role(userAddRole)
		if !role.Valid() {
			return fmt.Errorf("invalid role %q (use digitador, leader or admin)", userAddRole)
		}

		ctx := commandContext(cmd)
		if err := requireAdmin(ctx); err != nil {
			return err
		}

		username := userAddUsername
		if username == "" {
			username = args[0]
		}
		user := models.User{ID: args[0], Username: username, Role: role, OperatorNumber: userAddOperatorNumber}
		if err := Users.Add(ctx, user); err != nil {
			return fmt.Errorf("adding user %s: %w", user.ID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added user %s (%s)\n", user.ID, user.Role)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Users == nil {
			return fmt.Errorf("user directory not initialized")
		}
		users, err := Users.List(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(users) == 0 {
			fmt.Fprintln(out, "No users found.")
			return nil
		}
		fmt.Fprintf(out, "%-12s %-10s %-8s %s\n", "ID", "ROLE", "NUMBER", "USERNAME")
		for _, u := range users {
			fmt.Fprintf(out, "%-12s %-10s %-8s %s\n", u.ID, u.Role, u.OperatorNumber, u.Username)
		}
		return nil
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var (
	projectAddName   string
	projectAddLeader string
)

var projectAddCmd = &cobra.Command{
	Use:   "add <project-id>",
	Short: "Add a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil || Users == nil {
			return fmt.Errorf("project directory not initialized")
		}

		ctx := commandContext(cmd)
		if err := requireAdmin(ctx); err != nil {
			return err
		}
		if projectAddLeader != "" {
			leader, err := Users.Get(ctx, projectAddLeader)
			if err != nil {
				return fmt.Errorf("looking up leader %s: %w", projectAddLeader, err)
			}
			if leader.Role != models.RoleLeader {
				return fmt.Errorf("user %s is a %s, not a leader", leader.ID, leader.Role)
			}
		}

		name := projectAddName
		if name == "" {
			name = args[0]
		}
		project := models.Project{ID: args[0], Name: name, LeaderID: projectAddLeader}
		if err := Projects.Add(ctx, project); err != nil {
			return fmt.Errorf("adding project %s: %w", project.ID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added project %s\n", project.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project directory not initialized")
		}
		projects, err := Projects.List(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(projects) == 0 {
			fmt.Fprintln(out, "No projects found.")
			return nil
		}
		fmt.Fprintf(out, "%-12s %-12s %s\n", "ID", "LEADER", "NAME")
		for _, p := range projects {
			leader := p.LeaderID
			if leader == "" {
				leader = "-"
			}
			fmt.Fprintf(out, "%-12s %-12s %s\n", p.ID, leader, p.Name)
		}
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userAddUsername, "username", "", "Display name (defaults to the id)")
	userAddCmd.Flags().StringVar(&userAddRole, "role", string(models.RoleDigitador), "Role: digitador, leader or admin")
	userAddCmd.Flags().StringVar(&userAddOperatorNumber, "operator-number", "", "Operator number")
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)

	projectAddCmd.Flags().StringVar(&projectAddName, "name", "", "Project name (defaults to the id)")
	projectAddCmd.Flags().StringVar(&projectAddLeader, "leader", "", "User id of the project leader")
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)

	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(projectCmd)
}
