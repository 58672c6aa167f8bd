package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRegisterCmd(app *App) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: app.runE(func(cmd *cobra.Command) error {
			name, err := app.text(name, "Enter name")
			if err != nil {
				return err
			}
			email, err := app.text(email, "Enter email")
			if err != nil {
				return err
			}
			password, err := getPassword(app.out, "Enter password")
			if err != nil {
				return err
			}

			ctx, cancel := app.requestContext(cmd)
			defer cancel()

			reg, err := app.client.Register(ctx, name, email, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.out, "User created successfully: %s <%s>\n", reg.Name, reg.Email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")

	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: app.runE(func(cmd *cobra.Command) error {
			email, err := app.text(email, "Enter email")
			if err != nil {
				return err
			}
			password, err := getPassword(app.out, "Enter password")
			if err != nil {
				return err
			}

			ctx, cancel := app.requestContext(cmd)
			defer cancel()

			sess, err := app.client.Login(ctx, email, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.out, "Logged in as %s <%s>\n", sess.Account.Name, sess.Account.Email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")

	return cmd
}

func newRefreshCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored session tokens",
		RunE: app.runE(func(cmd *cobra.Command) error {
			ctx, cancel := app.requestContext(cmd)
			defer cancel()

			if _, err := app.client.Refresh(ctx); err != nil {
				return err
			}

			fmt.Fprintln(app.out, "Session refreshed")
			return nil
		}),
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: app.runE(func(cmd *cobra.Command) error {
			ctx, cancel := app.requestContext(cmd)
			defer cancel()

			if err := app.client.Logout(ctx); err != nil {
				return err
			}

			fmt.Fprintln(app.out, "User logged out successfully")
			return nil
		}),
	}
}

func newMeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in account",
		RunE: app.runE(func(cmd *cobra.Command) error {
			ctx, cancel := app.requestContext(cmd)
			defer cancel()

			acc, err := app.client.Me(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.out, "ID:      %s\n", acc.ID)
			fmt.Fprintf(app.out, "Name:    %s\n", acc.Name)
			fmt.Fprintf(app.out, "Email:   %s\n", acc.Email)
			fmt.Fprintf(app.out, "Role:    %s\n", acc.Role)
			fmt.Fprintf(app.out, "Created: %s\n", acc.CreatedAt.Format(time.RFC3339))
			return nil
		}),
	}
}

func newChangePasswordCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Change the password of the signed-in account",
		RunE: app.runE(func(cmd *cobra.Command) error {
			current, err := getPassword(app.out, "Current password")
			if err != nil {
				return err
			}
			next, err := getPassword(app.out, "New password")
			if err != nil {
				return err
			}
			confirmation, err := getPassword(app.out, "Repeat new password")
			if err != nil {
				return err
			}

			ctx, cancel := app.requestContext(cmd)
			defer cancel()

			if err := app.client.ChangePassword(ctx, current, next, confirmation); err != nil {
				return err
			}

			fmt.Fprintln(app.out, "Password changed successfully")
			return nil
		}),
	}
}

func newForgotPasswordCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Mail a password reset link",
		RunE: app.runE(func(cmd *cobra.Command) error {
			email, err := app.text(email, "Enter email")
			if err != nil {
				return err
			}

			ctx, cancel := app.requestContext(cmd)
			defer cancel()

			if err := app.client.ForgotPassword(ctx, email); err != nil {
				return err
			}

			fmt.Fprintln(app.out, "Password reset email sent")
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")

	return cmd
}

func newResetPasswordCmd(app *App) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a mailed reset token",
		RunE: app.runE(func(cmd *cobra.Command) error {
			token, err := app.text(token, "Enter reset token")
			if err != nil {
				return err
			}
			password, err := getPassword(app.out, "New password")
			if err != nil {
				return err
			}

			ctx, cancel := app.requestContext(cmd)
			defer cancel()

			if err := app.client.ResetPassword(ctx, token, password); err != nil {
				return err
			}

			fmt.Fprintln(app.out, "Password reset successfully")
			return nil
		}),
	}

	cmd.Flags().StringVar(&token, "token", "", "reset token from the email")

	return cmd
}

// getPassword is an indirection used to facilitate testing.
var getPassword = GetPassword
