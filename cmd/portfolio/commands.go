package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/client"
	"github.com/jrsteele09/portfolio-auth/gateway"
	"github.com/jrsteele09/portfolio-auth/session"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in: run `portfolio login` first")

// withClient runs fn with a freshly restored client stack
func (c *cli) withClient(cmd *cobra.Command, fn func(ctx context.Context, cl *client.Client) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	cl, err := c.newClient(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()
	return fn(ctx, cl)
}

// requireSignedIn applies the protected-route guard to a command
func requireSignedIn(cl *client.Client, from string) error {
	decision := cl.Session.Guard(true, from)
	if decision.Verdict == session.RedirectSignIn {
		return errNotSignedIn
	}
	return nil
}

func (c *cli) registerCmd() *cobra.Command {
	var input authmodel.SignUpInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. The token API signs you in straight away; the managed
identity provider emails a confirmation code, see 'portfolio confirm'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, cl *client.Client) error {
				result, err := cl.Session.SignUp(ctx, input)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if result.ConfirmationRequired {
					fmt.Fprintf(out, "Confirmation code sent to %s\n", result.Destination)
					return nil
				}
				fmt.Fprintf(out, "Signed in as %s\n", cl.Session.State().User.DisplayName())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&input.Username, "username", "", "Username")
	cmd.Flags().StringVar(&input.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password (required)")
	cmd.Flags().StringVar(&input.ConfirmPassword, "confirm-password", "", "Password again (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("confirm-password")
	return cmd
}

func (c *cli) confirmCmd() *cobra.Command {
	var input authmodel.ConfirmSignUpInput
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a pending registration with its emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, cl *client.Client) error {
				if err := cl.Session.ConfirmSignUp(ctx, input); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Account confirmed. Run 'portfolio login' to sign in.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.Username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&input.Code, "code", "", "Confirmation code (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var input authmodel.SignInInput
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input.Email == "" && input.Username == "" {
				return errors.New("one of --email or --username is required")
			}
			return c.withClient(cmd, func(ctx context.Context, cl *client.Client) error {
				if err := cl.Session.SignIn(ctx, input); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", cl.Session.State().User.DisplayName())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&input.Username, "username", "", "Username")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password (required)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Long:  `Clear the stored credentials. Issued tokens stay valid on the server until they expire.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, cl *client.Client) error {
				if err := cl.Session.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, cl *client.Client) error {
				if err := requireSignedIn(cl, "whoami"); err != nil {
					return err
				}
				return printJSON(cmd, cl.Session.State().User)
			})
		},
	}
}

func (c *cli) forgotPasswordCmd() *cobra.Command {
	var req authmodel.PasswordResetRequest
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Email == "" && req.Username == "" {
				return errors.New("one of --email or --username is required")
			}
			return c.withClient(cmd, func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Session.ForgotPassword(ctx, req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, resp.Message)
				if resp.Token != "" {
					fmt.Fprintf(out, "Reset token: %s\n", resp.Token)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Username, "username", "", "Username")
	return cmd
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var req authmodel.PasswordResetConfirm
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token or code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, cl *client.Client) error {
				resp, err := cl.Session.ConfirmForgotPassword(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Token, "token", "", "Reset token or emailed code (required)")
	cmd.Flags().StringVar(&req.NewPassword, "new-password", "", "New password (required)")
	cmd.Flags().StringVar(&req.Username, "username", "", "Username (managed identity provider only)")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("new-password")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	var method, data string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Call an API path with the stored session",
		Long: `Call an API path relative to API_BASE_URL, e.g. 'portfolio get /auth/me'.
An expired access token is refreshed once and the call retried.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, cl *client.Client) error {
				if err := requireSignedIn(cl, args[0]); err != nil {
					return err
				}
				req := gateway.Request{Method: strings.ToUpper(method)}
				if data != "" {
					req.Body = json.RawMessage(data)
				}
				resp, err := cl.Gateway.Execute(ctx, args[0], req)
				if err != nil {
					return err
				}
				if !resp.IsJSON() {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
					return nil
				}
				var pretty bytes.Buffer
				if err := json.Indent(&pretty, resp.JSON, "", "  "); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
