package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fragmede/campus/internal/session"
)

func newLoginCmd(opts *options) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd, password)
			if err != nil {
				return err
			}
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.session.Login(cmd.Context(), args[0], secret)
			if !res.Success {
				if rt.session.State().LoggedIn() {
					return fmt.Errorf("%s (logged in, run `campus whoami` to retry loading the profile)", res.Error)
				}
				return errors.New(res.Error)
			}
			name := rt.session.State().User.DisplayName()
			if name == "" {
				name = args[0]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", name, res.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	return cmd
}

func newRegisterCmd(opts *options) *cobra.Command {
	var username, password, role string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Long:  `Create an account. Registering does not log you in; run "campus login" afterwards.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			secret, err := readSecret(cmd, password)
			if err != nil {
				return err
			}
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.session.Register(cmd.Context(), username, args[0], secret, role)
			if !res.Success {
				return errors.New(res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s. Run \"campus login %s\" to continue.\n", username, res.Role, args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Display name for the new account")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	cmd.Flags().StringVar(&role, "role", "student", "Account role: student or teacher")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Long:  `Validate the stored session against the service and print the profile. An expired session is forgotten.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			state, err := restore(cmd, rt.session)
			if err != nil {
				return err
			}
			return printProfile(cmd.OutOrStdout(), state)
		},
	}
}

// restore runs the startup check and returns a logged in state with its
// profile, or ErrNotLoggedIn.
func restore(cmd *cobra.Command, mgr *session.Manager) (session.State, error) {
	mgr.Restore(cmd.Context())
	state := mgr.State()
	if !state.LoggedIn() {
		return state, session.ErrNotLoggedIn
	}
	if state.ProfilePending {
		if err := mgr.RefreshProfile(cmd.Context()); err != nil {
			return state, err
		}
		state = mgr.State()
	}
	return state, nil
}

func printProfile(w io.Writer, state session.State) error {
	fmt.Fprintf(w, "%s (%s)\n", state.User.DisplayName(), state.Role)
	data, err := json.MarshalIndent(state.User, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting profile: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// readSecret returns flagValue, or prompts on stderr and reads one line
// from stdin.
func readSecret(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("password is required")
	}
	return secret, nil
}
