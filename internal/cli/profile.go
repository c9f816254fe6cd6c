package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProfileCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile",
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
	cmd.AddCommand(newProfileUpdateCmd(opts))
	return cmd
}

func newProfileUpdateCmd(opts *options) *cobra.Command {
	var sets []string
	var raw string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Send profile changes",
		Long: `Send profile changes to the service. Use --set key=value once per field,
or --json with a complete object. Values that parse as JSON (numbers, true,
false, null, arrays, objects) are sent as such; anything else is a string.`,
		Example: `  campus profile update --set name="Ana Lima" --set semester=3
  campus profile update --json '{"bio":"hello"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := buildPatch(sets, raw)
			if err != nil {
				return err
			}
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := restore(cmd, rt.session); err != nil {
				return err
			}
			res := rt.session.UpdateProfile(cmd.Context(), patch)
			if !res.Success {
				return errors.New(res.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile updated.")
			return printProfile(cmd.OutOrStdout(), rt.session.State())
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment key=value (repeatable)")
	cmd.Flags().StringVar(&raw, "json", "", "Patch as a JSON object")
	cmd.MarkFlagsMutuallyExclusive("set", "json")
	return cmd
}

// buildPatch turns --set pairs or a --json object into a patch body.
func buildPatch(sets []string, raw string) (json.RawMessage, error) {
	if raw != "" {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
			return nil, errors.New("--json must be a JSON object")
		}
		return json.RawMessage(raw), nil
	}
	if len(sets) == 0 {
		return nil, errors.New("nothing to update: pass --set key=value or --json")
	}

	fields := make(map[string]json.RawMessage, len(sets))
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", s)
		}
		if json.Valid([]byte(value)) && value != "" {
			fields[key] = json.RawMessage(value)
			continue
		}
		quoted, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", key, err)
		}
		fields[key] = quoted
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding patch: %w", err)
	}
	return patch, nil
}
