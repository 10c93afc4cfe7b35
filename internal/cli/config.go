package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tbckr/mailcheck/internal/config"
	"github.com/tbckr/mailcheck/internal/output"
)

func newConfigCmd(d *deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Inspect and change the mailcheck config file",
		GroupID: "utility",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), d.cfg.ConfigFile)
				return err
			},
		},
		&cobra.Command{
			Use:     "show",
			Aliases: []string{"cat"},
			Short:   "Display every effective setting",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				settings, err := effectiveSettings(d.cfg)
				if err != nil {
					return err
				}
				return writeResult(cmd.OutOrStdout(), d, settings)
			},
		},
		&cobra.Command{
			Use:               "get <key>",
			Short:             "Print the effective value of a setting",
			Args:              cobra.ExactArgs(1),
			ValidArgsFunction: completeKeyThenValue,
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := d.cfg.Value(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
				return err
			},
		},
		&cobra.Command{
			Use:               "set <key> <value>",
			Short:             "Validate a setting and persist it to the config file",
			Args:              cobra.ExactArgs(2),
			ValidArgsFunction: completeKeyThenValue,
			RunE: func(_ *cobra.Command, args []string) error {
				if err := config.SetFileValue(d.cfg.ConfigFile, args[0], args[1]); err != nil {
					return err
				}
				d.logger.Debug("config updated", "key", config.NormalizeKey(args[0]), "file", d.cfg.ConfigFile)
				return nil
			},
		},
	)
	return cmd
}

func completeKeyThenValue(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return config.KeyCompletions(args[0]), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// settings is the effective configuration as sorted key/value pairs. It
// includes defaults, the config file, env vars and flag overrides.
type settings [][2]string

func effectiveSettings(cfg *config.Config) (settings, error) {
	keys := config.ValidKeys()
	slices.Sort(keys)

	out := make(settings, 0, len(keys))
	for _, k := range keys {
		v, err := cfg.Value(k)
		if err != nil {
			return nil, err
		}
		out = append(out, [2]string{k, v})
	}
	return out, nil
}

func (s settings) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(s))
	for _, kv := range s {
		m[kv[0]] = kv[1]
	}
	return json.Marshal(m)
}

func (s settings) WritePlain(w io.Writer) error {
	for _, kv := range s {
		if _, err := fmt.Fprintf(w, "%s=%s\n", kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func (s settings) WriteTable(w io.Writer) error {
	rows := make([][]string, len(s))
	for i, kv := range s {
		rows[i] = []string{kv[0], output.Cell(kv[1])}
	}
	table := output.NewTable(w, output.ConfigLayout)
	table.Header([]string{"KEY", "VALUE"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
