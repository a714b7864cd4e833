package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/ldx/am"
	"github.com/teranos/ldx/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage ldx configuration",
	Long: `Manage ldx configuration ("I am")

Display and check the configuration the CLI and server run with.

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/ldx/am.toml)
3. User config (~/.ldx/am.toml)
4. Project config (am.toml, searching up from the working directory)
5. Environment variables (LDX_* prefix)

Examples:
  ldx am show                    # Show current configuration
  ldx am show --format json      # Show configuration in JSON format
  ldx am get channel.strategy    # Get specific config value
  ldx am validate                # Validate current configuration
  ldx am where                   # Show where each value came from`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective ldx configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., server.port, nats.subject_prefix)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `List every effective setting with the source that supplied it, and which
configuration files exist on the search path.`,
	RunE: runAmWhere,
}

func init() {
	amShowCmd.Flags().String("format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	format, _ := cmd.Flags().GetString("format")
	data, err := am.Render(format)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != "json" {
		fmt.Fprintln(out, "# ldx configuration")
	}
	fmt.Fprint(out, string(data))
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !am.GetViper().IsSet(key) {
		return errors.WithHint(
			errors.Wrapf(errors.ErrNotFound, "configuration key %q", key),
			"list keys with: ldx am where",
		)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	settings, err := am.Settings()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	files := pterm.TableData{{"Source", "Path", "Status"}}
	for _, f := range am.SearchPath() {
		status := "missing"
		if _, err := os.Stat(f.Path); err == nil {
			status = "loaded"
		}
		files = append(files, []string{string(f.Source), f.Path, status})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(files).Render(); err != nil {
		return errors.Wrap(err, "render search path")
	}
	fmt.Fprintln(out)
	return renderSettings(out, settings)
}

func renderSettings(out io.Writer, settings []am.SettingInfo) error {
	data := pterm.TableData{{"Key", "Value", "Source", "From"}}
	for _, s := range settings {
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
		return errors.Wrap(err, "render settings")
	}
	return nil
}
