package config

import (
	"github.com/spf13/cobra"

	"github.com/tbckr/mailcheck/internal/httpclient"
)

// CompleteOutputFormat provides shell completion candidates for --output.
func CompleteOutputFormat(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return KeyCompletions("output"), cobra.ShellCompDirectiveNoFileComp
}

// CompleteDNSBackend provides shell completion candidates for --dns-backend.
func CompleteDNSBackend(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return KeyCompletions("dns_backend"), cobra.ShellCompDirectiveNoFileComp
}

// CompleteLogFormat provides shell completion candidates for --log-format.
func CompleteLogFormat(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return KeyCompletions("log_format"), cobra.ShellCompDirectiveNoFileComp
}

// CompleteUserAgent offers the browser presets for --user-agent.
func CompleteUserAgent(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return httpclient.PresetNames(), cobra.ShellCompDirectiveNoFileComp
}

// RegisterFlagCompletions attaches the enum completions to cmd's persistent flags.
func RegisterFlagCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("output", CompleteOutputFormat)
	_ = cmd.RegisterFlagCompletionFunc("dns-backend", CompleteDNSBackend)
	_ = cmd.RegisterFlagCompletionFunc("log-format", CompleteLogFormat)
	_ = cmd.RegisterFlagCompletionFunc("user-agent", CompleteUserAgent)
}
