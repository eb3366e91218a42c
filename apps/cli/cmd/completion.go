package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for binprobe.

To load completions:

Bash:
  $ source <(binprobe completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ binprobe completion bash > /etc/bash_completion.d/binprobe
  # macOS:
  $ binprobe completion bash > $(brew --prefix)/etc/bash_completion.d/binprobe

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ binprobe completion zsh > "${fpath[1]}/_binprobe"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ binprobe completion fish | source

  # To load completions for each session, execute once:
  $ binprobe completion fish > ~/.config/fish/completions/binprobe.fish

PowerShell:
  PS> binprobe completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
