package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/dqguard/internal/guardconfig"
)

// settingsCmd represents the settings command group
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "설정 파일 검증/기본값 출력",
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "설정 파일 검증 후 해시/경고 출력",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, raw, err := guardconfig.Load(args[0])
		if err != nil {
			return fmt.Errorf("❌ invalid settings: %w", err)
		}

		hash, err := guardconfig.Hash(s)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ %s valid (%d bytes)\n", args[0], len(raw))
		fmt.Fprintf(out, "   hash    : %s\n", hash)
		fmt.Fprintf(out, "   sources : %d (%d enabled)\n", len(s.Sources), len(s.EnabledSources()))
		for _, w := range guardconfig.Warn(s) {
			fmt.Fprintf(out, "⚠️  [%s] %s\n", w.Code, w.Message)
		}
		return nil
	},
}

var settingsDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "기본 설정 YAML 출력",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := guardconfig.Marshal(guardconfig.Defaults())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	settingsCmd.AddCommand(settingsDefaultsCmd)
}
