package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	settingsPath string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dqguard",
	Short: "dqguard - 시장 데이터 품질/리스크 가드",
	Long: `dqguard Unified CLI

시장 데이터 배치의 품질을 6개 차원으로 채점하고
소스별 이력으로 리스크 등급과 권장 조치를 산출합니다.

Usage:
  go run ./cmd/dqguard [command]

Examples:
  go run ./cmd/dqguard serve
  go run ./cmd/dqguard assess --file batch.json --source binance_btc_1m --type kline
  go run ./cmd/dqguard settings validate guard.yaml
  go run ./cmd/dqguard settings defaults`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "guard settings YAML (default GUARD_SETTINGS_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
