package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/dqguard/internal/contracts"
	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/pkg/config"
	"github.com/wonny/dqguard/pkg/logger"
)

// assessCmd represents the assess command
var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "배치 파일 1회 평가",
	Long: `JSON 배치 파일을 평가하고 결과를 출력합니다.

입력은 행 배열, 컬럼 맵, 단일 맵, 스칼라 배열 중 하나입니다.
--file - 이면 stdin에서 읽습니다.

Example:
  go run ./cmd/dqguard assess --file klines.json --source binance_btc_1m --type kline
  cat quotes.json | go run ./cmd/dqguard assess --file - --type quote --json`,
	RunE: runAssess,
}

var (
	assessFile     string
	assessSource   string
	assessType     string
	assessContext  string
	assessJSON     bool
	assessFallback bool
)

func init() {
	rootCmd.AddCommand(assessCmd)

	// Flags
	assessCmd.Flags().StringVarP(&assessFile, "file", "f", "", "배치 JSON 파일 (- = stdin)")
	assessCmd.Flags().StringVar(&assessSource, "source", "cli", "소스 이름")
	assessCmd.Flags().StringVarP(&assessType, "type", "t", "generic", "데이터 타입 (kline|quote|generic)")
	assessCmd.Flags().StringVar(&assessContext, "context", "", `평가 컨텍스트 JSON (예: '{"data_delay": 120}')`)
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "결과 전체를 JSON으로 출력")
	assessCmd.Flags().BoolVar(&assessFallback, "fallback", false, "대체 소스 사용 가능")
	_ = assessCmd.MarkFlagRequired("file")
}

func runAssess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewNop()
	if verbose {
		log = logger.New(cfg)
	}

	settings, err := loadSettings(cfg, log)
	if err != nil {
		return err
	}

	data, err := readBatch(cmd.InOrStdin(), assessFile)
	if err != nil {
		return err
	}

	ctxMap := map[string]interface{}{}
	if assessContext != "" {
		if err := json.Unmarshal([]byte(assessContext), &ctxMap); err != nil {
			return fmt.Errorf("parse --context: %w", err)
		}
	}
	actx, err := engine.ContextFromMap(ctxMap)
	if err != nil {
		return err
	}
	actx.FallbackAvailable = actx.FallbackAvailable || assessFallback

	eng, err := engine.New(engineOptions(cfg, settings), log)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	registerFallbacks(eng, settings)

	a := eng.Assess(context.Background(), data, assessSource, assessType, actx)

	out := cmd.OutOrStdout()
	if assessJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}
	printAssessment(out, a)
	return nil
}

// readBatch decodes the batch file; "-" reads stdin
func readBatch(stdin io.Reader, path string) (interface{}, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open batch: %w", err)
		}
		defer f.Close()
		r = f
	}

	var data interface{}
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return data, nil
}

func printAssessment(w io.Writer, a contracts.RiskAssessment) {
	line := strings.Repeat("─", 59)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", 59))
	fmt.Fprintf(w, "  Assessment: %s (%s)\n", a.Source, a.DataType)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "  Quality   : %.3f (%s)\n", a.QualityReport.OverallScore, a.QualityReport.Level)
	fmt.Fprintf(w, "  Risk      : %.3f (%s)\n", a.RiskScore, a.RiskLevel)
	fmt.Fprintf(w, "  Action    : %s\n", a.RecommendedAction)
	fmt.Fprintln(w, line)

	for _, d := range contracts.DimensionOrder {
		if v, ok := a.QualityReport.DimensionScores[d]; ok {
			fmt.Fprintf(w, "  %-13s %.3f\n", d, v)
		}
	}
	fmt.Fprintf(w, "  %-13s %.3f\n", "anomaly", a.QualityReport.AnomalyScore)

	if len(a.RiskFactors) > 0 {
		fmt.Fprintln(w, line)
		fmt.Fprintln(w, "  Risk factors:")
		for _, f := range a.RiskFactors {
			fmt.Fprintf(w, "   - %s\n", f)
		}
	}
	if len(a.MitigationStrategies) > 0 {
		fmt.Fprintln(w, "  Mitigation:")
		for _, s := range a.MitigationStrategies {
			fmt.Fprintf(w, "   - %s\n", s)
		}
	}
	fmt.Fprintln(w, strings.Repeat("═", 59))
}
