package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/arcade/internal/contracts"
)

// rankingsCmd represents the rankings command
var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "랭킹 한 페이지 조회",
	Long: `백엔드에서 랭킹 한 페이지를 가져와 출력합니다.

page는 1부터 시작하며, page-size는 1~100 범위로 보정됩니다.

Example:
  go run ./cmd/arcade rankings
  go run ./cmd/arcade rankings --page 2 --page-size 50
  go run ./cmd/arcade rankings --model master --json`,
	RunE: runRankings,
}

var (
	rankingsPage     int
	rankingsPageSize int
	rankingsModel    string
	rankingsJSON     bool
)

func init() {
	rootCmd.AddCommand(rankingsCmd)

	// Flags
	rankingsCmd.Flags().IntVar(&rankingsPage, "page", contracts.DefaultPage, "페이지 번호 (1부터)")
	rankingsCmd.Flags().IntVar(&rankingsPageSize, "page-size", contracts.DefaultPageSize, "페이지 크기 (1~100)")
	rankingsCmd.Flags().StringVar(&rankingsModel, "model", "", "모델 필터 (beginner|medium|master)")
	rankingsCmd.Flags().BoolVar(&rankingsJSON, "json", false, "JSON으로 출력")
}

func runRankings(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	query, err := contracts.RankingsQuery{
		Page:     rankingsPage,
		PageSize: rankingsPageSize,
		ModelID:  rankingsModel,
	}.Normalize()
	if err != nil {
		return err
	}

	records, err := a.client.FetchRankings(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("fetch rankings: %w", err)
	}

	if rankingsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	title := fmt.Sprintf("Rankings  page %d  (size %d)", query.Page, query.PageSize)
	if query.ModelID != "" {
		title += "  model=" + query.ModelID
	}
	PrintHeader(title)

	if len(records) == 0 {
		PrintInfo("No records")
		return nil
	}

	widths := []int{5, 20, 10, 10, 20}
	PrintTableHeader([]string{"Rank", "Nickname", "Score", "Model", "Created"}, widths)

	offset := (query.Page - 1) * query.PageSize
	for i, rec := range records {
		PrintTableRow([]string{
			strconv.Itoa(offset + i + 1),
			rec.Nickname,
			strconv.FormatFloat(rec.Score, 'f', -1, 64),
			rec.ModelID,
			rec.CreatedAt,
		}, widths)
	}

	return nil
}
