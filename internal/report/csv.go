// Package report renders closure rankings into documents sent to operators.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/model"
)

var header = []string{"Rank", "Name", "Website", "Username", "Referrals"}

type Document struct {
	Filename string
	Data     []byte
}

type Renderer interface {
	RenderWeek(cycle int, generatedAt time.Time, ranking []model.RankedClaim) (*Document, error)
	RenderMonth(period string, generatedAt time.Time, ranking []model.RankedClaim) (*Document, error)
}

type csvRenderer struct{}

func NewCSVRenderer() *csvRenderer {
	return &csvRenderer{}
}

func (r *csvRenderer) RenderWeek(
	cycle int, generatedAt time.Time, ranking []model.RankedClaim,
) (*Document, error) {
	data, err := render(ranking)
	if err != nil {
		return nil, err
	}

	return &Document{
		Filename: fmt.Sprintf("week_%d_winners_%s.csv", cycle, generatedAt.Format(common.ReportDateLayout)),
		Data:     data,
	}, nil
}

// RenderMonth names the file after the period label, "June 2023" becomes
// monthly_winners_June_2023.csv.
func (r *csvRenderer) RenderMonth(
	period string, generatedAt time.Time, ranking []model.RankedClaim,
) (*Document, error) {
	data, err := render(ranking)
	if err != nil {
		return nil, err
	}

	return &Document{
		Filename: fmt.Sprintf("monthly_winners_%s.csv", strings.Join(strings.Fields(period), "_")),
		Data:     data,
	}, nil
}

func render(ranking []model.RankedClaim) ([]byte, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, r := range ranking {
		record := []string{
			strconv.Itoa(r.Rank),
			r.Name,
			r.Destination,
			r.Credential,
			strconv.Itoa(r.Count),
		}

		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}
