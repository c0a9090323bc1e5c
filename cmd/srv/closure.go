package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/internal/report"
	"github.com/questx-lab/referral/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) loadClosure() {
	s.loadDatabase()
	s.migrateDB()
	s.loadRedisClient()
	s.loadTelegramCaller()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()
}

func (s *srv) operatorID(cctx *cli.Context) (int64, error) {
	if id := cctx.Int64("operator"); id != 0 {
		return id, nil
	}

	operators := xcontext.Configs(s.ctx).Referral.OperatorIDs
	if len(operators) == 0 {
		return 0, errors.New("no operator is configured")
	}

	return operators[0], nil
}

func (s *srv) startCloseWeek(cctx *cli.Context) error {
	s.loadClosure()
	operatorID, err := s.operatorID(cctx)
	if err != nil {
		return err
	}

	resp, err := s.closureDomain.CloseWeek(s.ctx, &model.CloseWeekRequest{OperatorID: operatorID})
	if err != nil {
		return err
	}

	doc, err := report.NewCSVRenderer().RenderWeek(resp.Cycle, resp.ClosedAt, resp.Ranking)
	if err != nil {
		return err
	}

	return s.writeReport(cctx.String("output"), doc)
}

func (s *srv) startCloseMonth(cctx *cli.Context) error {
	s.loadClosure()
	operatorID, err := s.operatorID(cctx)
	if err != nil {
		return err
	}

	resp, err := s.closureDomain.CloseMonth(s.ctx, &model.CloseMonthRequest{OperatorID: operatorID})
	if err != nil {
		return err
	}

	doc, err := report.NewCSVRenderer().RenderMonth(resp.Period, resp.ClosedAt, resp.Ranking)
	if err != nil {
		return err
	}

	return s.writeReport(cctx.String("output"), doc)
}

func (s *srv) writeReport(dir string, doc *report.Document) error {
	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Winners report is written to %s", path)
	return nil
}
