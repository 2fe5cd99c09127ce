package rollups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pnl_dashboard/commission"
	"pnl_dashboard/config"
	"pnl_dashboard/internal/sheets"
	"pnl_dashboard/logger"
	"pnl_dashboard/metrics"
	"pnl_dashboard/records"
)

// Service reads the source tables and runs the engine over them.
type Service struct {
	src     sheets.Source
	tables  config.Tables
	metrics *metrics.Metrics
	log     *logger.Entry
	now     func() time.Time
}

func NewService(src sheets.Source, tables config.Tables, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		src:     src,
		tables:  tables,
		metrics: m,
		log:     logger.GetLogger().WithComponent("rollups"),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for age computation.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Fetch reads the four source tables concurrently. A missing pricing tab is
// treated as empty; every other failure is returned.
func (s *Service) Fetch(ctx context.Context) (Input, error) {
	var in Input
	g, ctx := errgroup.WithContext(ctx)
	read := func(ref config.TableRef, dst *[]map[string]string, optional bool) {
		g.Go(func() error {
			table, err := s.src.ReadTable(ctx, ref)
			if err != nil {
				if optional && errors.Is(err, sheets.ErrTableNotFound) {
					s.log.WithField("table", ref.Key()).Warn("optional table missing, using empty rows")
					*dst = nil
					return nil
				}
				return fmt.Errorf("read %s: %w", ref.Key(), err)
			}
			*dst = table.Records()
			return nil
		})
	}
	read(s.tables.Sales, &in.Policies, false)
	read(s.tables.CallLogs, &in.Calls, false)
	read(s.tables.Commission, &in.Commissions, false)
	read(s.tables.Pricing, &in.Pricing, true)
	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	in.Now = s.now()
	return in, nil
}

// Dashboard builds the full report for the range.
func (s *Service) Dashboard(ctx context.Context, r DateRange) (Output, error) {
	started := time.Now()
	in, err := s.Fetch(ctx)
	if err != nil {
		return Output{}, err
	}
	in.Range = r
	out := Build(in)
	s.metrics.RecordBuild()
	logger.LogDuration(s.log, "build_dashboard", started, logger.Fields{
		"policies":   out.Meta.PolicyCount,
		"calls":      out.Meta.CallCount,
		"publishers": out.Meta.PublisherCount,
		"start":      r.Start,
		"end":        r.End,
	})
	return out, nil
}

// Sales returns the normalized policies within the range. Commissions are
// resolved against the live schedule.
func (s *Service) Sales(ctx context.Context, r DateRange) ([]records.PolicyRecord, error) {
	in, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	n := records.NewNormalizer(in.Policies, in.Commissions, in.Pricing, in.Now)
	return FilterPolicies(n.Policies(in.Policies), r), nil
}

// Calls returns the normalized calls within the range.
func (s *Service) Calls(ctx context.Context, r DateRange) ([]records.CallRecord, error) {
	in, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	n := records.NewNormalizer(in.Policies, in.Commissions, in.Pricing, in.Now)
	return FilterCalls(n.Calls(in.Calls), r), nil
}

// Commissions returns the parsed rate schedule.
func (s *Service) Commissions(ctx context.Context) (commission.Schedule, error) {
	table, err := s.src.ReadTable(ctx, s.tables.Commission)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.tables.Commission.Key(), err)
	}
	return commission.ParseSchedule(table.Records()), nil
}
