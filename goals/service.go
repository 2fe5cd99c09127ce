package goals

import (
	"context"

	"pnl_dashboard/config"
	"pnl_dashboard/internal/sheets"
	"pnl_dashboard/logger"
)

type Service struct {
	src    sheets.Source
	tables config.Tables
	log    *logger.Entry
}

func NewService(src sheets.Source, tables config.Tables) *Service {
	return &Service{src: src, tables: tables, log: logger.GetLogger().WithComponent("goals")}
}

// Load reads both goal tabs. A tab that cannot be read is logged and
// replaced by defaults (company) or an empty set (agents); only a cancelled
// context is an error.
func (s *Service) Load(ctx context.Context) (Goals, error) {
	company := s.rows(ctx, s.tables.CompanyGoals)
	agents := s.rows(ctx, s.tables.AgentGoals)
	if err := ctx.Err(); err != nil {
		return Goals{}, err
	}
	return Goals{Company: ParseCompany(company), Agents: ParseAgents(agents)}, nil
}

func (s *Service) rows(ctx context.Context, ref config.TableRef) []map[string]string {
	table, err := s.src.ReadTable(ctx, ref)
	if err != nil {
		s.log.WithError(err).WithField("table", ref.Key()).Warn("goals tab unavailable, using defaults")
		return nil
	}
	return table.Records()
}
