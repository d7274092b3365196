// Package report aggregates the monthly proposta summary and evaluates the
// gross-volume alert threshold.
package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/cashforce/propostas-sync/internal/supabase"
)

const summaryTable = "propostas_resumo_mensal"

// ErrInvalidCompetencia rejects a missing or malformed reporting month.
var ErrInvalidCompetencia = errors.New("competencia_id is required (format YYYY-MM)")

var competenciaPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Store is the narrow read surface the reporter needs.
type Store interface {
	Select(ctx context.Context, table string, opts supabase.SelectOptions, dest any) error
}

// Row is one bucket of the materialized monthly summary.
type Row struct {
	CompetenciaID         string  `json:"competencia_id"`
	GrupoEconomico        *string `json:"grupo_economico"`
	Parceiro              *string `json:"parceiro"`
	QuantidadeOperacoes   int64   `json:"quantidade_operacoes"`
	TotalBrutoDuplicata   float64 `json:"total_bruto_duplicata"`
	TotalLiquidoDuplicata float64 `json:"total_liquido_duplicata"`
}

// Query filters one summary request. Grupo matches substrings
// case-insensitively; Parceiro matches exactly.
type Query struct {
	CompetenciaID string
	Grupo         string
	Parceiro      string
	Threshold     float64
}

// Summary is the aggregated response, mirroring the dashboard contract.
type Summary struct {
	Status                string  `json:"status"`
	CompetenciaID         string  `json:"competencia_id"`
	GrupoFilter           *string `json:"grupo_filter"`
	ParceiroFilter        *string `json:"parceiro_filter"`
	QuantidadeOperacoes   int64   `json:"quantidade_operacoes"`
	TotalBrutoDuplicata   float64 `json:"total_bruto_duplicata"`
	TotalLiquidoDuplicata float64 `json:"total_liquido_duplicata"`
	ThresholdBruto        float64 `json:"threshold_bruto"`
	AlertTriggered        bool    `json:"alert_triggered"`
	Items                 []Row   `json:"items"`
}

// Reporter answers monthly summary queries against the materialized view.
type Reporter struct {
	store Store
}

func New(store Store) *Reporter {
	return &Reporter{store: store}
}

// MonthlySummary sums the matching buckets and flags the alert when the
// gross total meets or exceeds the threshold.
func (r *Reporter) MonthlySummary(ctx context.Context, q Query) (Summary, error) {
	if !competenciaPattern.MatchString(q.CompetenciaID) {
		return Summary{}, ErrInvalidCompetencia
	}

	opts := supabase.SelectOptions{Eq: map[string]string{"competencia_id": q.CompetenciaID}}
	if q.Grupo != "" {
		opts.ILike = map[string]string{"grupo_economico": "*" + q.Grupo + "*"}
	}
	if q.Parceiro != "" {
		opts.Eq["parceiro"] = q.Parceiro
	}

	var rows []Row
	if err := r.store.Select(ctx, summaryTable, opts, &rows); err != nil {
		return Summary{}, fmt.Errorf("query monthly summary: %w", err)
	}

	sum := Summary{
		Status:         "success",
		CompetenciaID:  q.CompetenciaID,
		ThresholdBruto: q.Threshold,
		Items:          rows,
	}
	if q.Grupo != "" {
		sum.GrupoFilter = &q.Grupo
	}
	if q.Parceiro != "" {
		sum.ParceiroFilter = &q.Parceiro
	}
	for _, row := range rows {
		sum.QuantidadeOperacoes += row.QuantidadeOperacoes
		sum.TotalBrutoDuplicata += row.TotalBrutoDuplicata
		sum.TotalLiquidoDuplicata += row.TotalLiquidoDuplicata
	}
	sum.AlertTriggered = sum.TotalBrutoDuplicata >= q.Threshold
	if sum.Items == nil {
		sum.Items = []Row{}
	}
	return sum, nil
}
