// Package evidence assembles the record of one report for legal or HR
// review and renders it as YAML.
package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"candor/internal/audit"
	"candor/internal/models"
	"candor/internal/service"

	"gopkg.in/yaml.v3"
)

// Sources are the read paths a bundle is built from.
type Sources struct {
	Reports *service.ReportService
	Audit   *audit.Emitter
	History *service.HistoryService
}

// Bundle is everything on file about one report.
type Bundle struct {
	GeneratedAt time.Time
	CompanyID   string
	Report      *service.ReportDetail
	AuditTrail  []models.ModerationActivity
	// AuthorHistory is omitted for anonymous content.
	AuthorHistory *service.ModerationHistory
}

// Collect reads the report, its audit trail and, for named authors, the
// author's full moderation history.
func Collect(ctx context.Context, src Sources, actor models.Actor, reportID string) (*Bundle, error) {
	detail, err := src.Reports.GetReport(ctx, actor, reportID)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	trail, err := src.Audit.ListAuditTrail(ctx, actor, reportID)
	if err != nil {
		return nil, fmt.Errorf("audit trail: %w", err)
	}

	b := &Bundle{
		GeneratedAt: time.Now().UTC(),
		CompanyID:   actor.CompanyID,
		Report:      detail,
		AuditTrail:  trail,
	}
	if !detail.AuthorIsAnonymous && detail.ContentAuthorID != "" {
		history, err := src.History.GetModerationHistory(ctx, actor, detail.ContentAuthorID)
		if err != nil {
			return nil, fmt.Errorf("author history: %w", err)
		}
		b.AuthorHistory = history
	}
	return b, nil
}

// YAML renders the bundle using the API's field names.
func (b *Bundle) YAML() ([]byte, error) {
	report, err := plain(b.Report)
	if err != nil {
		return nil, err
	}
	trail, err := plain(b.AuditTrail)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{
		"generated_at": b.GeneratedAt.Format(time.RFC3339),
		"company_id":   b.CompanyID,
		"report":       report,
		"audit_trail":  trail,
	}
	if b.AuthorHistory != nil {
		history, err := plain(b.AuthorHistory)
		if err != nil {
			return nil, err
		}
		doc["author_history"] = history
	}
	return yaml.Marshal(doc)
}

// plain converts v to maps and slices keyed by its json tags.
func plain(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
