package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/shopspring/decimal"
)

// AppendDecisionBatch appends a run's decisions to the decision log. The log
// is append-only: a row that collides on
// (account_id, decision_date, target_text, decision_type, campaign_name) is
// silently skipped so re-running the optimizer on the same data is a no-op.
// Returns the number of rows appended and the number skipped as duplicates.
// The batch commits atomically; on any error nothing is appended.
func (db *DB) AppendDecisionBatch(decisions []*models.Decision) (int, int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin decision batch: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO decision_log (
			account_id, batch_id, emitted_at, decision_date, decision_type,
			campaign_name, ad_group_name, target_text, match_type,
			old_value, new_value, reason, is_asin,
			winner_source_campaign, winner_source_ad_group,
			new_campaign_name, before_match_type, after_match_type
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		ON CONFLICT (account_id, decision_date, target_text, decision_type, campaign_name)
		DO NOTHING
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare decision insert: %w", err)
	}
	defer stmt.Close()

	appended := 0
	duplicates := 0
	seen := make(map[string]bool, len(decisions))

	for _, d := range decisions {
		key := decisionKey(d)
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true

		var srcCampaign, srcAdGroup, newCampaign, beforeMatch, afterMatch sql.NullString
		if d.Harvest != nil {
			srcCampaign = sql.NullString{String: d.Harvest.WinnerSourceCampaign, Valid: true}
			srcAdGroup = sql.NullString{String: d.Harvest.WinnerSourceAdGroup, Valid: d.Harvest.WinnerSourceAdGroup != ""}
			newCampaign = sql.NullString{String: d.Harvest.NewCampaignName, Valid: true}
			beforeMatch = sql.NullString{String: d.Harvest.BeforeMatchType, Valid: true}
			afterMatch = sql.NullString{String: d.Harvest.AfterMatchType, Valid: true}
		}

		result, err := stmt.Exec(
			d.AccountID, d.BatchID, d.EmittedAt, d.EmittedAt.Truncate(24*time.Hour), d.DecisionType,
			d.CampaignName, d.AdGroupName, d.TargetText, d.MatchType,
			d.OldValue, d.NewValue, d.Reason, d.IsASIN,
			srcCampaign, srcAdGroup, newCampaign, beforeMatch, afterMatch,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to append decision for %s: %w", d.TargetText, err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			duplicates++
		} else {
			appended++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit decision batch: %w", err)
	}
	return appended, duplicates, nil
}

// GetDecisions returns logged decisions for an account with emitted_at inside
// [from, to]. decisionType filters to one type when non-empty.
func (db *DB) GetDecisions(accountID string, from, to time.Time, decisionType string) ([]*models.Decision, error) {
	query := `
		SELECT id, account_id, batch_id, emitted_at, decision_type,
		       campaign_name, ad_group_name, target_text, match_type,
		       old_value, new_value, reason, is_asin,
		       winner_source_campaign, winner_source_ad_group,
		       new_campaign_name, before_match_type, after_match_type
		FROM decision_log
		WHERE account_id = $1 AND emitted_at >= $2 AND emitted_at <= $3
	`
	args := []interface{}{accountID, from, to}
	if decisionType != "" {
		query += ` AND decision_type = $4`
		args = append(args, decisionType)
	}
	query += ` ORDER BY emitted_at DESC, campaign_name, target_text`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions for %s: %w", accountID, err)
	}
	defer rows.Close()

	return scanDecisionRows(rows)
}

// GetDecisionsByBatch returns every decision appended under one batch ID.
func (db *DB) GetDecisionsByBatch(batchID string) ([]*models.Decision, error) {
	query := `
		SELECT id, account_id, batch_id, emitted_at, decision_type,
		       campaign_name, ad_group_name, target_text, match_type,
		       old_value, new_value, reason, is_asin,
		       winner_source_campaign, winner_source_ad_group,
		       new_campaign_name, before_match_type, after_match_type
		FROM decision_log
		WHERE batch_id = $1
		ORDER BY campaign_name, target_text
	`

	rows, err := db.conn.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions for batch %s: %w", batchID, err)
	}
	defer rows.Close()

	return scanDecisionRows(rows)
}

// DeleteDecisionBatch removes every decision appended under one batch ID.
// Used to undo a run before its changes have been applied upstream.
func (db *DB) DeleteDecisionBatch(batchID string) (int64, error) {
	query := `DELETE FROM decision_log WHERE batch_id = $1`
	result, err := db.conn.Exec(query, batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete decision batch %s: %w", batchID, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return 0, fmt.Errorf("decision batch not found: %s", batchID)
	}
	return rowsAffected, nil
}

// ExistingExactKeywords returns the harvested exact keywords already live for
// an account, so a new run does not promote a term twice.
func (db *DB) ExistingExactKeywords(accountID string) ([]string, error) {
	query := `
		SELECT DISTINCT target_text
		FROM decision_log
		WHERE account_id = $1 AND decision_type = $2
	`

	rows, err := db.conn.Query(query, accountID, models.DecisionHarvest)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing keywords for %s: %w", accountID, err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

func decisionKey(d *models.Decision) string {
	return strings.Join([]string{
		d.AccountID,
		d.EmittedAt.Format("2006-01-02"),
		strings.ToLower(strings.TrimSpace(d.TargetText)),
		d.DecisionType,
		d.CampaignName,
	}, "|")
}

func scanDecisionRows(rows *sql.Rows) ([]*models.Decision, error) {
	var decisions []*models.Decision
	for rows.Next() {
		var d models.Decision
		var oldValue, newValue sql.NullString
		var srcCampaign, srcAdGroup, newCampaign, beforeMatch, afterMatch sql.NullString
		err := rows.Scan(
			&d.ID, &d.AccountID, &d.BatchID, &d.EmittedAt, &d.DecisionType,
			&d.CampaignName, &d.AdGroupName, &d.TargetText, &d.MatchType,
			&oldValue, &newValue, &d.Reason, &d.IsASIN,
			&srcCampaign, &srcAdGroup, &newCampaign, &beforeMatch, &afterMatch,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}

		if oldValue.Valid {
			if v, err := decimal.NewFromString(oldValue.String); err == nil {
				d.OldValue = v
			}
		}
		if newValue.Valid {
			if v, err := decimal.NewFromString(newValue.String); err == nil {
				d.NewValue = v
			}
		}
		if srcCampaign.Valid || newCampaign.Valid {
			d.Harvest = &models.HarvestMetadata{
				WinnerSourceCampaign: srcCampaign.String,
				WinnerSourceAdGroup:  srcAdGroup.String,
				NewCampaignName:      newCampaign.String,
				BeforeMatchType:      beforeMatch.String,
				AfterMatchType:       afterMatch.String,
			}
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}
