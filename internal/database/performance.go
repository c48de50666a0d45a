package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/models"
)

// SavePerformanceBatch inserts a batch of weekly performance rows. Rows that
// collide on the natural key sum their metrics additively, so re-uploading
// an overlapping report never double-counts and never loses rows.
func (db *DB) SavePerformanceBatch(records []*models.PerformanceRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin performance batch: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO target_performance (
			account_id, week_start, campaign_name, ad_group_name,
			target_text, search_term, match_type, report_date,
			target_bid, ad_group_bid, spend, sales,
			clicks, impressions, orders
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (account_id, week_start, campaign_name, ad_group_name, target_text, search_term, match_type)
		DO UPDATE SET
			target_bid = EXCLUDED.target_bid,
			ad_group_bid = EXCLUDED.ad_group_bid,
			report_date = GREATEST(COALESCE(target_performance.report_date, EXCLUDED.report_date), EXCLUDED.report_date),
			spend = target_performance.spend + EXCLUDED.spend,
			sales = target_performance.sales + EXCLUDED.sales,
			clicks = target_performance.clicks + EXCLUDED.clicks,
			impressions = target_performance.impressions + EXCLUDED.impressions,
			orders = target_performance.orders + EXCLUDED.orders
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare performance upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		// Rows ingested without a raw report date fall back to their bucket
		// label, the most conservative freshness estimate available.
		reportDate := rec.ReportDate
		if reportDate.IsZero() {
			reportDate = rec.WeekStart
		}
		_, err := stmt.Exec(
			rec.AccountID, rec.WeekStart, rec.CampaignName, rec.AdGroupName,
			rec.TargetText, rec.SearchTerm, rec.MatchType, reportDate,
			rec.TargetBid, rec.AdGroupBid, rec.Spend, rec.Sales,
			rec.Clicks, rec.Impressions, rec.Orders,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert performance row %s/%s: %w",
				rec.CampaignName, rec.TargetText, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit performance batch: %w", err)
	}
	return nil
}

// GetPerformance returns all performance rows for an account whose week_start
// falls inside [from, to]. Rows come back ordered oldest week first.
func (db *DB) GetPerformance(accountID string, from, to time.Time) ([]*models.PerformanceRecord, error) {
	query := `
		SELECT id, account_id, week_start, campaign_name, ad_group_name,
		       target_text, search_term, match_type, report_date,
		       target_bid, ad_group_bid, spend, sales,
		       clicks, impressions, orders, created_at
		FROM target_performance
		WHERE account_id = $1 AND week_start >= $2 AND week_start <= $3
		ORDER BY week_start, campaign_name, ad_group_name, target_text
	`

	rows, err := db.conn.Query(query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get performance for %s: %w", accountID, err)
	}
	defer rows.Close()

	return scanPerformanceRows(rows)
}

// GetTargetPerformance returns the weekly rows for a single target inside a
// campaign, used by the impact pipeline to build before/after windows.
func (db *DB) GetTargetPerformance(accountID, campaignName, targetText string, from, to time.Time) ([]*models.PerformanceRecord, error) {
	query := `
		SELECT id, account_id, week_start, campaign_name, ad_group_name,
		       target_text, search_term, match_type, report_date,
		       target_bid, ad_group_bid, spend, sales,
		       clicks, impressions, orders, created_at
		FROM target_performance
		WHERE account_id = $1 AND campaign_name = $2 AND target_text = $3
		  AND week_start >= $4 AND week_start <= $5
		ORDER BY week_start
	`

	rows, err := db.conn.Query(query, accountID, campaignName, targetText, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get target performance for %s: %w", targetText, err)
	}
	defer rows.Close()

	return scanPerformanceRows(rows)
}

// GetCampaignPerformance returns the weekly rows for every target in a
// campaign inside [from, to].
func (db *DB) GetCampaignPerformance(accountID, campaignName string, from, to time.Time) ([]*models.PerformanceRecord, error) {
	query := `
		SELECT id, account_id, week_start, campaign_name, ad_group_name,
		       target_text, search_term, match_type, report_date,
		       target_bid, ad_group_bid, spend, sales,
		       clicks, impressions, orders, created_at
		FROM target_performance
		WHERE account_id = $1 AND campaign_name = $2
		  AND week_start >= $3 AND week_start <= $4
		ORDER BY week_start
	`

	rows, err := db.conn.Query(query, accountID, campaignName, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign performance for %s: %w", campaignName, err)
	}
	defer rows.Close()

	return scanPerformanceRows(rows)
}

// LatestDataDate returns the freshest raw report day stored for an account,
// falling back to week_start for rows predating report dates. Returns
// sql.ErrNoRows wrapped when the account has no data at all.
func (db *DB) LatestDataDate(accountID string) (time.Time, error) {
	query := `
		SELECT GREATEST(MAX(COALESCE(report_date, week_start)), MAX(week_start))
		FROM target_performance
		WHERE account_id = $1
	`

	var latest sql.NullTime
	err := db.conn.QueryRow(query, accountID).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest data date for %s: %w", accountID, err)
	}
	if !latest.Valid {
		return time.Time{}, fmt.Errorf("no performance data for account %s: %w", accountID, sql.ErrNoRows)
	}
	return latest.Time, nil
}

// DataCadenceDays returns the distinct week_start values for an account,
// newest first, so callers can measure the upload cadence.
func (db *DB) DataCadenceDays(accountID string) ([]time.Time, error) {
	query := `
		SELECT DISTINCT week_start
		FROM target_performance
		WHERE account_id = $1
		ORDER BY week_start DESC
	`

	rows, err := db.conn.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get data cadence for %s: %w", accountID, err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan cadence date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func scanPerformanceRows(rows *sql.Rows) ([]*models.PerformanceRecord, error) {
	var records []*models.PerformanceRecord
	for rows.Next() {
		var rec models.PerformanceRecord
		var searchTerm sql.NullString
		var reportDate sql.NullTime
		err := rows.Scan(
			&rec.ID, &rec.AccountID, &rec.WeekStart, &rec.CampaignName, &rec.AdGroupName,
			&rec.TargetText, &searchTerm, &rec.MatchType, &reportDate,
			&rec.TargetBid, &rec.AdGroupBid, &rec.Spend, &rec.Sales,
			&rec.Clicks, &rec.Impressions, &rec.Orders, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance row: %w", err)
		}
		if searchTerm.Valid {
			rec.SearchTerm = searchTerm.String
		}
		if reportDate.Valid {
			rec.ReportDate = reportDate.Time
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
