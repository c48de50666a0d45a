package database

import (
	"database/sql"
	"fmt"

	"github.com/adverge/ppc-decision-engine/internal/models"
)

// SaveAccountHealth upserts the latest health snapshot for an account.
func (db *DB) SaveAccountHealth(health *models.AccountHealth) error {
	query := `
		INSERT INTO account_health (
			account_id, health_score, roas_score, efficiency_score, cvr_score,
			current_roas, waste_ratio, wasted_spend, total_spend, total_sales,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()
		)
		ON CONFLICT (account_id)
		DO UPDATE SET
			health_score = EXCLUDED.health_score,
			roas_score = EXCLUDED.roas_score,
			efficiency_score = EXCLUDED.efficiency_score,
			cvr_score = EXCLUDED.cvr_score,
			current_roas = EXCLUDED.current_roas,
			waste_ratio = EXCLUDED.waste_ratio,
			wasted_spend = EXCLUDED.wasted_spend,
			total_spend = EXCLUDED.total_spend,
			total_sales = EXCLUDED.total_sales,
			updated_at = NOW()
	`

	_, err := db.conn.Exec(query,
		health.AccountID, health.HealthScore, health.ROASScore, health.EfficiencyScore, health.CVRScore,
		health.CurrentROAS, health.WasteRatio, health.WastedSpend, health.TotalSpend, health.TotalSales,
	)
	if err != nil {
		return fmt.Errorf("failed to save account health for %s: %w", health.AccountID, err)
	}
	return nil
}

// GetAccountHealth retrieves the latest health snapshot for an account.
func (db *DB) GetAccountHealth(accountID string) (*models.AccountHealth, error) {
	query := `
		SELECT account_id, health_score, roas_score, efficiency_score, cvr_score,
		       current_roas, waste_ratio, wasted_spend, total_spend, total_sales,
		       updated_at
		FROM account_health
		WHERE account_id = $1
	`

	var health models.AccountHealth
	err := db.conn.QueryRow(query, accountID).Scan(
		&health.AccountID, &health.HealthScore, &health.ROASScore, &health.EfficiencyScore, &health.CVRScore,
		&health.CurrentROAS, &health.WasteRatio, &health.WastedSpend, &health.TotalSpend, &health.TotalSales,
		&health.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no health snapshot for account: %s", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account health for %s: %w", accountID, err)
	}

	return &health, nil
}
