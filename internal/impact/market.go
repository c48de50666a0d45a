package impact

import "github.com/adverge/ppc-decision-engine/internal/models"

// ClassifyMarket assigns the market tag from the signs of the expected trend
// and the decision's marginal value. The quadrants separate what the market
// was going to do anyway from what the decision added or cost:
//
//	expected up,   value up   -> Offensive Win  (rode a rising market and beat it)
//	expected down, value up   -> Defensive Win  (beat a falling market)
//	expected up,   value down -> Gap            (underperformed a rising market)
//	expected down, value down -> Market Drag    (fell with the market)
func ClassifyMarket(expectedTrendPct, decisionValuePct float64) string {
	switch {
	case expectedTrendPct >= 0 && decisionValuePct >= 0:
		return models.TagOffensiveWin
	case expectedTrendPct < 0 && decisionValuePct >= 0:
		return models.TagDefensiveWin
	case expectedTrendPct >= 0 && decisionValuePct < 0:
		return models.TagGap
	default:
		return models.TagMarketDrag
	}
}
