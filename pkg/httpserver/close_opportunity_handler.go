package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/reconciliation"
)

// CloseOpportunitySource is the subset of reconciliation.Reconciler the
// handler needs: the current matched-pair close-opportunity read.
type CloseOpportunitySource interface {
	CloseOpportunities() []reconciliation.CloseOpportunity
}

// CloseOpportunityHandler exposes C4's matched-pair unwind candidates for an
// operator dashboard.
type CloseOpportunityHandler struct {
	reconciler CloseOpportunitySource
	logger     *zap.Logger
}

// NewCloseOpportunityHandler creates a new close-opportunity handler.
func NewCloseOpportunityHandler(reconciler CloseOpportunitySource, logger *zap.Logger) *CloseOpportunityHandler {
	return &CloseOpportunityHandler{reconciler: reconciler, logger: logger}
}

// closeOpportunityView flattens a reconciliation.CloseOpportunity for JSON,
// since MatchedPair/arbitrage.CloseOpportunity aren't tagged for it.
type closeOpportunityView struct {
	MarketIDA        string  `json:"market_id_a"`
	ConditionIDB     string  `json:"condition_id_b"`
	Outcome          string  `json:"outcome"`
	SharesA          float64 `json:"shares_a"`
	SharesB          float64 `json:"shares_b"`
	TTStrategy       string  `json:"tt_strategy"`
	TTProfitPerShare float64 `json:"tt_profit_per_share"`
	TTValid          bool    `json:"tt_valid"`
	MTProfitPerShare float64 `json:"mt_profit_per_share,omitempty"`
	MTValid          bool    `json:"mt_valid"`
}

// HandleList handles GET /api/close-opportunities.
func (h *CloseOpportunityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opps := h.reconciler.CloseOpportunities()
	views := make([]closeOpportunityView, 0, len(opps))
	for _, o := range opps {
		v := closeOpportunityView{
			MarketIDA:        o.Pair.Mapping.MarketIDA,
			ConditionIDB:     o.Pair.Mapping.ConditionIDB,
			Outcome:          string(o.Pair.PositionA.Outcome),
			SharesA:          o.Pair.PositionA.Shares,
			SharesB:          o.Pair.PositionB.Shares,
			TTStrategy:       o.TT.Strategy,
			TTProfitPerShare: o.TT.EstProfitPerShare,
			TTValid:          o.TT.Valid,
		}
		if o.MT != nil {
			v.MTProfitPerShare = o.MT.EstProfitPerShare
			v.MTValid = o.MT.Valid
		}
		views = append(views, v)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(views); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *CloseOpportunityHandler) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
