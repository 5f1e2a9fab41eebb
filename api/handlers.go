package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/julienschmidt/httprouter"

	"github.com/credencemarkets/credence/lmsr"
	"github.com/credencemarkets/credence/logging"
	"github.com/credencemarkets/credence/market"
	"github.com/credencemarkets/credence/num"
	"github.com/credencemarkets/credence/registry"
	"github.com/credencemarkets/credence/types"
)

var errBadAmount = errors.New("invalid amount, expected a wad decimal string")

type errorResponse struct {
	Error string `json:"error"`
}

type marketResponse struct {
	SubjectID     uint64   `json:"subjectId"`
	TrustVotes    uint64   `json:"trustVotes"`
	DistrustVotes uint64   `json:"distrustVotes"`
	BasePrice     string   `json:"basePrice"`
	Liquidity     string   `json:"liquidity"`
	Participants  []string `json:"participants"`
}

type tradeResponse struct {
	ID          string `json:"id"`
	SubjectID   uint64 `json:"subjectId"`
	Side        string `json:"side"`
	Votes       uint64 `json:"votes"`
	GrossCost   string `json:"grossCost"`
	ProtocolFee string `json:"protocolFee"`
	Donation    string `json:"donation"`
	NetCost     string `json:"netCost"`
	NewPrice    string `json:"newPrice"`
}

type configResponse struct {
	Index        uint32 `json:"index"`
	Liquidity    string `json:"liquidity"`
	BasePrice    string `json:"basePrice"`
	CreationCost string `json:"creationCost"`
}

type createMarketRequest struct {
	SubjectID     uint64 `json:"subjectId"`
	ConfigIndex   uint32 `json:"configIndex"`
	FundsProvided string `json:"fundsProvided"`
	Creator       string `json:"creator"`
}

type buyRequest struct {
	Side         string `json:"side"`
	GrossPayment string `json:"grossPayment"`
	MaxVotes     uint64 `json:"maxVotes"`
	MinVotes     uint64 `json:"minVotes"`
	Buyer        string `json:"buyer"`
}

type sellRequest struct {
	Side            string `json:"side"`
	Votes           uint64 `json:"votes"`
	MinimumProceeds string `json:"minimumProceeds"`
	Seller          string `json:"seller"`
}

type simulateRequest struct {
	Side  string `json:"side"`
	Votes uint64 `json:"votes"`
}

type addConfigRequest struct {
	Liquidity    string `json:"liquidity"`
	BasePrice    string `json:"basePrice"`
	CreationCost string `json:"creationCost"`
}

type allowedRequest struct {
	Allowed bool `json:"allowed"`
}

type quoteResponse struct {
	Side           string  `json:"side"`
	Budget         string  `json:"budget"`
	EstimatedVotes float64 `json:"estimatedVotes"`
	// Advisory is always true: the estimate comes from the floating-point
	// estimator and must not be used for fund-moving decisions.
	Advisory bool `json:"advisory"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to write response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrMarketNotFound),
		errors.Is(err, registry.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrMarketAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, market.ErrNotAllowedToCreateMarket):
		return http.StatusForbidden
	case errors.Is(err, market.ErrInsufficientFunds),
		errors.Is(err, market.ErrInsufficientVotesOwned),
		errors.Is(err, market.ErrSlippageLimitExceeded),
		errors.Is(err, lmsr.ErrVoteCountTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrInvalidConfig),
		errors.Is(err, market.ErrInvalidVoteBounds),
		errors.Is(err, types.ErrInvalidSide),
		errors.Is(err, errBadAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseSubject(ps httprouter.Params) (uint64, error) {
	return strconv.ParseUint(ps.ByName("subject"), 10, 64)
}

func parseAmount(s string) (*num.Uint, error) {
	u, overflow := num.UintFromString(s, 10)
	if s == "" || overflow {
		return nil, errBadAmount
	}
	return u, nil
}

func marketToResponse(m *types.Market) marketResponse {
	participants := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		participants = append(participants, p.Hex())
	}
	return marketResponse{
		SubjectID:     m.SubjectID,
		TrustVotes:    m.TrustVotes,
		DistrustVotes: m.DistrustVotes,
		BasePrice:     m.BasePrice.String(),
		Liquidity:     m.Liquidity.String(),
		Participants:  participants,
	}
}

func tradeToResponse(t *types.Trade) tradeResponse {
	return tradeResponse{
		ID:          t.ID.String(),
		SubjectID:   t.SubjectID,
		Side:        t.Side.String(),
		Votes:       t.Votes,
		GrossCost:   t.GrossCost.String(),
		ProtocolFee: t.ProtocolFee.String(),
		Donation:    t.Donation.String(),
		NetCost:     t.NetCost.String(),
		NewPrice:    t.NewPrice.String(),
	}
}

func configToResponse(c types.MarketConfig) configResponse {
	return configResponse{
		Index:        c.Index,
		Liquidity:    c.Liquidity.String(),
		BasePrice:    c.BasePrice.String(),
		CreationCost: c.CreationCost.String(),
	}
}

func (s *Server) createMarket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	funds, err := parseAmount(req.FundsProvided)
	if err != nil {
		s.writeError(w, err)
		return
	}
	m, err := s.engine.CreateMarket(req.SubjectID, req.ConfigIndex, funds, common.HexToAddress(req.Creator))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, marketToResponse(m))
}

func (s *Server) getMarket(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	subject, err := parseSubject(ps)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	m, err := s.engine.GetMarket(subject)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, marketToResponse(m))
}

func (s *Server) getVotePrice(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	subject, err := parseSubject(ps)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	side, err := types.ParseSide(ps.ByName("side"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	price, err := s.engine.GetVotePrice(subject, side)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"side":  side.String(),
		"price": price.String(),
	})
}

// getQuote answers with the floating-point estimator, as an advisory hint
// for choosing slippage bounds. The authoritative price always comes from
// the buy/sell/simulate endpoints backed by the exact engine.
func (s *Server) getQuote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	subject, err := parseSubject(ps)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	side, err := types.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	budget, err := parseAmount(r.URL.Query().Get("budget"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	m, err := s.engine.GetMarket(subject)
	if err != nil {
		s.writeError(w, err)
		return
	}

	est := lmsr.NewEstimator(m.Liquidity)
	budgetF, _ := budget.ToDecimal().Shift(-18).Float64()
	basePriceF, _ := m.BasePrice.ToDecimal().Shift(-18).Float64()
	votes := est.VotesForBudget(float64(m.TrustVotes), float64(m.DistrustVotes), budgetF/basePriceF, side)
	s.writeJSON(w, http.StatusOK, quoteResponse{
		Side:           side.String(),
		Budget:         budget.String(),
		EstimatedVotes: votes,
		Advisory:       true,
	})
}

func (s *Server) buyVotes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	subject, err := parseSubject(ps)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	side, err := types.ParseSide(req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}
	payment, err := parseAmount(req.GrossPayment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	trade, err := s.engine.BuyVotes(subject, side, payment, req.MaxVotes, req.MinVotes, common.HexToAddress(req.Buyer))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tradeToResponse(trade))
}

func (s *Server) sellVotes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	subject, err := parseSubject(ps)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	side, err := types.ParseSide(req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// An absent minimum means the seller accepts any proceeds.
	var minProceeds *num.Uint
	if req.MinimumProceeds != "" {
		if minProceeds, err = parseAmount(req.MinimumProceeds); err != nil {
			s.writeError(w, err)
			return
		}
	}
	trade, err := s.engine.SellVotes(subject, side, req.Votes, minProceeds, common.HexToAddress(req.Seller))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tradeToResponse(trade))
}

func (s *Server) simulateBuy(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.simulate(w, r, ps, s.engine.SimulateBuy)
}

func (s *Server) simulateSell(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.simulate(w, r, ps, s.engine.SimulateSell)
}

func (s *Server) simulate(
	w http.ResponseWriter,
	r *http.Request,
	ps httprouter.Params,
	fn func(uint64, types.Side, uint64) (*types.Trade, error),
) {
	subject, err := parseSubject(ps)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	side, err := types.ParseSide(req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}
	trade, err := fn(subject, side, req.Votes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tradeToResponse(trade))
}

func (s *Server) listConfigs(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	configs := s.engine.MarketConfigs()
	out := make([]configResponse, 0, len(configs))
	for _, c := range configs {
		out = append(out, configToResponse(c))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) addConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req addConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	liquidity, err := parseAmount(req.Liquidity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	basePrice, err := parseAmount(req.BasePrice)
	if err != nil {
		s.writeError(w, err)
		return
	}
	creationCost, err := parseAmount(req.CreationCost)
	if err != nil {
		s.writeError(w, err)
		return
	}
	index, err := s.engine.AddMarketConfig(liquidity, basePrice, creationCost)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cfg, err := s.engine.GetMarketConfig(index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, configToResponse(cfg))
}

func (s *Server) removeConfig(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	index, err := strconv.ParseUint(ps.ByName("index"), 10, 32)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.engine.RemoveMarketConfig(uint32(index)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setAllowed(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	subject, err := parseSubject(ps)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req allowedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.engine.SetAllowedToCreateMarket(subject, req.Allowed)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getAllowed(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	subject, err := parseSubject(ps)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, allowedRequest{
		Allowed: s.engine.IsAllowedToCreateMarket(subject),
	})
}
