package routes

import (
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"rwapool/native/pool"
)

type poolRoutes struct {
	engine *pool.Engine
	logger *slog.Logger
}

func (pr *poolRoutes) mount(r chi.Router) {
	r.Get("/depth", instrument("pool.depth", pr.depth))
	r.Get("/config", instrument("pool.config", pr.config))
	r.Get("/orders/{address}", instrument("pool.order", pr.order))
	r.Get("/epochs/last", instrument("pool.epoch_last", pr.lastEpoch))
	r.Get("/epochs/{id}", instrument("pool.epoch", pr.epoch))
}

func (pr *poolRoutes) depth(w http.ResponseWriter, r *http.Request) {
	depth, err := pr.engine.OpenDepth()
	if err != nil {
		pr.fail(w, "open depth", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"openDepth": depth.String()})
}

func (pr *poolRoutes) config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"minOrderSize": pr.engine.MinOrderSize().String(),
	})
}

func (pr *poolRoutes) order(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	lender := common.HexToAddress(raw)
	amount, err := pr.engine.OpenOrder(lender)
	if err != nil {
		pr.fail(w, "open order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": lender.Hex(),
		"amount":  amount.String(),
	})
}

func (pr *poolRoutes) lastEpoch(w http.ResponseWriter, r *http.Request) {
	id, ok, err := pr.engine.LastEpochID()
	if err != nil {
		pr.fail(w, "last epoch", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no epoch minted yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"id": id})
}

type epochResponse struct {
	ID         uint64              `json:"id"`
	Start      time.Time           `json:"start"`
	End        time.Time           `json:"end"`
	Returns    *returnsResponse    `json:"returns,omitempty"`
	Collateral *collateralResponse `json:"collateral,omitempty"`
	Price      *priceResponse      `json:"price,omitempty"`
}

type returnsResponse struct {
	Lender        string `json:"lender"`
	Borrower      string `json:"borrower"`
	TotalBorrowed string `json:"totalBorrowed"`
	Redeemable    bool   `json:"redeemable"`
}

type collateralResponse struct {
	AssetAmount       string `json:"assetAmount"`
	CurrentRwaAmount  string `json:"currentRwaAmount"`
	OriginalRwaAmount string `json:"originalRwaAmount"`
}

type priceResponse struct {
	StartPrice string `json:"startPrice"`
	EndPrice   string `json:"endPrice,omitempty"`
	Spread     string `json:"spread"`
}

func (pr *poolRoutes) epoch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid epoch id")
		return
	}
	window, err := pr.engine.EpochWindow(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown epoch")
		return
	}
	resp := epochResponse{ID: window.ID, Start: window.Start, End: window.End}

	if returns, err := pr.engine.EpochReturns(id); err == nil {
		resp.Returns = &returnsResponse{
			Lender:        bigString(returns.Lender),
			Borrower:      bigString(returns.Borrower),
			TotalBorrowed: bigString(returns.TotalBorrowed),
			Redeemable:    returns.Redeemable,
		}
	}
	if collateral, err := pr.engine.Ledger().Collateral(id); err == nil {
		resp.Collateral = &collateralResponse{
			AssetAmount:       bigString(collateral.AssetAmount),
			CurrentRwaAmount:  bigString(collateral.CurrentRwaAmount),
			OriginalRwaAmount: bigString(collateral.OriginalRwaAmount),
		}
	}
	if price, err := pr.engine.Ledger().Price(id); err == nil {
		resp.Price = &priceResponse{
			StartPrice: bigString(price.StartPrice),
			Spread:     bigString(price.Spread),
		}
		if price.EndPrice != nil {
			resp.Price.EndPrice = price.EndPrice.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (pr *poolRoutes) fail(w http.ResponseWriter, op string, err error) {
	if pr.logger != nil {
		pr.logger.Error("pool query failed", "op", op, "error", err)
	}
	writeError(w, http.StatusInternalServerError, "query failed")
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
