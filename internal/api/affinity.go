package affinity

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	model "github.com/glkeru/affinity/internal/models"
	services "github.com/glkeru/affinity/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AffinityHandler struct {
	router       *mux.Router
	scores       *services.ScoreService
	ledger       *services.LedgerService
	interactions *services.InteractionService
	logger       *zap.Logger
}

type ActionRequest struct {
	OwnerID       string           `json:"ownerId"`
	CounterpartID string           `json:"counterpartId"`
	Action        model.ActionType `json:"action"`
	Weight        int64            `json:"weight"`
	CoinsSpent    int64            `json:"coinsSpent"`
}

type DeltaRequest struct {
	Delta     decimal.Decimal `json:"delta"`
	Source    model.Source    `json:"source"`
	Reference string          `json:"reference"`
}

type ClaimRequest struct {
	OwnerID string `json:"ownerId"`
}

type WalletResponse struct {
	Wallet     model.Wallet         `json:"wallet"`
	WealthTier model.TierDefinition `json:"wealthTier"`
}

func NewHandler(scores *services.ScoreService, ledger *services.LedgerService, interactions *services.InteractionService, logger *zap.Logger) *AffinityHandler {
	router := mux.NewRouter()
	handler := &AffinityHandler{router, scores, ledger, interactions, logger}
	router.HandleFunc("/actions", handler.ApplyActionHandler).Methods(http.MethodPost)
	router.HandleFunc("/interactions", handler.InteractionHandler).Methods(http.MethodPost)
	router.HandleFunc("/wallets/{owner}/deltas", handler.ApplyDeltaHandler).Methods(http.MethodPost)
	router.HandleFunc("/wallets/{owner}", handler.GetWalletHandler).Methods(http.MethodGet)
	router.HandleFunc("/wallets/{owner}/ledger", handler.GetLedgerHandler).Methods(http.MethodGet)
	router.HandleFunc("/scores/{owner}/{counterpart}", handler.GetScoreHandler).Methods(http.MethodGet)
	router.HandleFunc("/scores/{owner}/{counterpart}/grants", handler.GetGrantsHandler).Methods(http.MethodGet)
	router.HandleFunc("/grants/{id}/claim", handler.ClaimGrantHandler).Methods(http.MethodPost)
	router.HandleFunc("/tiers/{table}", handler.GetTiersHandler).Methods(http.MethodGet)
	router.Use(MiddlewareLog())

	return handler
}

func (h *AffinityHandler) Router() *mux.Router {
	return h.router
}

func (h *AffinityHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.router.ServeHTTP(w, req)
}

func (h *AffinityHandler) Log(msg string, service string, err error) {
	h.logger.Error(msg,
		zap.String("service", service),
		zap.Error(err),
	)
}

// статус по ошибке домена
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidAction),
		errors.Is(err, model.ErrNegativeInput),
		errors.Is(err, model.ErrInvalidSource),
		errors.Is(err, model.ErrEmptyOwner),
		errors.Is(err, model.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientBalance),
		errors.Is(err, model.ErrAlreadyClaimed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *AffinityHandler) fail(w http.ResponseWriter, service string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.Log("Request failed", service, err)
	}
	http.Error(w, err.Error(), status)
}

func (h *AffinityHandler) readJSON(w http.ResponseWriter, req *http.Request, service string, v any) bool {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.Log("Get request body", service, err)
		http.Error(w, "Body is empty", http.StatusBadRequest)
		return false
	}
	defer req.Body.Close()
	if err = json.Unmarshal(body, v); err != nil {
		h.Log("Unmarshal", service, err)
		http.Error(w, "Body is not correct: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *AffinityHandler) writeJSON(w http.ResponseWriter, service string, v any) {
	j, err := json.Marshal(v)
	if err != nil {
		h.Log("Marshal", service, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// Действие без оплаты
func (h *AffinityHandler) ApplyActionHandler(w http.ResponseWriter, req *http.Request) {
	var in ActionRequest
	if !h.readJSON(w, req, "ApplyActionHandler", &in) {
		return
	}
	result, err := h.scores.ApplyAction(req.Context(), in.OwnerID, in.CounterpartID, in.Action, in.Weight, in.CoinsSpent)
	if err != nil {
		h.fail(w, "ApplyActionHandler", err)
		return
	}
	h.writeJSON(w, "ApplyActionHandler", result)
}

// Платное действие: списание, начисление, близость
func (h *AffinityHandler) InteractionHandler(w http.ResponseWriter, req *http.Request) {
	var in services.Interaction
	if !h.readJSON(w, req, "InteractionHandler", &in) {
		return
	}
	result, err := h.interactions.Perform(req.Context(), in)
	if err != nil {
		h.fail(w, "InteractionHandler", err)
		return
	}
	h.writeJSON(w, "InteractionHandler", result)
}

// Движение средств
func (h *AffinityHandler) ApplyDeltaHandler(w http.ResponseWriter, req *http.Request) {
	var in DeltaRequest
	if !h.readJSON(w, req, "ApplyDeltaHandler", &in) {
		return
	}
	owner := mux.Vars(req)["owner"]
	entry, err := h.ledger.ApplyDelta(req.Context(), owner, in.Delta, in.Source, in.Reference)
	if err != nil {
		h.fail(w, "ApplyDeltaHandler", err)
		return
	}
	h.writeJSON(w, "ApplyDeltaHandler", entry)
}

// Кошелек и уровень богатства
func (h *AffinityHandler) GetWalletHandler(w http.ResponseWriter, req *http.Request) {
	owner := mux.Vars(req)["owner"]
	wallet, err := h.ledger.GetWallet(req.Context(), owner)
	if err != nil {
		h.fail(w, "GetWalletHandler", err)
		return
	}
	h.writeJSON(w, "GetWalletHandler", WalletResponse{
		Wallet:     wallet,
		WealthTier: h.ledger.WealthTiers().Resolve(wallet.TotalPurchased.IntPart()),
	})
}

// История операций; from/to в RFC3339
func (h *AffinityHandler) GetLedgerHandler(w http.ResponseWriter, req *http.Request) {
	owner := mux.Vars(req)["owner"]
	var from, to time.Time
	var err error
	if v := req.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "from is not correct", http.StatusBadRequest)
			return
		}
	}
	if v := req.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "to is not correct", http.StatusBadRequest)
			return
		}
	}
	entries, err := h.ledger.History(req.Context(), owner, from, to)
	if err != nil {
		h.fail(w, "GetLedgerHandler", err)
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	h.writeJSON(w, "GetLedgerHandler", entries)
}

// Близость пары и прогресс до следующего уровня
func (h *AffinityHandler) GetScoreHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	progress, err := h.scores.Progress(req.Context(), vars["owner"], vars["counterpart"])
	if err != nil {
		h.fail(w, "GetScoreHandler", err)
		return
	}
	h.writeJSON(w, "GetScoreHandler", progress)
}

func (h *AffinityHandler) GetGrantsHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	grants, err := h.scores.Grants(req.Context(), vars["owner"], vars["counterpart"])
	if err != nil {
		h.fail(w, "GetGrantsHandler", err)
		return
	}
	if grants == nil {
		grants = []model.RewardGrant{}
	}
	h.writeJSON(w, "GetGrantsHandler", grants)
}

// Получить награду
func (h *AffinityHandler) ClaimGrantHandler(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		http.Error(w, "Grant not found", http.StatusNotFound)
		return
	}
	var in ClaimRequest
	if !h.readJSON(w, req, "ClaimGrantHandler", &in) {
		return
	}
	grant, err := h.scores.ClaimGrant(req.Context(), id, in.OwnerID)
	if err != nil {
		h.fail(w, "ClaimGrantHandler", err)
		return
	}
	h.writeJSON(w, "ClaimGrantHandler", grant)
}

// Таблица уровней
func (h *AffinityHandler) GetTiersHandler(w http.ResponseWriter, req *http.Request) {
	var tiers []model.TierDefinition
	switch mux.Vars(req)["table"] {
	case model.IntimacyTable:
		tiers = h.scores.Tiers().Tiers()
	case model.WealthTable:
		tiers = h.ledger.WealthTiers().Tiers()
	default:
		http.Error(w, "Table not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, "GetTiersHandler", tiers)
}
