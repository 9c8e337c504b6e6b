package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"riskgov/native/controller"
	"riskgov/native/riskpolicy"
	"riskgov/native/timelock"
)

const requestLimit = 1 << 20 // 1 MiB

// AuditLog is the read surface of the append-only governance trail.
type AuditLog interface {
	AuditHead() (uint64, error)
	AuditRange(from, to uint64) ([]*controller.AuditRecord, error)
}

// governanceRoutes wires HTTP handlers to the parameter-change dispatcher.
type governanceRoutes struct {
	engine *controller.Engine
	audit  AuditLog
}

func newGovernanceRoutes(engine *controller.Engine, audit AuditLog) *governanceRoutes {
	return &governanceRoutes{engine: engine, audit: audit}
}

func (gr *governanceRoutes) mountAdmin(r chi.Router) {
	r.Post("/policies", gr.setPolicy)
	r.Post("/policies/disable", gr.disablePolicy)
	r.Get("/policies/{key}", gr.getPolicy)
	r.Post("/groups", gr.setGroup)
	r.Get("/groups/{contract}", gr.getGroup)
	r.Post("/veto-admin", gr.setVetoAdmin)
}

func (gr *governanceRoutes) mountProposals(r chi.Router) {
	r.Post("/expiration-date", gr.proposeExpirationDate)
	r.Post("/max-debt-per-block-multiplier", gr.proposeMaxDebtPerBlockMultiplier)
	r.Post("/min-debt-limit", gr.proposeMinDebtLimit)
	r.Post("/max-debt-limit", gr.proposeMaxDebtLimit)
	r.Post("/credit-manager-debt-limit", gr.proposeCreditManagerDebtLimit)
	r.Post("/liquidation-threshold-ramp", gr.proposeLiquidationThresholdRamp)
	r.Post("/forbid-adapter", gr.proposeForbidAdapter)
	r.Post("/token-limit", gr.proposeTokenLimit)
	r.Post("/token-quota-increase-fee", gr.proposeTokenQuotaIncreaseFee)
	r.Post("/total-debt-limit", gr.proposeTotalDebtLimit)
	r.Post("/withdraw-fee", gr.proposeWithdrawFee)
	r.Post("/quota-min-rate", gr.proposeQuotaMinRate)
	r.Post("/quota-max-rate", gr.proposeQuotaMaxRate)
	r.Post("/reserve-price-feed-status", gr.proposeReservePriceFeedStatus)
	r.Post("/forbid-bounds-update", gr.proposeForbidBoundsUpdate)
}

func (gr *governanceRoutes) mountQueue(r chi.Router) {
	r.Post("/execute", gr.executeTransaction)
	r.Post("/cancel", gr.cancelTransaction)
	r.Get("/{hash}", gr.getTransaction)
}

// --- policy administration ---

var checkFlagNames = map[string]riskpolicy.CheckFlags{
	"exactValue":   riskpolicy.CheckExactValue,
	"minValue":     riskpolicy.CheckMinValue,
	"maxValue":     riskpolicy.CheckMaxValue,
	"minChange":    riskpolicy.CheckMinChange,
	"maxChange":    riskpolicy.CheckMaxChange,
	"minPctChange": riskpolicy.CheckMinPctChange,
	"maxPctChange": riskpolicy.CheckMaxPctChange,
}

type policyPayload struct {
	Admin                             string   `json:"admin"`
	DelaySeconds                      int64    `json:"delaySeconds"`
	Checks                            []string `json:"checks"`
	ExactValue                        *string  `json:"exactValue,omitempty"`
	MinValue                          *string  `json:"minValue,omitempty"`
	MaxValue                          *string  `json:"maxValue,omitempty"`
	ReferencePointUpdatePeriodSeconds int64    `json:"referencePointUpdatePeriodSeconds,omitempty"`
	MinChange                         *string  `json:"minChange,omitempty"`
	MaxChange                         *string  `json:"maxChange,omitempty"`
	MinPctChangeUp                    uint16   `json:"minPctChangeUp,omitempty"`
	MinPctChangeDown                  uint16   `json:"minPctChangeDown,omitempty"`
	MaxPctChangeUp                    uint16   `json:"maxPctChangeUp,omitempty"`
	MaxPctChangeDown                  uint16   `json:"maxPctChangeDown,omitempty"`
}

func (p *policyPayload) toPolicy() (*riskpolicy.Policy, error) {
	admin, err := parseAddress(p.Admin)
	if err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}
	policy := &riskpolicy.Policy{
		Admin:                      admin,
		Delay:                      time.Duration(p.DelaySeconds) * time.Second,
		ReferencePointUpdatePeriod: time.Duration(p.ReferencePointUpdatePeriodSeconds) * time.Second,
		MinPctChangeUp:             p.MinPctChangeUp,
		MinPctChangeDown:           p.MinPctChangeDown,
		MaxPctChangeUp:             p.MaxPctChangeUp,
		MaxPctChangeDown:           p.MaxPctChangeDown,
	}
	for _, name := range p.Checks {
		flag, ok := checkFlagNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown check %q", name)
		}
		policy.Flags |= flag
	}
	if policy.ExactValue, err = parseOptionalBig(p.ExactValue); err != nil {
		return nil, fmt.Errorf("exactValue: %w", err)
	}
	if policy.MinValue, err = parseOptionalBig(p.MinValue); err != nil {
		return nil, fmt.Errorf("minValue: %w", err)
	}
	if policy.MaxValue, err = parseOptionalBig(p.MaxValue); err != nil {
		return nil, fmt.Errorf("maxValue: %w", err)
	}
	if policy.MinChange, err = parseOptionalBig(p.MinChange); err != nil {
		return nil, fmt.Errorf("minChange: %w", err)
	}
	if policy.MaxChange, err = parseOptionalBig(p.MaxChange); err != nil {
		return nil, fmt.Errorf("maxChange: %w", err)
	}
	return policy, nil
}

type policyKeyRequest struct {
	Caller string `json:"caller"`
	Key    string `json:"key,omitempty"`
	Group  string `json:"group,omitempty"`
	Group2 string `json:"group2,omitempty"`
	Name   string `json:"name,omitempty"`
}

func (req *policyKeyRequest) deriveKey() (common.Hash, error) {
	if req.Key != "" {
		return parseHash(req.Key)
	}
	if req.Group == "" || req.Name == "" {
		return common.Hash{}, errors.New("either key or group and name required")
	}
	if req.Group2 != "" {
		return riskpolicy.DeriveKey2(req.Group, req.Group2, req.Name), nil
	}
	return riskpolicy.DeriveKey(req.Group, req.Name), nil
}

func (gr *governanceRoutes) setPolicy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		policyKeyRequest
		Policy policyPayload `json:"policy"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	key, err := req.deriveKey()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	policy, err := req.Policy.toPolicy()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := gr.engine.SetPolicy(caller, key, policy); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key.Hex()})
}

func (gr *governanceRoutes) disablePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	key, err := req.deriveKey()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := gr.engine.DisablePolicy(caller, key); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key.Hex()})
}

func (gr *governanceRoutes) getPolicy(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash(chi.URLParam(r, "key"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	policy, ok, err := gr.engine.Policy(key)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !ok {
		http.Error(w, "policy not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (gr *governanceRoutes) setGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller   string `json:"caller"`
		Contract string `json:"contract"`
		Group    string `json:"group"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	contract, err := parseAddress(req.Contract)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := gr.engine.SetGroup(caller, contract, req.Group); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"contract": contract.Hex(), "group": req.Group})
}

func (gr *governanceRoutes) getGroup(w http.ResponseWriter, r *http.Request) {
	contract, err := parseAddress(chi.URLParam(r, "contract"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	group, err := gr.engine.Group(contract)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"contract": contract.Hex(), "group": group})
}

func (gr *governanceRoutes) setVetoAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller    string `json:"caller"`
		VetoAdmin string `json:"vetoAdmin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	admin, err := parseAddress(req.VetoAdmin)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := gr.engine.SetVetoAdmin(caller, admin); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"vetoAdmin": admin.Hex()})
}

// --- parameter proposals ---

type proposalResponse struct {
	TxHash string `json:"txHash"`
}

func (gr *governanceRoutes) proposeExpirationDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller        string `json:"caller"`
		CreditManager string `json:"creditManager"`
		Value         string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, cm, value, err := parseAddrAddrValue(req.Caller, req.CreditManager, req.Value)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := gr.engine.SetExpirationDate(caller, cm, value)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeMaxDebtPerBlockMultiplier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller        string `json:"caller"`
		CreditManager string `json:"creditManager"`
		Multiplier    uint8  `json:"multiplier"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cm, err := parseAddress(req.CreditManager)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := gr.engine.SetMaxDebtPerBlockMultiplier(caller, cm, req.Multiplier)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeMinDebtLimit(w http.ResponseWriter, r *http.Request) {
	gr.proposeDebtLimit(w, r, gr.engine.SetMinDebtLimit)
}

func (gr *governanceRoutes) proposeMaxDebtLimit(w http.ResponseWriter, r *http.Request) {
	gr.proposeDebtLimit(w, r, gr.engine.SetMaxDebtLimit)
}

func (gr *governanceRoutes) proposeDebtLimit(w http.ResponseWriter, r *http.Request, propose func(common.Address, common.Address, *big.Int) (common.Hash, error)) {
	var req struct {
		Caller        string `json:"caller"`
		CreditManager string `json:"creditManager"`
		Value         string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, cm, value, err := parseAddrAddrValue(req.Caller, req.CreditManager, req.Value)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := propose(caller, cm, value)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeCreditManagerDebtLimit(w http.ResponseWriter, r *http.Request) {
	gr.proposeDebtLimit(w, r, gr.engine.SetCreditManagerDebtLimit)
}

func (gr *governanceRoutes) proposeLiquidationThresholdRamp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller              string `json:"caller"`
		CreditManager       string `json:"creditManager"`
		Token               string `json:"token"`
		LTFinal             uint16 `json:"ltFinal"`
		RampStartUnix       int64  `json:"rampStartUnix"`
		RampDurationSeconds int64  `json:"rampDurationSeconds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cm, err := parseAddress(req.CreditManager)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := gr.engine.RampLiquidationThreshold(caller, cm, token, req.LTFinal,
		time.Unix(req.RampStartUnix, 0).UTC(), time.Duration(req.RampDurationSeconds)*time.Second)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeForbidAdapter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller        string `json:"caller"`
		CreditManager string `json:"creditManager"`
		Adapter       string `json:"adapter"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cm, err := parseAddress(req.CreditManager)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	adapter, err := parseAddress(req.Adapter)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := gr.engine.ForbidAdapter(caller, cm, adapter)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeTokenLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Pool   string `json:"pool"`
		Token  string `json:"token"`
		Value  string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, pool, token, err := parseThreeAddresses(req.Caller, req.Pool, req.Token)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	value, err := parseBig(req.Value)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := gr.engine.SetTokenLimit(caller, pool, token, value)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeTokenQuotaIncreaseFee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Pool   string `json:"pool"`
		Token  string `json:"token"`
		Fee    uint16 `json:"fee"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, pool, token, err := parseThreeAddresses(req.Caller, req.Pool, req.Token)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := gr.engine.SetTokenQuotaIncreaseFee(caller, pool, token, req.Fee)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeTotalDebtLimit(w http.ResponseWriter, r *http.Request) {
	gr.proposePoolValue(w, r, gr.engine.SetTotalDebtLimit)
}

func (gr *governanceRoutes) proposeWithdrawFee(w http.ResponseWriter, r *http.Request) {
	gr.proposePoolValue(w, r, gr.engine.SetWithdrawFee)
}

func (gr *governanceRoutes) proposePoolValue(w http.ResponseWriter, r *http.Request, propose func(common.Address, common.Address, *big.Int) (common.Hash, error)) {
	var req struct {
		Caller string `json:"caller"`
		Pool   string `json:"pool"`
		Value  string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, pool, value, err := parseAddrAddrValue(req.Caller, req.Pool, req.Value)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := propose(caller, pool, value)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeQuotaMinRate(w http.ResponseWriter, r *http.Request) {
	gr.proposeQuotaRate(w, r, gr.engine.SetMinQuotaRate)
}

func (gr *governanceRoutes) proposeQuotaMaxRate(w http.ResponseWriter, r *http.Request) {
	gr.proposeQuotaRate(w, r, gr.engine.SetMaxQuotaRate)
}

func (gr *governanceRoutes) proposeQuotaRate(w http.ResponseWriter, r *http.Request, propose func(common.Address, common.Address, common.Address, uint16) (common.Hash, error)) {
	var req struct {
		Caller string `json:"caller"`
		Pool   string `json:"pool"`
		Token  string `json:"token"`
		Rate   uint16 `json:"rate"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, pool, token, err := parseThreeAddresses(req.Caller, req.Pool, req.Token)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := propose(caller, pool, token, req.Rate)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeReservePriceFeedStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string `json:"caller"`
		PriceOracle string `json:"priceOracle"`
		Token       string `json:"token"`
		Active      bool   `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, oracle, token, err := parseThreeAddresses(req.Caller, req.PriceOracle, req.Token)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := gr.engine.SetReservePriceFeedStatus(caller, oracle, token, req.Active)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) proposeForbidBoundsUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller    string `json:"caller"`
		PriceFeed string `json:"priceFeed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	feed, err := parseAddress(req.PriceFeed)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := gr.engine.ForbidBoundsUpdate(caller, feed)
	gr.writeProposal(w, hash, err)
}

func (gr *governanceRoutes) writeProposal(w http.ResponseWriter, hash common.Hash, err error) {
	if err != nil {
		// A non-zero hash alongside an error means the transaction was
		// queued but the audit write failed; the caller still needs the
		// hash to execute or cancel it.
		if hash != (common.Hash{}) {
			writeJSON(w, http.StatusInternalServerError, struct {
				TxHash string `json:"txHash"`
				Error  string `json:"error"`
			}{TxHash: hash.Hex(), Error: err.Error()})
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, proposalResponse{TxHash: hash.Hex()})
}

// --- queue ---

func (gr *governanceRoutes) executeTransaction(w http.ResponseWriter, r *http.Request) {
	gr.resolveTransaction(w, r, gr.engine.Execute)
}

func (gr *governanceRoutes) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	gr.resolveTransaction(w, r, gr.engine.Cancel)
}

func (gr *governanceRoutes) resolveTransaction(w http.ResponseWriter, r *http.Request, act func(common.Address, common.Hash) error) {
	var req struct {
		Caller string `json:"caller"`
		TxHash string `json:"txHash"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	hash, err := parseHash(req.TxHash)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := act(caller, hash); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"txHash": hash.Hex()})
}

func (gr *governanceRoutes) getTransaction(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHash(chi.URLParam(r, "hash"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	tx, ok, err := gr.engine.QueuedTransaction(hash)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !ok {
		http.Error(w, "transaction not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// --- audit trail ---

func (gr *governanceRoutes) listAudit(w http.ResponseWriter, r *http.Request) {
	from, err := parseSequence(r.URL.Query().Get("from"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := parseSequence(r.URL.Query().Get("to"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	records, err := gr.audit.AuditRange(from, to)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	head, err := gr.audit.AuditHead()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"head": head, "records": records})
}

// --- helpers ---

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, requestLimit))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func parseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}

func parseHash(raw string) (common.Hash, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "0x") || len(trimmed) != 66 {
		return common.Hash{}, fmt.Errorf("invalid hash %q", raw)
	}
	return common.HexToHash(trimmed), nil
}

func parseBig(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return value, nil
}

func parseOptionalBig(raw *string) (*big.Int, error) {
	if raw == nil {
		return nil, nil
	}
	return parseBig(*raw)
}

func parseSequence(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func parseAddrAddrValue(callerRaw, contractRaw, valueRaw string) (common.Address, common.Address, *big.Int, error) {
	caller, err := parseAddress(callerRaw)
	if err != nil {
		return common.Address{}, common.Address{}, nil, err
	}
	contract, err := parseAddress(contractRaw)
	if err != nil {
		return common.Address{}, common.Address{}, nil, err
	}
	value, err := parseBig(valueRaw)
	if err != nil {
		return common.Address{}, common.Address{}, nil, err
	}
	return caller, contract, value, nil
}

func parseThreeAddresses(a, b, c string) (common.Address, common.Address, common.Address, error) {
	first, err := parseAddress(a)
	if err != nil {
		return common.Address{}, common.Address{}, common.Address{}, err
	}
	second, err := parseAddress(b)
	if err != nil {
		return common.Address{}, common.Address{}, common.Address{}, err
	}
	third, err := parseAddress(c)
	if err != nil {
		return common.Address{}, common.Address{}, common.Address{}, err
	}
	return first, second, third, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, controller.ErrParameterChecksFailed):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, controller.ErrUnknownContract), errors.Is(err, timelock.ErrNotQueued):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, controller.ErrNotConfigurator),
		errors.Is(err, riskpolicy.ErrNotConfigurator),
		errors.Is(err, timelock.ErrNotVetoAdmin),
		errors.Is(err, timelock.ErrNotExecutor):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, timelock.ErrOutsideTimeWindow),
		errors.Is(err, timelock.ErrParameterChangedAfterQueue):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, timelock.ErrExecutionReverted):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, riskpolicy.ErrEmptyGroup):
		writeBadRequest(w, err)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
