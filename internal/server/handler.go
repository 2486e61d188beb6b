// internal/server/handler.go
//
// Package server
// ─────────────────────────────────────────────
// 提供帳本的 HTTP RESTful 介面。每個 handler 僅負責：
//  1. 接收與驗證 HTTP 請求
//  2. 組出 transaction 操作並套用到帳本
//  3. 回傳標準化 JSON 回應
//  4. 成功變更狀態後呼叫 persist hook 寫入快照
//
// bank.Ledger 本身不加鎖，所有存取都經過 Server.mu 序列化。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"banksystem/internal/bank"
	"banksystem/internal/logging"
	"banksystem/internal/metrics"
	"banksystem/internal/storage"
	"banksystem/internal/transaction"
)

// PersistFunc 將目前帳本狀態寫入儲存層；呼叫時 Server 已持有帳本鎖。
type PersistFunc func(ctx context.Context) error

// Server 為 HTTP 層核心結構。
type Server struct {
	mu      sync.Mutex
	ledger  *bank.Ledger
	persist PersistFunc

	metrics  metrics.Collector
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// Option 調整 Server 的可選相依。
type Option func(*Server)

// WithMetrics 設定指標收集器與 /metrics 使用的 gatherer。
func WithMetrics(c metrics.Collector, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = c
		s.gatherer = g
	}
}

// WithLogger 設定 access log 與錯誤紀錄使用的 logger。
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer 建立新的 HTTP 伺服器。persist 可為 nil；若提供則會於每次成功變更後觸發。
func NewServer(l *bank.Ledger, persist PersistFunc, opts ...Option) *Server {
	s := &Server{
		ledger:   l,
		persist:  persist,
		metrics:  metrics.NoOpCollector{},
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.L().Named("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger 回傳底層帳本；呼叫端需自行透過 Locked 序列化存取。
func (s *Server) Ledger() *bank.Ledger { return s.ledger }

// Locked 在持有帳本鎖的情況下執行 fn。
func (s *Server) Locked(fn func(l *bank.Ledger)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ledger)
}

// apply 套用操作並記錄指標；呼叫端需持有 s.mu。
func (s *Server) apply(op transaction.Operation) error {
	start := time.Now()
	err := op.Apply(s.ledger)
	s.metrics.RecordOperation(transaction.Kind(op), transaction.Classify(err), time.Since(start))
	return err
}

// changed 記錄帳戶數並觸發持久化；呼叫端需持有 s.mu。
// 變更已經提交，客戶端斷線不應中止寫入，因此改用不會被取消的 context。
// 寫入失敗只記錄，不影響已完成的 HTTP 回應。
func (s *Server) changed(ctx context.Context) {
	s.metrics.RecordAccounts(s.ledger.Len())
	if s.persist == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.persist(ctx); err != nil {
		s.logger.Warn("persist failed", zap.String("request_id", RequestID(ctx)), zap.Error(err))
	}
}

func (s *Server) account(name string) (bank.Account, bool) {
	bal, ok := s.ledger.Balance(name)
	return bank.Account{Name: name, Balance: bal}, ok
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// listAccounts 處理 GET /accounts，依名稱排序。
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	all := s.ledger.All()
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	writeJSON(w, http.StatusOK, all)
}

// createAccount 處理 POST /accounts：AddUser 後存入初始餘額。
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Balance int64  `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	if err := storage.ValidateName(req.Name); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	if req.Balance < 0 {
		writeErr(w, errNegativeBalance, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledger.AddUser(req.Name); !ok {
		writeErr(w, errAccountExists, http.StatusConflict)
		return
	}
	if err := s.ledger.Deposit(req.Name, req.Balance); err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	a, _ := s.account(req.Name)
	writeJSON(w, http.StatusCreated, a)
	s.changed(r.Context())
}

// getAccount 處理 GET /accounts/{name}。
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s.mu.Lock()
	a, ok := s.account(name)
	s.mu.Unlock()

	if !ok {
		writeErr(w, bank.ErrNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// deleteAccount 處理 DELETE /accounts/{name}，回傳刪除當下的餘額。
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s.mu.Lock()
	defer s.mu.Unlock()

	bal, ok := s.ledger.RemoveUser(name)
	if !ok {
		writeErr(w, bank.ErrNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, bank.Account{Name: name, Balance: bal})
	s.changed(r.Context())
}

// deposit 處理 POST /accounts/{name}/deposit；帳戶不存在時自動建立，因此名稱需先通過檢查。
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := storage.ValidateName(name); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	s.single(w, r, transaction.NewDeposit(name, req.Amount), name)
}

// withdraw 處理 POST /accounts/{name}/withdraw。
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	s.single(w, r, transaction.NewWithdraw(name, req.Amount), name)
}

// single 套用單一帳戶的操作並回傳該帳戶最新狀態。
func (s *Server) single(w http.ResponseWriter, r *http.Request, op transaction.Operation, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(op); err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	a, _ := s.account(name)
	writeJSON(w, http.StatusOK, a)
	s.changed(r.Context())
}

// transfer 處理 POST /transfer {from, to, amount}，成功後同時回傳兩帳戶最新餘額。
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(transaction.NewTransfer(req.From, req.To, req.Amount)); err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	from, _ := s.account(req.From)
	to, _ := s.account(req.To)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "transfer success",
		"from":    from,
		"to":      to,
	})
	s.changed(r.Context())
}

type operationRequest struct {
	Type    string `json:"type"`
	Account string `json:"account"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  int64  `json:"amount"`
}

func (o operationRequest) build() (transaction.Operation, error) {
	switch o.Type {
	case "deposit":
		if err := storage.ValidateName(o.Account); err != nil {
			return nil, err
		}
		return transaction.NewDeposit(o.Account, o.Amount), nil
	case "withdraw":
		return transaction.NewWithdraw(o.Account, o.Amount), nil
	case "transfer":
		return transaction.NewTransfer(o.From, o.To, o.Amount), nil
	default:
		return nil, errUnknownOperation(o.Type)
	}
}

func (o operationRequest) accounts() []string {
	if o.Type == "transfer" {
		return []string{o.From, o.To}
	}
	return []string{o.Account}
}

type batchResponse struct {
	BatchID    string         `json:"batch_id"`
	Atomic     bool           `json:"atomic"`
	Operations int            `json:"operations"`
	Error      string         `json:"error,omitempty"`
	Accounts   []bank.Account `json:"accounts"`
}

// transactions 處理 POST /transactions：將多個操作串成 Combinator 依序套用。
// atomic 為 true 時失敗會整體還原；否則失敗前已完成的操作會保留並寫入快照。
func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Atomic     bool               `json:"atomic"`
		Operations []operationRequest `json:"operations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	if len(req.Operations) == 0 {
		writeErr(w, errNoOperations, http.StatusBadRequest)
		return
	}

	ops := make([]transaction.Operation, 0, len(req.Operations))
	for _, o := range req.Operations {
		op, err := o.build()
		if err != nil {
			writeErr(w, err, http.StatusBadRequest)
			return
		}
		ops = append(ops, op)
	}
	op := transaction.Chain(ops[0], ops[1:]...)
	if req.Atomic {
		op = transaction.NewAtomic(op)
	}

	resp := batchResponse{
		BatchID:    uuid.NewString(),
		Atomic:     req.Atomic,
		Operations: len(ops),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(op)
	resp.Accounts = s.touched(req.Operations)

	s.logger.Info("batch applied",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("batch_id", resp.BatchID),
		zap.Int("operations", resp.Operations),
		zap.Bool("atomic", req.Atomic),
		zap.String("result", transaction.Classify(err)),
	)

	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		if !req.Atomic {
			s.changed(r.Context())
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
	s.changed(r.Context())
}

// touched 回傳批次中引用且目前存在的帳戶，依名稱排序、不重複。
func (s *Server) touched(reqs []operationRequest) []bank.Account {
	seen := make(map[string]bool)
	out := []bank.Account{}
	for _, o := range reqs {
		for _, name := range o.accounts() {
			if seen[name] {
				continue
			}
			seen[name] = true
			if a, ok := s.account(name); ok {
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// health 提供健康檢查端點：GET /health。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := s.ledger.Len()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "accounts": n})
}

// statusFor 將交易錯誤對應到 HTTP 狀態碼。
func statusFor(err error) int {
	switch {
	case errors.Is(err, transaction.ErrInvalidAccount):
		return http.StatusNotFound
	case errors.Is(err, transaction.ErrInsufficientFunds):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
