// internal/server/router.go
//
// 本檔負責 HTTP 路由註冊，與 handler.go 分離：
//   - handler.go 定義「如何處理請求」
//   - router.go 定義「請求如何被導向」
//
// 所有端點同時掛在根路徑與 /api/v1 之下。
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router 建立並回傳整個 HTTP 處理鏈。
func (s *Server) Router() http.Handler {
	root := mux.NewRouter()
	root.Use(requestIDMiddleware, s.observeMiddleware)

	s.routes(root.PathPrefix("/api/v1").Subrouter())
	s.routes(root)

	return root
}

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	//   - GET    /accounts
	//   - POST   /accounts
	r.HandleFunc("/accounts", s.listAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts", s.createAccount).Methods(http.MethodPost)

	//   - GET    /accounts/{name}
	//   - DELETE /accounts/{name}
	//   - POST   /accounts/{name}/deposit
	//   - POST   /accounts/{name}/withdraw
	r.HandleFunc("/accounts/{name}", s.getAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{name}", s.deleteAccount).Methods(http.MethodDelete)
	r.HandleFunc("/accounts/{name}/deposit", s.deposit).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{name}/withdraw", s.withdraw).Methods(http.MethodPost)

	r.HandleFunc("/transfer", s.transfer).Methods(http.MethodPost)
	r.HandleFunc("/transactions", s.transactions).Methods(http.MethodPost)
}
