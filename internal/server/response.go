// internal/server/response.go
//
// 統一 HTTP 回應格式：成功回應為 JSON 物件或陣列，錯誤回應為 {"error": "..."}。
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	errNegativeBalance = errors.New("initial balance must not be negative")
	errAccountExists   = errors.New("account already exists")
	errNoOperations    = errors.New("operations must not be empty")
)

func errUnknownOperation(kind string) error {
	return fmt.Errorf("unknown operation type %q", kind)
}

// errorResponse 為所有錯誤回應的 JSON 結構。
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON 統一輸出成功回應。
// - code：HTTP 狀態碼（例如 200, 201）
// - v：可被 JSON 序列化的物件（map、struct、slice 皆可）
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr 統一輸出錯誤回應。
func writeErr(w http.ResponseWriter, err error, code int) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}
