// internal/bank/errors.go
//
// 本檔集中定義帳本層的「領域錯誤（domain errors）」。
// 帳戶生命週期（新增、刪除、查詢）以 (值, ok) 回報，不使用錯誤；
// 只有存款與提款這兩個會改變餘額的基本操作會回傳下列錯誤。

package bank

import "errors"

var (
	// ErrNotFound 代表帳戶不存在。
	ErrNotFound = errors.New("account not found")

	// ErrInsufficient 代表餘額不足，提款失敗且餘額不變。
	ErrInsufficient = errors.New("insufficient funds")
)
