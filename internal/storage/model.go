// internal/storage/model.go
//
// 定義「資料持久化層 (storage layer)」的結構模型。
// 該層只負責把帳本快照序列化成各種後端格式（CSV、JSON、PostgreSQL），
// 不涉入任何存提款或轉帳規則。
package storage

import "time"

// SnapshotVersion 為目前快照結構的版本號。
const SnapshotVersion = 2

// Meta 為快照的中繼資料：儲存方式、版本、建立時間與說明。
// CSV 後端不保存 Meta，載入時會由 store 補上。
type Meta struct {
	Storage   string    `json:"storage"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// PersistAccount 為帳戶在儲存層的序列化格式，一筆對應一個 (名稱, 餘額)。
type PersistAccount struct {
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// Snapshot 為帳本狀態的完整快照，帳戶順序不具意義。
type Snapshot struct {
	Meta     Meta             `json:"_meta"`
	Accounts []PersistAccount `json:"accounts"`
}

// Len 回傳快照內的帳戶筆數。
func (s Snapshot) Len() int {
	return len(s.Accounts)
}
