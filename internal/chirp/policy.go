package chirp

import "github.com/hitoshi/chirper/internal/model"

// Action はチャープに対する操作の種類を表す。
type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Policy はアクターがチャープに対して操作を行えるかを判定する。
type Policy interface {
	CanPerform(actorID string, action Action, chirp *model.Chirp) bool
}

// OwnerPolicy は投稿者本人のみに更新と削除を許可するポリシー。
// 閲覧は常に許可する。
type OwnerPolicy struct{}

// CanPerform はPolicyインターフェースを実装する。
func (OwnerPolicy) CanPerform(actorID string, action Action, chirp *model.Chirp) bool {
	if chirp == nil {
		return false
	}
	switch action {
	case ActionView:
		return true
	case ActionUpdate, ActionDelete:
		return actorID != "" && actorID == chirp.UserID
	default:
		return false
	}
}

// compile-time interface check
var _ Policy = OwnerPolicy{}
