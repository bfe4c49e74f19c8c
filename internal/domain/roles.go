package domain

// UserRole описывает права пользователя бота.
type UserRole string

const (
	UserRoleViewer UserRole = "viewer"
	UserRoleAdmin  UserRole = "admin"
)

// RoleForUser возвращает роль по списку администраторов из конфигурации.
func RoleForUser(adminIDs []int64, tgUserID int64) UserRole {
	for _, id := range adminIDs {
		if id == tgUserID {
			return UserRoleAdmin
		}
	}
	return UserRoleViewer
}

// CanManageOutlets сообщает, может ли роль менять таблицу изданий и настройки.
func (r UserRole) CanManageOutlets() bool {
	return r == UserRoleAdmin
}
