package middleware

import (
	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// CurrentUser содержит информацию о текущем пользователе
type CurrentUser struct {
	Email    string
	AuthMode string
}

func setUser(c *gin.Context, user *CurrentUser) {
	c.Set(currentUserKey, user)
}

// GetUserFromContext извлекает пользователя из контекста; nil, если авторизации не было
func GetUserFromContext(c *gin.Context) *CurrentUser {
	if user, exists := c.Get(currentUserKey); exists {
		if u, ok := user.(*CurrentUser); ok {
			return u
		}
	}
	return nil
}
