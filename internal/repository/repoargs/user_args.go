package repoargs

import "github.com/avkozlov/edumarket/internal/domain"

type CreateUser struct {
	Username string
	Password string
	Role     domain.UserRole
}
