package user

import (
	"github.com/aegis-identity/aegis/internal/core/common/validation"
)

type CreateUserDTO struct {
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (d CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("account_id", d.AccountID).Required()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(100)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(128)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
