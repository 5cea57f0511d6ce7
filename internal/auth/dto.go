package auth

import (
	"github.com/aegis-identity/aegis/internal/core/common/validation"
)

type SignInDTO struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	DeviceID  string `json:"device_id"`
	AccountID *int64 `json:"account_id"`
}

func (d SignInDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required()
	v.Field("password", d.Password).Required()
	v.Field("device_id", d.DeviceID).Required().MaxLength(200)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ValidateTokenDTO struct {
	Token string `json:"token"`
}

type RevokeTokenDTO struct {
	TokenID  string `json:"token_id"`
	DeviceID string `json:"device_id"`
}
