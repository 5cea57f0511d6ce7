package group

import (
	"github.com/aegis-identity/aegis/internal/core/common/validation"
)

type CreateGroupDTO struct {
	AccountID   int64  `json:"account_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d CreateGroupDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("account_id", d.AccountID).Required()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateGroupDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (d UpdateGroupDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(100)
	}
	if d.Description != nil {
		v.Field("description", *d.Description).MaxLength(500)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UserIDsDTO struct {
	UserIDs []int64 `json:"user_ids"`
}

type RoleIDsDTO struct {
	RoleIDs []int64 `json:"role_ids"`
}
