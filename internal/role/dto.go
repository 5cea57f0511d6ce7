package role

import (
	"github.com/aegis-identity/aegis/internal/core/common/validation"
)

type CreateRoleDTO struct {
	AccountID   int64  `json:"account_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d CreateRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("account_id", d.AccountID).Required()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateRoleDTO carries optional field updates; nil means leave unchanged.
type UpdateRoleDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (d UpdateRoleDTO) Validate() error {
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

type PermissionIDsDTO struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

type RoleIDsDTO struct {
	RoleIDs []int64 `json:"role_ids"`
}
