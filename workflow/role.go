package workflow

import (
	"context"

	"github.com/pkg/errors"
)

// Role 可以处理任务的角色
type Role struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// RoleResolver 角色查询,找不到返回 ErrRoleNotFound
type RoleResolver interface {
	ResolveRole(ctx context.Context, id int64) (*Role, error)
}

type mapRoleResolver struct {
	roles map[int64]*Role
}

// NewMapRoleResolver 内存中的角色表,创建之后只读
func NewMapRoleResolver(roles ...*Role) RoleResolver {
	m := make(map[int64]*Role, len(roles))
	for _, role := range roles {
		if role != nil {
			m[role.ID] = role
		}
	}
	return &mapRoleResolver{roles: m}
}

func (r *mapRoleResolver) ResolveRole(ctx context.Context, id int64) (*Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, errors.WithMessagef(ErrRoleNotFound, "role id: %d", id)
	}
	return role, nil
}
