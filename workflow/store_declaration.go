package workflow

import (
	"context"
)

type TemplateRepo interface {
	CreateTemplate(ctx context.Context, template *TemplatePo) (*TemplatePo, error)
	QueryTemplate(ctx context.Context, param *QueryTemplateParams) ([]*TemplatePo, error)
	UpdateTemplate(ctx context.Context, param *UpdateTemplateParams) error
	CreateTaskTemplates(ctx context.Context, tasks []*TaskTemplatePo) error
	DeleteTaskTemplates(ctx context.Context, templateID int64) error
	QueryTaskTemplate(ctx context.Context, param *QueryTaskTemplateParams) ([]*TaskTemplatePo, error)
	CreateRole(ctx context.Context, role *RolePo) (*RolePo, error)
	// ResolveRole 角色表同时作为 RoleResolver 使用
	ResolveRole(ctx context.Context, id int64) (*Role, error)
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
