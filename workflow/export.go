package workflow

import "context"

type TemplateService interface {
	/**
	 * @description: 校验流程图,只转换不保存,用于编辑器保存之前检查
	 * @param ctx context.Context
	 * @param diagramID string 已经通过 LoadDiagramConfig 加载的流程图
	 * @return []*ScheduleEntry, error 结构错误可以用 IsStructuralError 判断
	 */
	ValidateDiagram(ctx context.Context, diagramID string) ([]*ScheduleEntry, error)
	/**
	 * @description: 导入模板
	 *				 同一个标题的模板同时只能有一个导入,其他的直接返回 ErrLockFailed
	 *				 已经存在的模板会被重新生成任务,旧的任务全部删除
	 * @param ctx context.Context
	 * @param req *ImportTemplateReq
	 * @return *Template, error
	 */
	ImportTemplate(ctx context.Context, req *ImportTemplateReq) (*Template, error)
	/**
	 * @description: 按标题查询模板
	 * @param ctx context.Context
	 * @param title string
	 * @return *TemplatePo, error 找不到返回 ErrTemplateNotFound
	 */
	GetTemplate(ctx context.Context, title string) (*TemplatePo, error)
	/**
	 * @description: 查询模板下面的任务,按层级排序
	 * @param ctx context.Context
	 * @param params *QueryTaskTemplateParams
	 * @return []*TaskTemplatePo, error
	 */
	QueryTemplateTasks(ctx context.Context, params *QueryTaskTemplateParams) ([]*TaskTemplatePo, error)
}

// TemplateServiceImpl 模板服务
type TemplateServiceImpl struct {
	repo       TemplateRepo
	importLock TemplateLock
	converter  *Converter
}

/*
*
  - @description: 创建模板服务
  - @param repo TemplateRepo
  - @param importLock TemplateLock
  - @param roles RoleResolver 为nil的时候使用repo中的角色表
  - @return TemplateService
*/
func NewTemplateService(repo TemplateRepo, importLock TemplateLock, roles RoleResolver) TemplateService {
	if roles == nil {
		roles = repo
	}
	return &TemplateServiceImpl{
		repo:       repo,
		importLock: importLock,
		converter:  NewConverter(roles),
	}
}
