package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

const importLockDuration = time.Minute

// 辅助函数
func String(s string) *string { return &s }
func Bool(b bool) *bool       { return &b }
func Int64(i int64) *int64    { return &i }

type ImportTemplateReq struct {
	DiagramID string `json:"diagram_id" validate:"required"`
	Title     string `json:"title" validate:"required,max=255"`
	Client    string `json:"client"`
}

// Template 导入完成的模板
type Template struct {
	ID        int64
	Title     string
	DiagramID string
	Client    string
	Tasks     []*ScheduleEntry
	CreatedAt int64
	UpdatedAt int64
}

func (s *TemplateServiceImpl) ValidateDiagram(ctx context.Context, diagramID string) ([]*ScheduleEntry, error) {
	diagram, err := GetAndLoadDiagram(diagramID)
	if err != nil {
		return nil, errors.WithMessagef(err, "GetAndLoadDiagram failed, diagramID: %s", diagramID)
	}
	entries, err := s.converter.Convert(ctx, diagram)
	if err != nil {
		return nil, errors.WithMessagef(err, "Convert failed, diagramID: %s", diagramID)
	}
	return entries, nil
}

func (s *TemplateServiceImpl) ImportTemplate(ctx context.Context, req *ImportTemplateReq) (*Template, error) {
	if req == nil {
		return nil, errors.WithMessage(ErrTemplateParamInvalid, "ImportTemplate failed, req is nil")
	}
	if err := validatorUtil.Struct(req); err != nil {
		return nil, errors.Wrapf(ErrTemplateParamInvalid, "ImportTemplate failed, req: %v,err: %v", req, err)
	}
	var ret *Template
	err := s.importLock.NonBlockingSynchronized(ctx, TemplateLockKey(req.Title), importLockDuration, func(ctx context.Context) error {
		entries, err := s.ValidateDiagram(ctx, req.DiagramID)
		if err != nil {
			return err
		}
		ret, err = s.saveTemplate(ctx, req, entries)
		return err
	})
	if err != nil {
		if IsStructuralError(err) {
			// 画图的问题,返回给作者即可
			slog.WarnContext(ctx, "ImportTemplate rejected diagram", "title", req.Title, "diagram", req.DiagramID, "err", err)
		} else {
			slog.ErrorContext(ctx, "ImportTemplate failed", "title", req.Title, "diagram", req.DiagramID, "err", err)
		}
		return nil, errors.WithMessagef(err, "ImportTemplate failed, title: %s", req.Title)
	}
	slog.InfoContext(ctx, "ImportTemplate done", "title", ret.Title, "template_id", ret.ID, "tasks", len(ret.Tasks))
	return ret, nil
}

// saveTemplate 在一个事务里面写模板和任务,已有的任务全部替换
func (s *TemplateServiceImpl) saveTemplate(ctx context.Context, req *ImportTemplateReq, entries []*ScheduleEntry) (*Template, error) {
	var template *TemplatePo
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.QueryTemplate(ctx, &QueryTemplateParams{
			Title: &req.Title,
			Page:  &Pager{Page: 1, Size: 1},
		})
		if err != nil {
			return errors.WithMessagef(err, "QueryTemplate failed, title: %s", req.Title)
		}
		if len(existing) == 0 {
			template, err = s.repo.CreateTemplate(ctx, &TemplatePo{
				Title:     req.Title,
				DiagramID: req.DiagramID,
				Client:    req.Client,
				TaskCount: int64(len(entries)),
			})
			if err != nil {
				return errors.WithMessagef(err, "CreateTemplate failed, title: %s", req.Title)
			}
		} else {
			template = existing[0]
			err = s.repo.UpdateTemplate(ctx, &UpdateTemplateParams{
				Where: &UpdateTemplateWhere{IDIn: []int64{template.ID}},
				Fields: &UpdateTemplateField{
					DiagramID: &req.DiagramID,
					Client:    &req.Client,
					TaskCount: Int64(int64(len(entries))),
				},
			})
			if err != nil {
				return errors.WithMessagef(err, "UpdateTemplate failed, templateID: %d", template.ID)
			}
			if err := s.repo.DeleteTaskTemplates(ctx, template.ID); err != nil {
				return errors.WithMessagef(err, "DeleteTaskTemplates failed, templateID: %d", template.ID)
			}
			template.DiagramID = req.DiagramID
			template.Client = req.Client
			template.TaskCount = int64(len(entries))
			template.UpdatedAt = time.Now().Unix()
		}
		tasks := make([]*TaskTemplatePo, 0, len(entries))
		for _, entry := range entries {
			tasks = append(tasks, NewTaskTemplatePo(template.ID, entry))
		}
		if err := s.repo.CreateTaskTemplates(ctx, tasks); err != nil {
			return errors.WithMessagef(err, "CreateTaskTemplates failed, templateID: %d", template.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Template{
		ID:        template.ID,
		Title:     template.Title,
		DiagramID: template.DiagramID,
		Client:    template.Client,
		Tasks:     entries,
		CreatedAt: template.CreatedAt,
		UpdatedAt: template.UpdatedAt,
	}, nil
}

func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, title string) (*TemplatePo, error) {
	templates, err := s.repo.QueryTemplate(ctx, &QueryTemplateParams{
		Title: &title,
		Page:  &Pager{Page: 1, Size: 1},
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "QueryTemplate failed, title: %s", title)
	}
	if len(templates) == 0 {
		return nil, errors.WithMessagef(ErrTemplateNotFound, "title: %s", title)
	}
	return templates[0], nil
}

func (s *TemplateServiceImpl) QueryTemplateTasks(ctx context.Context, params *QueryTaskTemplateParams) ([]*TaskTemplatePo, error) {
	if params == nil {
		return nil, errors.WithMessage(ErrTemplateParamInvalid, "QueryTemplateTasks failed, params is nil")
	}
	if err := validatorUtil.Struct(params); err != nil {
		return nil, errors.Wrapf(ErrTemplateParamInvalid, "QueryTemplateTasks failed, params: %v,err: %v", params, err)
	}
	if params.Page == nil {
		params.Page = &Pager{IsNoLimit: Bool(true)}
	}
	tasks, err := s.repo.QueryTaskTemplate(ctx, params)
	if err != nil {
		return nil, errors.WithMessagef(err, "QueryTaskTemplate failed, templateID: %d", *params.TemplateID)
	}
	return tasks, nil
}
