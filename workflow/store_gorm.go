package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type TemplatePo struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title     string `gorm:"column:title;uniqueIndex" json:"title"`
	DiagramID string `gorm:"column:diagram_id" json:"diagram_id"`
	Client    string `gorm:"column:client" json:"client"`
	TaskCount int64  `gorm:"column:task_count" json:"task_count"`
	CreatedAt int64  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt int64  `gorm:"column:updated_at" json:"updated_at"`
}

func (TemplatePo) TableName() string {
	return "workflow_template"
}

type TaskTemplatePo struct {
	ID               int64   `gorm:"column:id;primaryKey;autoIncrement"`
	TemplateID       int64   `gorm:"column:template_id;index"`
	StepID           string  `gorm:"column:step_id"`
	Title            string  `gorm:"column:title"`
	Priority         int     `gorm:"column:priority"`
	Ordering         int     `gorm:"column:ordering"`
	IsLast           bool    `gorm:"column:is_last"`
	Flags            []byte  `gorm:"column:flags"` // StepFlags json
	EditType         int     `gorm:"column:edit_type"`
	ProcessingStatus int     `gorm:"column:processing_status"`
	ConditionType    *string `gorm:"column:condition_type"`
	ConditionValue   *string `gorm:"column:condition_value"`
	RoleIDs          string  `gorm:"column:role_ids"` // 逗号分隔
	ScriptName       *string `gorm:"column:script_name"`
	ScriptPath       *string `gorm:"column:script_path"`
	CreatedAt        int64   `gorm:"column:created_at"`
	UpdatedAt        int64   `gorm:"column:updated_at"`
}

func (TaskTemplatePo) TableName() string {
	return "task_template"
}

type RolePo struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Title     string `gorm:"column:title"`
	CreatedAt int64  `gorm:"column:created_at"`
	UpdatedAt int64  `gorm:"column:updated_at"`
}

func (RolePo) TableName() string {
	return "role"
}

// NewTaskTemplatePo 转换结果转成可以保存的任务模板
func NewTaskTemplatePo(templateID int64, entry *ScheduleEntry) *TaskTemplatePo {
	flags, _ := json.Marshal(entry.Flags)
	roleIDs := make([]string, 0, len(entry.Roles))
	for _, role := range entry.Roles {
		roleIDs = append(roleIDs, strconv.FormatInt(role.ID, 10))
	}
	po := &TaskTemplatePo{
		TemplateID:       templateID,
		StepID:           entry.StepID,
		Title:            entry.Title,
		Priority:         entry.Priority,
		Ordering:         entry.Ordering,
		IsLast:           entry.IsLast,
		Flags:            flags,
		EditType:         entry.EditType,
		ProcessingStatus: entry.ProcessingStatus,
		RoleIDs:          strings.Join(roleIDs, ","),
	}
	if entry.Condition != nil {
		po.ConditionType = String(entry.Condition.Type)
		po.ConditionValue = String(entry.Condition.Value)
	}
	if entry.Script != nil {
		po.ScriptName = String(entry.Script.Name)
		po.ScriptPath = String(entry.Script.Path)
	}
	return po
}

// StepFlags 解析保存的能力开关, 没有保存过的返回全部关闭
func (po *TaskTemplatePo) StepFlags() (StepFlags, error) {
	flags := StepFlags{}
	if len(po.Flags) == 0 {
		return flags, nil
	}
	if err := json.Unmarshal(po.Flags, &flags); err != nil {
		return StepFlags{}, errors.Wrapf(err, "unmarshal flags failed, task template: %d", po.ID)
	}
	return flags, nil
}

type QueryTemplateParams struct {
	TemplateID *int64  `json:"template_id"`
	Title      *string `json:"title"`
	DiagramID  *string `json:"diagram_id"`
	Page       *Pager  `json:"page"`
}

type Pager struct {
	IsNoLimit *bool `json:"is_no_limit"`
	Page      int64 `json:"page"`
	Size      int64 `json:"size"`
}

type QueryTaskTemplateParams struct {
	TemplateID *int64 `json:"template_id" validate:"required"`
	Ordering   *int   `json:"ordering"`
	Page       *Pager `json:"page"`
}

type UpdateTemplateParams struct {
	Where  *UpdateTemplateWhere `json:"where" validate:"required"`
	Fields *UpdateTemplateField `json:"field" validate:"required"`
}

type UpdateTemplateWhere struct {
	IDIn []int64 `json:"id_in"`
}

type UpdateTemplateField struct {
	DiagramID *string `json:"diagram_id"`
	Client    *string `json:"client"`
	TaskCount *int64  `json:"task_count"`
}

type templateRepo struct {
	db *gorm.DB
}

func NewTemplateRepo(db *gorm.DB) TemplateRepo {
	return &templateRepo{
		db: db,
	}
}

// AutoMigrate 创建需要的表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&TemplatePo{}, &TaskTemplatePo{}, &RolePo{})
}

func (r *templateRepo) CreateTemplate(ctx context.Context, template *TemplatePo) (*TemplatePo, error) {
	if template == nil {
		return nil, fmt.Errorf("nil TemplatePo")
	}
	template.CreatedAt = time.Now().Unix()
	template.UpdatedAt = time.Now().Unix()
	if err := r.GetDBWithContext(ctx).Create(template).Error; err != nil {
		return nil, errors.WithMessage(err, "CreateTemplate failed")
	}
	return template, nil
}

func applyPager(db *gorm.DB, page *Pager) (*gorm.DB, error) {
	if page == nil {
		return nil, errors.New("page is nil")
	}
	if page.IsNoLimit != nil && *page.IsNoLimit {
		// 不分页显示指定了true
		return db, nil
	}
	if page.Page == 0 {
		page.Page = 1
	}
	if page.Size == 0 {
		page.Size = 10
	}
	return db.Offset(int(page.Page-1) * int(page.Size)).Limit(int(page.Size)), nil
}

func buildQueryTemplateParams(db *gorm.DB, param *QueryTemplateParams) (*gorm.DB, error) {
	if param == nil {
		return nil, errors.New("nil QueryTemplateParams")
	}
	if param.TemplateID != nil {
		db = db.Where("id = ?", param.TemplateID)
	}
	if param.Title != nil {
		db = db.Where("title = ?", param.Title)
	}
	if param.DiagramID != nil {
		db = db.Where("diagram_id = ?", param.DiagramID)
	}
	return applyPager(db.Order("id asc"), param.Page)
}

func (r *templateRepo) QueryTemplate(ctx context.Context, param *QueryTemplateParams) ([]*TemplatePo, error) {
	if param == nil {
		return nil, fmt.Errorf("nil QueryTemplateParams")
	}
	db := r.GetDBWithContext(ctx).Model(&TemplatePo{})
	db, err := buildQueryTemplateParams(db, param)
	if err != nil {
		return nil, errors.WithMessage(err, "buildQueryTemplateParams failed")
	}
	pos := make([]*TemplatePo, 0)
	if err := db.Find(&pos).Error; err != nil {
		return nil, errors.WithMessage(err, "QueryTemplate failed")
	}
	return pos, nil
}

func buildUpdateTemplateFields(fields *UpdateTemplateField) (map[string]any, error) {
	updateFields := make(map[string]any)
	if fields.DiagramID != nil {
		updateFields["diagram_id"] = *fields.DiagramID
	}
	if fields.Client != nil {
		updateFields["client"] = *fields.Client
	}
	if fields.TaskCount != nil {
		updateFields["task_count"] = *fields.TaskCount
	}
	if len(updateFields) == 0 {
		return nil, errors.New("no fields to update")
	}
	updateFields["updated_at"] = time.Now().Unix()
	return updateFields, nil
}

func (r *templateRepo) UpdateTemplate(ctx context.Context, param *UpdateTemplateParams) error {
	if param == nil || param.Where == nil || param.Fields == nil {
		return fmt.Errorf("nil UpdateTemplateParams")
	}
	if len(param.Where.IDIn) == 0 {
		return errors.New("update template need where condition")
	}
	updateFields, err := buildUpdateTemplateFields(param.Fields)
	if err != nil {
		return errors.WithMessage(err, "buildUpdateTemplateFields failed")
	}
	db := r.GetDBWithContext(ctx).Model(&TemplatePo{}).Where("id IN ?", param.Where.IDIn)
	if err := db.Updates(updateFields).Error; err != nil {
		return errors.WithMessage(err, "UpdateTemplate failed")
	}
	return nil
}

func (r *templateRepo) CreateTaskTemplates(ctx context.Context, tasks []*TaskTemplatePo) error {
	if len(tasks) == 0 {
		return nil
	}
	now := time.Now().Unix()
	for _, task := range tasks {
		task.CreatedAt = now
		task.UpdatedAt = now
	}
	if err := r.GetDBWithContext(ctx).Create(&tasks).Error; err != nil {
		return errors.WithMessage(err, "CreateTaskTemplates failed")
	}
	return nil
}

func (r *templateRepo) DeleteTaskTemplates(ctx context.Context, templateID int64) error {
	if templateID <= 0 {
		return errors.Errorf("invalid templateID: %d", templateID)
	}
	if err := r.GetDBWithContext(ctx).Where("template_id = ?", templateID).Delete(&TaskTemplatePo{}).Error; err != nil {
		return errors.WithMessagef(err, "DeleteTaskTemplates failed, templateID: %d", templateID)
	}
	return nil
}

func (r *templateRepo) QueryTaskTemplate(ctx context.Context, param *QueryTaskTemplateParams) ([]*TaskTemplatePo, error) {
	if param == nil {
		return nil, fmt.Errorf("nil QueryTaskTemplateParams")
	}
	db := r.GetDBWithContext(ctx).Model(&TaskTemplatePo{})
	if param.TemplateID != nil {
		db = db.Where("template_id = ?", param.TemplateID)
	}
	if param.Ordering != nil {
		db = db.Where("ordering = ?", param.Ordering)
	}
	db, err := applyPager(db.Order("ordering asc").Order("id asc"), param.Page)
	if err != nil {
		return nil, errors.WithMessage(err, "applyPager failed")
	}
	pos := make([]*TaskTemplatePo, 0)
	if err := db.Find(&pos).Error; err != nil {
		return nil, errors.WithMessage(err, "QueryTaskTemplate failed")
	}
	return pos, nil
}

func (r *templateRepo) CreateRole(ctx context.Context, role *RolePo) (*RolePo, error) {
	if role == nil {
		return nil, fmt.Errorf("nil RolePo")
	}
	role.CreatedAt = time.Now().Unix()
	role.UpdatedAt = time.Now().Unix()
	if err := r.GetDBWithContext(ctx).Create(role).Error; err != nil {
		return nil, errors.WithMessage(err, "CreateRole failed")
	}
	return role, nil
}

func (r *templateRepo) ResolveRole(ctx context.Context, id int64) (*Role, error) {
	po := &RolePo{}
	err := r.GetDBWithContext(ctx).Where("id = ?", id).First(po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.WithMessagef(ErrRoleNotFound, "role id: %d", id)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "ResolveRole failed, id: %d", id)
	}
	return &Role{ID: po.ID, Title: po.Title}, nil
}

type contextKey string

const (
	transactionContextKey contextKey = "transaction"
)

func (r *templateRepo) GetDBWithContext(ctx context.Context) *gorm.DB {
	tx := ctx.Value(transactionContextKey)
	if tx == nil {
		// 没有事务，直接返回db即可
		return r.db.WithContext(ctx)
	}
	return tx.(*gorm.DB)
}

func (r *templateRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(transactionContextKey) != nil {
		// 已经在事务中了,直接复用
		return fn(ctx)
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.WithMessage(tx.Error, "begin transaction failed")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = errors.WithMessage(tx.Commit().Error, "commit transaction failed")
	}()
	return fn(context.WithValue(ctx, transactionContextKey, tx))
}
