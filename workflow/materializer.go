package workflow

import (
	"context"
	"strconv"
	"strings"
)

// StepInfo 遍历时给任务计算出来的排序信息
type StepInfo struct {
	Ordering int  // 顺序层级,同一个分叉出来的并行任务相同
	IsLast   bool // 后继是结束节点或者没有后继
}

// Condition 任务上挂的条件
type Condition struct {
	Type  ConditionType `json:"type"`
	Value string        `json:"value"`
}

// ScheduleEntry 转换出来的任务,可以直接保存
type ScheduleEntry struct {
	StepID           string           `json:"step_id"`
	Title            string           `json:"title"`
	Priority         int              `json:"priority"`
	Ordering         int              `json:"ordering"`
	IsLast           bool             `json:"is_last"`
	Flags            StepFlags        `json:"flags"`
	EditType         EditType         `json:"edit_type"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	Condition        *Condition       `json:"condition,omitempty"`
	Roles            []*Role          `json:"roles"`
	Script           *ScriptRef       `json:"script,omitempty"`
}

/*
*
  - @description: 把流程图上的任务节点转换成任务
    角色找不到的时候整个转换失败,不会生成缺角色的任务
  - @param step *WorkStep
  - @param info StepInfo
  - @param roles RoleResolver 可以为nil,为nil的时候任务上不能配置角色
  - @return *ScheduleEntry, error
*/
func Materialize(ctx context.Context, step *WorkStep, info StepInfo, roles RoleResolver) (*ScheduleEntry, error) {
	entry := &ScheduleEntry{
		StepID:           step.ID,
		Title:            step.Name,
		Priority:         step.Priority,
		Ordering:         info.Ordering,
		IsLast:           info.IsLast,
		Flags:            step.Flags,
		EditType:         EditTypeUnset,
		ProcessingStatus: ProcessingStatusUnset,
		Roles:            make([]*Role, 0),
	}
	if step.EditType != nil {
		entry.EditType = *step.EditType
	}
	if step.ProcessingStatus != nil {
		entry.ProcessingStatus = *step.ProcessingStatus
	}
	if step.ConditionType != nil && step.ConditionValue != nil {
		entry.Condition = &Condition{
			Type:  *step.ConditionType,
			Value: *step.ConditionValue,
		}
	}
	if step.Roles != nil {
		resolved, err := resolveRoles(ctx, step, roles)
		if err != nil {
			return nil, err
		}
		entry.Roles = resolved
	}
	if step.Script != nil {
		script := *step.Script
		entry.Script = &script
	}
	return entry, nil
}

func resolveRoles(ctx context.Context, step *WorkStep, roles RoleResolver) ([]*Role, error) {
	ret := make([]*Role, 0)
	for _, token := range strings.Split(*step.Roles, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, &RoleResolutionError{StepName: step.Name, Role: token, Err: err}
		}
		if roles == nil {
			return nil, &RoleResolutionError{StepName: step.Name, Role: token}
		}
		role, err := roles.ResolveRole(ctx, id)
		if err != nil {
			return nil, &RoleResolutionError{StepName: step.Name, Role: token, Err: err}
		}
		ret = append(ret, role)
	}
	return ret, nil
}
