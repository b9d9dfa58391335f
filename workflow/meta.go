package workflow

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDiagramConfigNotFound = errors.New("diagram config not found")
	ErrDiagramInvalid        = errors.New("diagram invalid")
	ErrTemplateParamInvalid  = errors.New("template param invalid")
	ErrTemplateNotFound      = errors.New("template not found")
	ErrRoleNotFound          = errors.New("role not found")

	// 下面是流程图结构错误,都是画图的人的问题,不会自动重试
	// ErrMissingOrAmbiguousStart: 没有开始节点或者有多个开始节点
	ErrMissingOrAmbiguousStart = errors.New("diagram has no unique start event")
	// ErrLoop: 非网关节点有多个入边,或者网关能回到自己,说明存在环
	ErrLoop = errors.New("loop in diagram")
	// ErrMissingGateway: 任务节点直接分叉,分叉必须经过网关
	ErrMissingGateway = errors.New("task branches without gateway")
	// ErrDegenerateGateway: 网关既不是合并也不是分叉
	ErrDegenerateGateway = errors.New("gateway neither splits nor joins")
	// ErrParallelBranch: 并行分支上有多于一个的顺序任务
	ErrParallelBranch = errors.New("parallel branch has more than one task")
	// ErrNoTaskAfterGateway: 网关后面没有任何节点
	ErrNoTaskAfterGateway = errors.New("no task after gateway")
	// ErrRoleResolution: 任务引用了不存在的角色
	ErrRoleResolution = errors.New("role of task cannot be resolved")
)

// NodeError 流程图结构错误,带上出错节点的名称,可以直接展示给画图的人
type NodeError struct {
	Kind     error  // 对应上面的哨兵错误
	NodeName string // 出错节点名称,可能为空
}

func (e *NodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.NodeName == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %q", e.Kind.Error(), e.NodeName)
}

func (e *NodeError) Unwrap() error { return e.Kind }

// RoleResolutionError 任务上面的角色找不到或者格式不对
type RoleResolutionError struct {
	StepName string
	Role     string
	Err      error
}

func (e *RoleResolutionError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: task %q, role %q", ErrRoleResolution.Error(), e.StepName, e.Role)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RoleResolutionError) Unwrap() error { return ErrRoleResolution }

func newNodeError(kind error, nodeName string) error {
	return &NodeError{Kind: kind, NodeName: nodeName}
}

// IsStructuralError 判断是否是流程图本身的错误(画图错误),
// 这类错误需要把错误信息直接返回给流程图的作者,重试没有意义
func IsStructuralError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrMissingOrAmbiguousStart) ||
		errors.Is(err, ErrLoop) ||
		errors.Is(err, ErrMissingGateway) ||
		errors.Is(err, ErrDegenerateGateway) ||
		errors.Is(err, ErrParallelBranch) ||
		errors.Is(err, ErrNoTaskAfterGateway) ||
		errors.Is(err, ErrRoleResolution) ||
		errors.Is(err, ErrDiagramInvalid)
}

type EditType = int

const (
	EditTypeUnset        EditType = 0
	EditTypeManualSingle EditType = 1
	EditTypeManualMulti  EditType = 2
	EditTypeAdmin        EditType = 3
	EditTypeAutomatic    EditType = 4
	EditTypeQC           EditType = 5
)

func GetEditTypeText(editType EditType) string {
	switch editType {
	case EditTypeUnset:
		return "未设置"
	case EditTypeManualSingle:
		return "手动单个"
	case EditTypeManualMulti:
		return "手动批量"
	case EditTypeAdmin:
		return "管理员"
	case EditTypeAutomatic:
		return "自动"
	case EditTypeQC:
		return "质检"
	}
	return "未知"
}

type ProcessingStatus = int

const (
	ProcessingStatusUnset  ProcessingStatus = 0
	ProcessingStatusLocked ProcessingStatus = 1
	ProcessingStatusOpen   ProcessingStatus = 2
	ProcessingStatusInWork ProcessingStatus = 3
	ProcessingStatusDone   ProcessingStatus = 4
	ProcessingStatusError  ProcessingStatus = 5
)

func GetProcessingStatusText(status ProcessingStatus) string {
	switch status {
	case ProcessingStatusUnset:
		return "未设置"
	case ProcessingStatusLocked:
		return "锁定"
	case ProcessingStatusOpen:
		return "待处理"
	case ProcessingStatusInWork:
		return "处理中"
	case ProcessingStatusDone:
		return "完成"
	case ProcessingStatusError:
		return "错误"
	}
	return "未知"
}

type ConditionType = string

const (
	ConditionTypeScript ConditionType = "script"
	ConditionTypeXPath  ConditionType = "xpath"
)
