package workflow

type NodeKind int

const (
	NodeKindStart NodeKind = iota + 1
	NodeKindEnd
	NodeKindWorkStep
	NodeKindGateway
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindStart:
		return "start"
	case NodeKindEnd:
		return "end"
	case NodeKindWorkStep:
		return "task"
	case NodeKindGateway:
		return "gateway"
	}
	return "unknown"
}

// Node 流程图节点,只有下面四种实现: *StartMarker, *EndMarker, *WorkStep, *Gateway
type Node interface {
	NodeID() string
	NodeName() string
	Kind() NodeKind
	sealed()
}

// StartMarker 开始节点,一个流程图只能有一个
type StartMarker struct {
	ID   string
	Name string
}

// EndMarker 结束节点
type EndMarker struct {
	ID   string
	Name string
}

// Gateway 网关,分叉或者合并,自身没有业务属性
type Gateway struct {
	ID   string
	Name string
}

// StepFlags 任务的能力开关
type StepFlags struct {
	Automatic          bool `json:"automatic"`
	ReadImages         bool `json:"read_images"`
	WriteImages        bool `json:"write_images"`
	GenerateImages     bool `json:"generate_images"`
	ValidateImages     bool `json:"validate_images"`
	Export             bool `json:"export"`
	AcceptClose        bool `json:"accept_close"`
	VerifyClose        bool `json:"verify_close"`
	Metadata           bool `json:"metadata"`
	Batch              bool `json:"batch"`
	RepeatOnCorrection bool `json:"repeat_on_correction"`
	SeparateStructure  bool `json:"separate_structure"`
}

// ScriptRef 脚本任务的脚本
type ScriptRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// WorkStep 任务节点, 指针字段为nil表示流程图上没有配置
type WorkStep struct {
	ID               string
	Name             string
	Priority         int
	Flags            StepFlags
	EditType         *EditType
	ProcessingStatus *ProcessingStatus
	ConditionType    *string
	ConditionValue   *string
	Roles            *string    // 逗号分隔的角色ID
	Script           *ScriptRef // 只有脚本任务才有
}

func (n *StartMarker) NodeID() string   { return n.ID }
func (n *StartMarker) NodeName() string { return n.Name }
func (n *StartMarker) Kind() NodeKind   { return NodeKindStart }
func (n *StartMarker) sealed()          {}

func (n *EndMarker) NodeID() string   { return n.ID }
func (n *EndMarker) NodeName() string { return n.Name }
func (n *EndMarker) Kind() NodeKind   { return NodeKindEnd }
func (n *EndMarker) sealed()          {}

func (n *Gateway) NodeID() string   { return n.ID }
func (n *Gateway) NodeName() string { return n.Name }
func (n *Gateway) Kind() NodeKind   { return NodeKindGateway }
func (n *Gateway) sealed()          {}

func (n *WorkStep) NodeID() string   { return n.ID }
func (n *WorkStep) NodeName() string { return n.Name }
func (n *WorkStep) Kind() NodeKind   { return NodeKindWorkStep }
func (n *WorkStep) sealed()          {}

// IsScript 是否是脚本任务
func (n *WorkStep) IsScript() bool { return n.Script != nil }

// Edge 有向边,分支的区别在目标节点上,边上不带数据
type Edge struct {
	Source Node
	Target Node
}

func TargetOf(e Edge) Node { return e.Target }

// Graph 已经加载好的流程图,只读
type Graph interface {
	// StartMarker 返回唯一的开始节点,没有或者有多个返回 ErrMissingOrAmbiguousStart
	StartMarker() (Node, error)
	// Outgoing 按声明顺序返回出边
	Outgoing(node Node) []Edge
	IncomingCount(node Node) int
}
