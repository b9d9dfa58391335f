package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	diagramConfigs    = sync.Map{}
	diagrams          = sync.Map{}
	loadDiagramLock   = sync.Mutex{}
	nodeTypeKindTable = map[string]NodeKind{
		NodeTypeStart:      NodeKindStart,
		NodeTypeEnd:        NodeKindEnd,
		NodeTypeTask:       NodeKindWorkStep,
		NodeTypeScriptTask: NodeKindWorkStep,
		NodeTypeGateway:    NodeKindGateway,
	}
)

const (
	NodeTypeStart      = "start"
	NodeTypeEnd        = "end"
	NodeTypeTask       = "task"
	NodeTypeScriptTask = "script_task"
	NodeTypeGateway    = "gateway"
)

type ConfigFormat = string

const (
	ConfigFormatJSON ConfigFormat = "json"
	ConfigFormatYAML ConfigFormat = "yaml"
)

// DiagramConfig 流程图配置,编辑器导出的流程图转换成这个结构
type DiagramConfig struct {
	ID    string       `json:"id" yaml:"id" validate:"required"`                            // 流程图ID, 唯一标识
	Name  string       `json:"name" yaml:"name"`                                            // 流程图名称
	Nodes []NodeConfig `json:"nodes" yaml:"nodes" validate:"required,min=1,unique=ID,dive"` // 节点列表
	Edges []EdgeConfig `json:"edges" yaml:"edges" validate:"dive"`                          // 顺序流
}

// NodeConfig 节点配置
type NodeConfig struct {
	ID         string         `json:"id" yaml:"id" validate:"required"`
	Name       string         `json:"name" yaml:"name"`
	Type       string         `json:"type" yaml:"type" validate:"required,oneof=start end task script_task gateway"`
	Priority   int            `json:"priority" yaml:"priority"`     // 优先级,只有任务节点使用
	Attributes map[string]any `json:"attributes" yaml:"attributes"` // 任务节点的扩展属性
}

// EdgeConfig 顺序流配置
type EdgeConfig struct {
	From string `json:"from" yaml:"from" validate:"required"`
	To   string `json:"to" yaml:"to" validate:"required"`
}

/*
*
  - @description: 解析流程图配置
  - @param data []byte 配置内容
  - @param format ConfigFormat json 或者 yaml
  - @return *DiagramConfig, error
*/
func ParseDiagramConfig(data []byte, format ConfigFormat) (*DiagramConfig, error) {
	config := &DiagramConfig{}
	switch format {
	case ConfigFormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(ErrDiagramInvalid, "unmarshal json diagram config failed, err: %v", err)
		}
	case ConfigFormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(ErrDiagramInvalid, "unmarshal yaml diagram config failed, err: %v", err)
		}
	default:
		return nil, errors.Errorf("unsupported diagram config format: %s", format)
	}
	return config, nil
}

// Diagram 内存中的流程图, 实现 Graph, 创建之后只读,可以并发使用
type Diagram struct {
	ID       string
	Name     string
	nodes    []Node
	byID     map[string]Node
	outgoing map[string][]Edge
	incoming map[string]int
	starts   []Node
}

// NewDiagram 根据配置构建流程图
func NewDiagram(config *DiagramConfig) (*Diagram, error) {
	if config == nil {
		return nil, errors.WithMessage(ErrDiagramInvalid, "config is nil")
	}
	if err := validatorUtil.Struct(config); err != nil {
		return nil, errors.Wrapf(ErrDiagramInvalid, "diagram: %s, err: %v", config.ID, err)
	}
	d := &Diagram{
		ID:       config.ID,
		Name:     config.Name,
		nodes:    make([]Node, 0, len(config.Nodes)),
		byID:     make(map[string]Node, len(config.Nodes)),
		outgoing: make(map[string][]Edge),
		incoming: make(map[string]int),
	}
	for _, nodeConfig := range config.Nodes {
		node, err := buildNode(nodeConfig)
		if err != nil {
			return nil, errors.WithMessagef(err, "diagram: %s", config.ID)
		}
		d.nodes = append(d.nodes, node)
		d.byID[node.NodeID()] = node
		if node.Kind() == NodeKindStart {
			d.starts = append(d.starts, node)
		}
	}
	for _, edgeConfig := range config.Edges {
		from, ok := d.byID[edgeConfig.From]
		if !ok {
			return nil, errors.WithMessagef(ErrDiagramInvalid, "diagram: %s, edge references unknown node: %s", config.ID, edgeConfig.From)
		}
		to, ok := d.byID[edgeConfig.To]
		if !ok {
			return nil, errors.WithMessagef(ErrDiagramInvalid, "diagram: %s, edge references unknown node: %s", config.ID, edgeConfig.To)
		}
		d.outgoing[from.NodeID()] = append(d.outgoing[from.NodeID()], Edge{Source: from, Target: to})
		d.incoming[to.NodeID()]++
	}
	return d, nil
}

func (d *Diagram) StartMarker() (Node, error) {
	if len(d.starts) != 1 {
		return nil, errors.WithMessagef(ErrMissingOrAmbiguousStart, "diagram: %s, start events: %d", d.ID, len(d.starts))
	}
	return d.starts[0], nil
}

func (d *Diagram) Outgoing(node Node) []Edge {
	return d.outgoing[node.NodeID()]
}

func (d *Diagram) IncomingCount(node Node) int {
	return d.incoming[node.NodeID()]
}

// Node 按ID查询节点
func (d *Diagram) Node(id string) (Node, bool) {
	node, ok := d.byID[id]
	return node, ok
}

// Nodes 按声明顺序返回所有节点
func (d *Diagram) Nodes() []Node {
	ret := make([]Node, len(d.nodes))
	copy(ret, d.nodes)
	return ret
}

func buildNode(config NodeConfig) (Node, error) {
	kind, ok := nodeTypeKindTable[config.Type]
	if !ok {
		return nil, errors.WithMessagef(ErrDiagramInvalid, "node: %s, unknown type: %s", config.ID, config.Type)
	}
	switch kind {
	case NodeKindStart:
		return &StartMarker{ID: config.ID, Name: config.Name}, nil
	case NodeKindEnd:
		return &EndMarker{ID: config.ID, Name: config.Name}, nil
	case NodeKindGateway:
		return &Gateway{ID: config.ID, Name: config.Name}, nil
	}
	return buildWorkStep(config)
}

func buildWorkStep(config NodeConfig) (*WorkStep, error) {
	attrs := NewAttributes(config.Attributes)
	step := &WorkStep{
		ID:       config.ID,
		Name:     config.Name,
		Priority: config.Priority,
	}
	// 按固定顺序检查, 多个开关有问题时总是报告第一个
	flagTable := []struct {
		key  string
		flag *bool
	}{
		{"automatic", &step.Flags.Automatic},
		{"read_images", &step.Flags.ReadImages},
		{"write_images", &step.Flags.WriteImages},
		{"generate_images", &step.Flags.GenerateImages},
		{"validate_images", &step.Flags.ValidateImages},
		{"export", &step.Flags.Export},
		{"accept_close", &step.Flags.AcceptClose},
		{"verify_close", &step.Flags.VerifyClose},
		{"metadata", &step.Flags.Metadata},
		{"batch", &step.Flags.Batch},
		{"repeat_on_correction", &step.Flags.RepeatOnCorrection},
		{"separate_structure", &step.Flags.SeparateStructure},
	}
	for _, item := range flagTable {
		if !attrs.Has("flags", item.key) {
			continue
		}
		v, ok := attrs.GetBool("flags", item.key)
		if !ok {
			return nil, invalidAttribute(config.ID, "flags."+item.key)
		}
		*item.flag = v
	}
	if attrs.Has("edit_type") {
		v, ok := attrs.GetInt64("edit_type")
		if !ok {
			return nil, invalidAttribute(config.ID, "edit_type")
		}
		editType := EditType(v)
		step.EditType = &editType
	}
	if attrs.Has("processing_status") {
		v, ok := attrs.GetInt64("processing_status")
		if !ok {
			return nil, invalidAttribute(config.ID, "processing_status")
		}
		status := ProcessingStatus(v)
		step.ProcessingStatus = &status
	}
	var err error
	if step.ConditionType, err = optionalString(attrs, config.ID, "condition", "type"); err != nil {
		return nil, err
	}
	if step.ConditionValue, err = optionalString(attrs, config.ID, "condition", "value"); err != nil {
		return nil, err
	}
	if attrs.Has("roles") {
		if s, ok := attrs.GetString("roles"); ok {
			step.Roles = &s
		} else if id, ok := attrs.GetInt64("roles"); ok {
			// 只有一个角色的时候编辑器可能导出成数字
			s := strconv.FormatInt(id, 10)
			step.Roles = &s
		} else {
			return nil, invalidAttribute(config.ID, "roles")
		}
	}
	if config.Type == NodeTypeScriptTask {
		step.Script = &ScriptRef{}
		name, err := optionalString(attrs, config.ID, "script", "name")
		if err != nil {
			return nil, err
		}
		path, err := optionalString(attrs, config.ID, "script", "path")
		if err != nil {
			return nil, err
		}
		if name != nil {
			step.Script.Name = *name
		}
		if path != nil {
			step.Script.Path = *path
		}
	}
	return step, nil
}

func optionalString(attrs *Attributes, nodeID string, keys ...string) (*string, error) {
	if !attrs.Has(keys...) {
		return nil, nil
	}
	s, ok := attrs.GetString(keys...)
	if !ok {
		return nil, invalidAttribute(nodeID, fmt.Sprintf("%v", keys))
	}
	return &s, nil
}

func invalidAttribute(nodeID, key string) error {
	return errors.WithMessagef(ErrDiagramInvalid, "node: %s, attribute %s has wrong type", nodeID, key)
}

/*
*
  - @description: 加载流程图配置
    只做存储使用，流程图的构建在GetAndLoadDiagram中完成，延迟加载
  - @param config *DiagramConfig
  - @return error
*/
func LoadDiagramConfig(config *DiagramConfig) error {
	if config == nil {
		return errors.New("config is nil")
	}
	if _, ok := diagramConfigs.LoadOrStore(config.ID, config); ok {
		return errors.New(fmt.Sprintf("config already registered, id: %s", config.ID))
	}
	return nil
}

func GetAndLoadDiagram(diagramID string) (*Diagram, error) {
	if i, ok := diagrams.Load(diagramID); ok {
		ret, ok := i.(*Diagram)
		if !ok {
			return nil, errors.WithMessagef(ErrDiagramConfigNotFound, "diagram: %s, type error,please check code", diagramID)
		}
		return ret, nil
	}
	loadDiagramLock.Lock()
	defer loadDiagramLock.Unlock()
	if i, ok := diagrams.Load(diagramID); ok {
		ret, ok := i.(*Diagram)
		if !ok {
			return nil, errors.WithMessagef(ErrDiagramConfigNotFound, "diagram: %s, type error,please check code", diagramID)
		}
		return ret, nil
	}
	configInterface, ok := diagramConfigs.Load(diagramID)
	if !ok {
		return nil, errors.WithMessagef(ErrDiagramConfigNotFound, "diagram config %s not found", diagramID)
	}
	config, ok := configInterface.(*DiagramConfig)
	if !ok {
		return nil, errors.WithMessagef(ErrDiagramConfigNotFound, "diagram config %s not found, type error,please check code", diagramID)
	}
	diagram, err := NewDiagram(config)
	if err != nil {
		return nil, errors.WithMessagef(err, "NewDiagram failed, diagram: %s", diagramID)
	}
	diagrams.Store(diagramID, diagram)
	return diagram, nil
}

// PreloadingDiagrams 构建所有已经加载的流程图配置,用于启动时提前发现配置问题
func PreloadingDiagrams() error {
	allDiagramIDs := make([]string, 0)
	diagramConfigs.Range(func(key, value any) bool {
		if diagramID, ok := key.(string); ok {
			allDiagramIDs = append(allDiagramIDs, diagramID)
		}
		return true
	})
	errorlist := make([]error, 0)
	for _, diagramID := range allDiagramIDs {
		if _, err := GetAndLoadDiagram(diagramID); err != nil {
			errorlist = append(errorlist, err)
		}
	}
	if len(errorlist) > 0 {
		return errors.WithMessagef(errorlist[0], "PreloadingDiagrams failed, failed count: %d", len(errorlist))
	}
	return nil
}
