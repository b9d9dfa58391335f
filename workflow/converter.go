package workflow

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// Converter 把流程图转换成按顺序排列的任务列表
// 不保存任何状态,可以并发调用
type Converter struct {
	roles RoleResolver
}

func NewConverter(roles RoleResolver) *Converter {
	return &Converter{roles: roles}
}

type walkItem struct {
	node     Node
	ordering int
}

// pendingMerge 合并网关等待所有分支到达
type pendingMerge struct {
	gateway  *Gateway
	next     Node
	arrivals int
	ordering int // 到达时最大的层级
	released bool
}

// walker 一次转换的遍历状态
type walker struct {
	ctx      context.Context
	graph    Graph
	roles    RoleResolver
	queue    []walkItem
	expanded map[string]bool // 已经展开过的分叉网关
	merges   map[string]*pendingMerge
	waiting  []*pendingMerge // 按第一次到达的顺序
	entries  []*ScheduleEntry
}

/*
*
  - @description: 转换流程图
    从唯一的开始节点出发,任务的层级从1开始,顺序任务层级+1,
    同一个分叉网关出来的并行任务层级相同,合并网关不增加层级,
    合并网关等所有入边都到达之后才继续,使用到达时最大的层级
    任何结构错误都会终止整个转换,不会返回部分结果
  - @param ctx context.Context 只用于角色查询
  - @param g Graph
  - @return []*ScheduleEntry 按层级排序,同层级按发现顺序
*/
func (c *Converter) Convert(ctx context.Context, g Graph) ([]*ScheduleEntry, error) {
	if g == nil {
		return nil, errors.New("graph is nil")
	}
	start, err := g.StartMarker()
	if err != nil {
		if !errors.Is(err, ErrMissingOrAmbiguousStart) {
			err = errors.Wrap(ErrMissingOrAmbiguousStart, err.Error())
		}
		return nil, err
	}
	startEdges := g.Outgoing(start)
	if len(startEdges) == 0 {
		return nil, errors.WithMessagef(ErrMissingOrAmbiguousStart, "start event %q leads nowhere", start.NodeName())
	}
	if len(startEdges) > 1 {
		return nil, newNodeError(ErrMissingGateway, start.NodeName())
	}

	w := &walker{
		ctx:      ctx,
		graph:    g,
		roles:    c.roles,
		expanded: make(map[string]bool),
		merges:   make(map[string]*pendingMerge),
		entries:  make([]*ScheduleEntry, 0),
	}
	w.push(TargetOf(startEdges[0]), 1)
	for {
		if len(w.queue) == 0 && !w.releaseWaiting() {
			break
		}
		item := w.queue[0]
		w.queue = w.queue[1:]
		if err := w.visit(item); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(w.entries, func(i, j int) bool {
		return w.entries[i].Ordering < w.entries[j].Ordering
	})
	return w.entries, nil
}

func (w *walker) push(node Node, ordering int) {
	w.queue = append(w.queue, walkItem{node: node, ordering: ordering})
}

func (w *walker) visit(item walkItem) error {
	switch node := item.node.(type) {
	case *WorkStep:
		return w.visitWorkStep(node, item.ordering)
	case *Gateway:
		return w.visitGateway(node, item.ordering)
	case *EndMarker:
		return nil
	case *StartMarker:
		// 有边指回开始节点
		return newNodeError(ErrLoop, node.Name)
	default:
		return errors.WithMessagef(ErrDiagramInvalid, "unknown node type: %T", item.node)
	}
}

func (w *walker) visitWorkStep(step *WorkStep, ordering int) error {
	if !HasSingleInboundEdge(w.graph, step) {
		return newNodeError(ErrLoop, step.Name)
	}
	outgoing := w.graph.Outgoing(step)
	switch len(outgoing) {
	case 0:
		return w.emit(step, StepInfo{Ordering: ordering, IsLast: true})
	case 1:
		next := TargetOf(outgoing[0])
		if next.Kind() == NodeKindEnd {
			return w.emit(step, StepInfo{Ordering: ordering, IsLast: true})
		}
		if err := w.emit(step, StepInfo{Ordering: ordering, IsLast: false}); err != nil {
			return err
		}
		w.push(next, ordering+1)
		return nil
	default:
		return newNodeError(ErrMissingGateway, step.Name)
	}
}

func (w *walker) visitGateway(gateway *Gateway, ordering int) error {
	if w.expanded[gateway.ID] {
		return newNodeError(ErrLoop, gateway.Name)
	}
	outgoing := w.graph.Outgoing(gateway)
	switch {
	case len(outgoing) == 0:
		return newNodeError(ErrNoTaskAfterGateway, gateway.Name)
	case len(outgoing) == 1:
		if !IsFanIn(w.graph, gateway) {
			return newNodeError(ErrDegenerateGateway, gateway.Name)
		}
		return w.arrive(gateway, TargetOf(outgoing[0]), ordering)
	case !IsFanOut(w.graph, gateway):
		// 既合并又分叉
		return newNodeError(ErrDegenerateGateway, gateway.Name)
	}
	for _, edge := range outgoing {
		branchHead := TargetOf(edge)
		if !BranchIsSingleStep(w.graph, branchHead) {
			return newNodeError(ErrParallelBranch, branchHead.NodeName())
		}
	}
	w.expanded[gateway.ID] = true
	for _, edge := range outgoing {
		w.push(TargetOf(edge), ordering)
	}
	return nil
}

// arrive 合并网关的一个入边到达, 所有入边都到达之后才展开
func (w *walker) arrive(gateway *Gateway, next Node, ordering int) error {
	merge, ok := w.merges[gateway.ID]
	if !ok {
		if reachesItself(w.graph, gateway) {
			return newNodeError(ErrLoop, gateway.Name)
		}
		merge = &pendingMerge{gateway: gateway, next: next, ordering: ordering}
		w.merges[gateway.ID] = merge
		w.waiting = append(w.waiting, merge)
	}
	if merge.released {
		return newNodeError(ErrLoop, gateway.Name)
	}
	merge.arrivals++
	if ordering > merge.ordering {
		merge.ordering = ordering
	}
	if merge.arrivals >= w.graph.IncomingCount(gateway) {
		w.release(merge)
	}
	return nil
}

func (w *walker) release(merge *pendingMerge) {
	merge.released = true
	w.push(merge.next, merge.ordering)
}

// releaseWaiting 队列空了但是还有合并网关在等, 说明有入边来自开始节点到不了的节点,
// 按第一次到达的顺序放行一个
func (w *walker) releaseWaiting() bool {
	for _, merge := range w.waiting {
		if !merge.released {
			w.release(merge)
			return true
		}
	}
	return false
}

func (w *walker) emit(step *WorkStep, info StepInfo) error {
	entry, err := Materialize(w.ctx, step, info, w.roles)
	if err != nil {
		return err
	}
	w.entries = append(w.entries, entry)
	return nil
}
