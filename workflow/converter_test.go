package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNode() NodeConfig { return NodeConfig{ID: "start", Name: "Start", Type: NodeTypeStart} }
func endNode() NodeConfig   { return NodeConfig{ID: "end", Name: "End", Type: NodeTypeEnd} }
func taskNode(id string) NodeConfig {
	return NodeConfig{ID: id, Name: id, Type: NodeTypeTask}
}
func gatewayNode(id string) NodeConfig {
	return NodeConfig{ID: id, Name: id, Type: NodeTypeGateway}
}

// buildDiagram 边的格式 "A>B"
func buildDiagram(t *testing.T, nodes []NodeConfig, edges ...string) *Diagram {
	t.Helper()
	config := &DiagramConfig{ID: t.Name(), Name: t.Name(), Nodes: nodes}
	for _, edge := range edges {
		parts := strings.Split(edge, ">")
		require.Len(t, parts, 2, "bad edge %s", edge)
		config.Edges = append(config.Edges, EdgeConfig{From: parts[0], To: parts[1]})
	}
	diagram, err := NewDiagram(config)
	require.NoError(t, err)
	return diagram
}

type entrySummary struct {
	StepID   string
	Ordering int
	IsLast   bool
}

func summarize(entries []*ScheduleEntry) []entrySummary {
	ret := make([]entrySummary, 0, len(entries))
	for _, entry := range entries {
		ret = append(ret, entrySummary{StepID: entry.StepID, Ordering: entry.Ordering, IsLast: entry.IsLast})
	}
	return ret
}

func requireNodeError(t *testing.T, err error, kind error, nodeName string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	var nodeErr *NodeError
	require.True(t, errors.As(err, &nodeErr), "expected NodeError, got %T", err)
	assert.Equal(t, nodeName, nodeErr.NodeName)
	assert.True(t, IsStructuralError(err))
}

func TestConvert_LinearChain(t *testing.T) {
	diagram := buildDiagram(t,
		[]NodeConfig{startNode(), taskNode("A"), taskNode("B"), taskNode("C"), taskNode("D"), endNode()},
		"start>A", "A>B", "B>C", "C>D", "D>end",
	)
	entries, err := NewConverter(nil).Convert(context.Background(), diagram)
	require.NoError(t, err)
	assert.Equal(t, []entrySummary{
		{StepID: "A", Ordering: 1},
		{StepID: "B", Ordering: 2},
		{StepID: "C", Ordering: 3},
		{StepID: "D", Ordering: 4, IsLast: true},
	}, summarize(entries))
}

func TestConvert_SingleTask(t *testing.T) {
	diagram := buildDiagram(t,
		[]NodeConfig{startNode(), taskNode("A"), endNode()},
		"start>A", "A>end",
	)
	entries, err := NewConverter(nil).Convert(context.Background(), diagram)
	require.NoError(t, err)
	assert.Equal(t, []entrySummary{{StepID: "A", Ordering: 1, IsLast: true}}, summarize(entries))
}

func TestConvert_TaskWithoutSuccessorIsLast(t *testing.T) {
	diagram := buildDiagram(t,
		[]NodeConfig{startNode(), taskNode("A"), taskNode("B")},
		"start>A", "A>B",
	)
	entries, err := NewConverter(nil).Convert(context.Background(), diagram)
	require.NoError(t, err)
	assert.Equal(t, []entrySummary{
		{StepID: "A", Ordering: 1},
		{StepID: "B", Ordering: 2, IsLast: true},
	}, summarize(entries))
}

func parallelDiagram(t *testing.T) *Diagram {
	return buildDiagram(t,
		[]NodeConfig{startNode(), taskNode("A"), gatewayNode("G1"), taskNode("B"), taskNode("C"), gatewayNode("G2"), taskNode("D"), endNode()},
		"start>A", "A>G1", "G1>B", "G1>C", "B>G2", "C>G2", "G2>D", "D>end",
	)
}

func TestConvert_ParallelBranches(t *testing.T) {
	entries, err := NewConverter(nil).Convert(context.Background(), parallelDiagram(t))
	require.NoError(t, err)
	assert.Equal(t, []entrySummary{
		{StepID: "A", Ordering: 1},
		{StepID: "B", Ordering: 2},
		{StepID: "C", Ordering: 2},
		{StepID: "D", Ordering: 3, IsLast: true},
	}, summarize(entries))
}

func TestConvert_ThreeBranches(t *testing.T) {
	diagram := buildDiagram(t,
		[]NodeConfig{startNode(), gatewayNode("split"), taskNode("B"), taskNode("C"), taskNode("E"), gatewayNode("join"), taskNode("D"), endNode()},
		"start>split", "split>B", "split>C", "split>E", "B>join", "C>join", "E>join", "join>D", "D>end",
	)
	entries, err := NewConverter(nil).Convert(context.Background(), diagram)
	require.NoError(t, err)
	assert.Equal(t, []entrySummary{
		{StepID: "B", Ordering: 1},
		{StepID: "C", Ordering: 1},
		{StepID: "E", Ordering: 1},
		{StepID: "D", Ordering: 2, IsLast: true},
	}, summarize(entries))
}

func TestConvert_MergeOfDifferentLengths(t *testing.T) {
	t.Run("分叉网关直接连到合并网关", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), taskNode("A"), gatewayNode("G1"), taskNode("B"), gatewayNode("G2"), endNode()},
			"start>A", "A>G1", "G1>B", "G1>G2", "B>G2", "G2>end",
		)
		entries, err := NewConverter(nil).Convert(context.Background(), diagram)
		require.NoError(t, err)
		assert.Equal(t, []entrySummary{
			{StepID: "A", Ordering: 1},
			{StepID: "B", Ordering: 2},
		}, summarize(entries))
	})

	t.Run("入边来自到不了的节点", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), taskNode("A"), taskNode("X"), gatewayNode("G"), taskNode("B"), endNode()},
			"start>A", "A>G", "X>G", "G>B", "B>end",
		)
		entries, err := NewConverter(nil).Convert(context.Background(), diagram)
		require.NoError(t, err)
		assert.Equal(t, []entrySummary{
			{StepID: "A", Ordering: 1},
			{StepID: "B", Ordering: 2, IsLast: true},
		}, summarize(entries))
	})
}

func TestConvert_StructuralErrors(t *testing.T) {
	ctx := context.Background()
	converter := NewConverter(nil)

	t.Run("环", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), taskNode("A"), taskNode("B")},
			"start>A", "A>B", "B>A",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrLoop, "A")
	})

	t.Run("经过网关的环", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), taskNode("A"), gatewayNode("G1"), taskNode("B"), taskNode("C")},
			"start>A", "A>G1", "G1>B", "B>C", "C>G1",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrLoop, "G1")
	})

	t.Run("指回开始节点", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), taskNode("A")},
			"start>A", "A>start",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrLoop, "Start")
	})

	t.Run("任务直接分叉", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), taskNode("A"), taskNode("B"), taskNode("C"), endNode()},
			"start>A", "A>B", "A>C", "B>end", "C>end",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrMissingGateway, "A")
	})

	t.Run("并行分支多个任务", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), gatewayNode("G1"), taskNode("B"), taskNode("B2"), taskNode("C"), gatewayNode("G2"), endNode()},
			"start>G1", "G1>B", "G1>C", "B>B2", "B2>G2", "C>G2", "G2>end",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrParallelBranch, "B")
	})

	t.Run("一进一出的网关", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), taskNode("A"), gatewayNode("G"), taskNode("B"), endNode()},
			"start>A", "A>G", "G>B", "B>end",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrDegenerateGateway, "G")
	})

	t.Run("既合并又分叉的网关", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), gatewayNode("G1"), taskNode("B"), taskNode("C"), gatewayNode("G2"), taskNode("D"), taskNode("E"), endNode()},
			"start>G1", "G1>B", "G1>C", "B>G2", "C>G2", "G2>D", "G2>E", "D>end", "E>end",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrDegenerateGateway, "G2")
	})

	t.Run("网关后面没有节点", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), taskNode("A"), gatewayNode("G")},
			"start>A", "A>G",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrNoTaskAfterGateway, "G")
	})

	t.Run("分支头是分叉网关", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{
				startNode(), gatewayNode("G1"), gatewayNode("G3"), taskNode("C"),
				taskNode("E"), taskNode("F"), gatewayNode("G4"), gatewayNode("G2"), endNode(),
			},
			"start>G1", "G1>G3", "G1>C", "G3>E", "G3>F", "E>G4", "F>G4", "G4>G2", "C>G2", "G2>end",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrParallelBranch, "G3")
	})

	t.Run("合并网关后面有环", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), gatewayNode("G1"), taskNode("B"), taskNode("C"), gatewayNode("G2"), taskNode("D")},
			"start>G1", "G1>B", "G1>C", "B>G2", "C>G2", "G2>D", "D>G2",
		)
		_, err := converter.Convert(ctx, diagram)
		requireNodeError(t, err, ErrLoop, "G2")
	})

	t.Run("没有开始节点", func(t *testing.T) {
		diagram := buildDiagram(t, []NodeConfig{taskNode("A"), endNode()}, "A>end")
		_, err := converter.Convert(ctx, diagram)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingOrAmbiguousStart))
	})

	t.Run("多个开始节点", func(t *testing.T) {
		diagram := buildDiagram(t,
			[]NodeConfig{startNode(), {ID: "start2", Name: "Start2", Type: NodeTypeStart}, taskNode("A"), endNode()},
			"start>A", "start2>A", "A>end",
		)
		_, err := converter.Convert(ctx, diagram)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingOrAmbiguousStart))
	})

	t.Run("开始节点没有出边", func(t *testing.T) {
		diagram := buildDiagram(t, []NodeConfig{startNode(), endNode()})
		_, err := converter.Convert(ctx, diagram)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingOrAmbiguousStart))
	})
}

func TestConvert_RoleResolution(t *testing.T) {
	roles := NewMapRoleResolver(&Role{ID: 1, Title: "scanner"}, &Role{ID: 2, Title: "qc"})
	newDiagram := func(t *testing.T, roleList string) *Diagram {
		task := taskNode("Scan")
		task.Attributes = map[string]any{"roles": roleList}
		return buildDiagram(t, []NodeConfig{startNode(), task, endNode()}, "start>Scan", "Scan>end")
	}

	t.Run("角色解析", func(t *testing.T) {
		entries, err := NewConverter(roles).Convert(context.Background(), newDiagram(t, " 1, 2 ,"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Len(t, entries[0].Roles, 2)
		assert.Equal(t, "scanner", entries[0].Roles[0].Title)
		assert.Equal(t, "qc", entries[0].Roles[1].Title)
	})

	t.Run("角色不存在", func(t *testing.T) {
		_, err := NewConverter(roles).Convert(context.Background(), newDiagram(t, "1,3"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRoleResolution))
		var roleErr *RoleResolutionError
		require.True(t, errors.As(err, &roleErr))
		assert.Equal(t, "Scan", roleErr.StepName)
		assert.Equal(t, "3", roleErr.Role)
	})

	t.Run("角色ID格式错误", func(t *testing.T) {
		_, err := NewConverter(roles).Convert(context.Background(), newDiagram(t, "scanner"))
		require.Error(t, err)
		var roleErr *RoleResolutionError
		require.True(t, errors.As(err, &roleErr))
		assert.Equal(t, "scanner", roleErr.Role)
	})

	t.Run("没有角色查询", func(t *testing.T) {
		_, err := NewConverter(nil).Convert(context.Background(), newDiagram(t, "1"))
		assert.True(t, errors.Is(err, ErrRoleResolution))
	})
}

func TestConvert_Idempotent(t *testing.T) {
	diagram := parallelDiagram(t)
	converter := NewConverter(nil)
	first, err := converter.Convert(context.Background(), diagram)
	require.NoError(t, err)
	second, err := converter.Convert(context.Background(), diagram)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestConvert_Concurrent(t *testing.T) {
	diagram := parallelDiagram(t)
	converter := NewConverter(nil)
	expected, err := converter.Convert(context.Background(), diagram)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]*ScheduleEntry, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = converter.Convert(context.Background(), diagram)
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, expected, results[i])
	}
}
