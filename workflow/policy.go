package workflow

// 流程图结构规则,都是纯函数,不依赖遍历状态

// HasSingleInboundEdge 非网关节点最多只能有一个入边,多个入边说明有环
func HasSingleInboundEdge(g Graph, node Node) bool {
	return g.IncomingCount(node) <= 1
}

// IsFanIn 合并网关: 多个入边,一个出边
func IsFanIn(g Graph, gateway Node) bool {
	return g.IncomingCount(gateway) > 1 && len(g.Outgoing(gateway)) == 1
}

// IsFanOut 分叉网关: 一个入边,多个出边
func IsFanOut(g Graph, gateway Node) bool {
	return g.IncomingCount(gateway) == 1 && len(g.Outgoing(gateway)) > 1
}

// IsDegenerate 一进一出的网关没有意义
func IsDegenerate(g Graph, gateway Node) bool {
	return g.IncomingCount(gateway) == 1 && len(g.Outgoing(gateway)) == 1
}

// BranchIsSingleStep 并行分支上只能有一个任务,分支头的后继不能是任务
func BranchIsSingleStep(g Graph, branchHead Node) bool {
	for _, edge := range g.Outgoing(branchHead) {
		if TargetOf(edge).Kind() == NodeKindWorkStep {
			return false
		}
	}
	return true
}

// reachesItself 从node出发能否回到node
func reachesItself(g Graph, node Node) bool {
	visited := make(map[string]bool)
	stack := make([]Node, 0)
	for _, edge := range g.Outgoing(node) {
		stack = append(stack, TargetOf(edge))
	}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current.NodeID() == node.NodeID() {
			return true
		}
		if visited[current.NodeID()] {
			continue
		}
		visited[current.NodeID()] = true
		for _, edge := range g.Outgoing(current) {
			stack = append(stack, TargetOf(edge))
		}
	}
	return false
}
