// Package workflow 提供流程图转模板的功能。
//
// 流程图(开始节点、任务、网关、结束节点)在编辑器里面画好之后,
// 转换成按层级排序的任务模板保存下来,后面生成工单的时候直接复制模板即可。
//
// 主要特性：
//   - 流程图配置支持 JSON 和 YAML 两种格式
//   - 顺序任务层级递增,同一个分叉网关后面的并行任务层级相同
//   - 画图错误(环、缺少网关、分支过长等)带上出错节点名称返回
//   - 数据持久化：支持 GORM，可使用 MySQL、PostgreSQL、SQLite 等数据库
//   - 导入并发安全：支持本地锁和分布式锁（Redis）
//
// 基础使用示例:
//
//	package main
//
//	import (
//	    "context"
//
//	    "github.com/blingmoon/workflow-template/workflow"
//	    "gorm.io/driver/sqlite"
//	    "gorm.io/gorm"
//	)
//
//	func main() {
//	    // 1. 初始化数据库
//	    db, _ := gorm.Open(sqlite.Open("template.db"), &gorm.Config{})
//	    workflow.AutoMigrate(db)
//
//	    // 2. 创建模板服务, 角色从数据库的 role 表里面查
//	    repo := workflow.NewTemplateRepo(db)
//	    service := workflow.NewTemplateService(repo, workflow.NewLocalTemplateLock(), nil)
//
//	    // 3. 加载流程图: 开始 -> 扫描 -> 结束
//	    config, _ := workflow.ParseDiagramConfig([]byte(`
//	id: scan_only
//	nodes:
//	  - {id: start, name: 开始, type: start}
//	  - {id: scan, name: 扫描, type: task, attributes: {roles: "1"}}
//	  - {id: end, name: 结束, type: end}
//	edges:
//	  - {from: start, to: scan}
//	  - {from: scan, to: end}
//	`), workflow.ConfigFormatYAML)
//	    workflow.LoadDiagramConfig(config)
//
//	    // 4. 导入模板
//	    template, _ := service.ImportTemplate(context.Background(), &workflow.ImportTemplateReq{
//	        DiagramID: "scan_only",
//	        Title:     "只扫描",
//	    })
//	    _ = template.Tasks
//	}
//
// 层级规则：
//
//   - 开始节点后面的第一个任务层级为1
//   - 任务后面的任务层级+1
//   - 分叉网关后面的每个分支只能有一个任务,层级和网关进入时相同
//   - 合并网关只展开一次,所有分支必须以相同的层级到达
//   - 任务后面直接是结束节点(或者没有出边)时标记为最后一个任务
//
// 画图错误都可以用 IsStructuralError 判断, 具体原因用 errors.Is 判断对应的哨兵错误。
package workflow
