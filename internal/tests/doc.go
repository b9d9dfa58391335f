// Package tests 是 workflow-template 的集成测试。
//
// 使用 sqlite 数据库跑完整的导入流程:
//   - 加载流程图配置
//   - 转换并写入模板和任务
//   - 重复导入替换任务
//   - 结构错误和角色错误不会写入任何数据
//
// 运行测试:
//
//	go test ./internal/tests/...
package tests
