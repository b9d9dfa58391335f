package commonregister

import (
	"github.com/blingmoon/workflow-template/workflow"
	"github.com/pkg/errors"
)

const DigitizationDiagramID = "digitization"

// 数字化流程: 扫描 -> {质检, OCR} -> 元数据 -> 导出
const digitizationDiagram = `
id: digitization
name: 数字化流程
nodes:
  - {id: start, name: 开始, type: start}
  - id: scan
    name: 扫描
    type: task
    priority: 1
    attributes:
      roles: "1"
      edit_type: 1
      processing_status: 2
      flags: {read_images: true, write_images: true}
  - {id: split, name: 分叉, type: gateway}
  - id: qc
    name: 质检
    type: task
    attributes:
      roles: "2"
      edit_type: 5
      flags: {read_images: true, validate_images: true, accept_close: true}
  - id: ocr
    name: OCR
    type: script_task
    attributes:
      edit_type: 4
      flags: {automatic: true, generate_images: true}
      script: {name: ocr, path: /opt/scripts/ocr.sh}
  - {id: join, name: 合并, type: gateway}
  - id: metadata
    name: 元数据
    type: task
    attributes:
      roles: "1, 2"
      flags: {metadata: true, separate_structure: true}
      condition: {type: xpath, value: "//mods:mods"}
  - id: export
    name: 导出
    type: script_task
    attributes:
      flags: {automatic: true, export: true, verify_close: true}
      script: {name: export, path: /opt/scripts/export.sh}
  - {id: end, name: 结束, type: end}
edges:
  - {from: start, to: scan}
  - {from: scan, to: split}
  - {from: split, to: qc}
  - {from: split, to: ocr}
  - {from: qc, to: join}
  - {from: ocr, to: join}
  - {from: join, to: metadata}
  - {from: metadata, to: export}
  - {from: export, to: end}
`

// DigitizationRoles 数字化流程用到的角色
func DigitizationRoles() []*workflow.Role {
	return []*workflow.Role{
		{ID: 1, Title: "扫描员"},
		{ID: 2, Title: "质检员"},
	}
}

// RegisterDigitizationDiagram 加载数字化流程图配置
func RegisterDigitizationDiagram() error {
	config, err := workflow.ParseDiagramConfig([]byte(digitizationDiagram), workflow.ConfigFormatYAML)
	if err != nil {
		return errors.Wrap(err, "parse digitization diagram failed")
	}
	if err := workflow.LoadDiagramConfig(config); err != nil {
		return errors.Wrap(err, "load digitization diagram failed")
	}
	return nil
}
