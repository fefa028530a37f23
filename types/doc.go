// Package types 定义 edurag 各包共享的基础类型：
// 文档/分块/检索结果数据模型与统一的错误码体系。
package types
