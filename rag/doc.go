// Package rag 实现知识库的核心检索增强生成流程：
// 文档切分后写入向量索引，查询时检索相关片段并交给大模型生成回答。
//
// 包内分三层：
//   - VectorStore：向量条目的持久化与最近邻查询（内存 / SQLite 实现）
//   - KnowledgeIndex：嵌入 + 存储的组合，负责文档级的增删查
//   - RAGService：面向问答的编排，拼装上下文、调用生成、整理来源
package rag
