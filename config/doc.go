// Package config 提供 EduRAG 的配置加载与日志构建.
package config
