// =============================================================================
// EduRAG 主入口
// =============================================================================
// 知识库命令行工具：导入课程资料、检索问答、管理文档
//
// 使用方法:
//
//	edurag ingest notes.md                # 导入文档
//	edurag query "什么是二叉树？"           # 检索并生成回答
//	edurag search "哈希冲突"               # 只检索不生成
//	edurag list                           # 列出知识库中的文档
//	edurag stats                          # 知识库统计
//	edurag delete <document_id>           # 删除文档
//	edurag version                        # 显示版本信息
//
// 所有命令支持 --config config.yaml 指定配置文件
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/edurag/config"
	"github.com/BaSui01/edurag/internal/telemetry"
	"github.com/BaSui01/edurag/rag"
	"github.com/BaSui01/edurag/rag/loader"
	"github.com/BaSui01/edurag/splitter"
	"github.com/BaSui01/edurag/types"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ingest":
		runIngest(os.Args[2:])
	case "query":
		runQuery(os.Args[2:])
	case "search":
		runSearch(os.Args[2:])
	case "list":
		runList(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "delete":
		runDelete(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🧩 公共组装
// =============================================================================

// app 持有一次命令执行所需的全部组件.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *telemetry.Providers
	service   *rag.RAGService
	index     *rag.KnowledgeIndex
	knowledge *rag.KnowledgeService
}

// setup 解析 --config、加载配置并组装问答栈.
func setup(name string, args []string) (*app, []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.WithValidator((*config.Config).Validate).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log)

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}

	service, index, err := rag.NewServiceFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build rag service", zap.Error(err))
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		providers: providers,
		service:   service,
		index:     index,
		knowledge: rag.NewKnowledgeService(index, logger),
	}, fs.Args()
}

// close 冲刷日志和遥测数据.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.providers.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// signalContext 在 Ctrl-C 时取消正在进行的操作.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newSplitter(cfg config.ChunkingConfig, logger *zap.Logger) (splitter.Splitter, error) {
	if cfg.CodeAware {
		c := splitter.DefaultCodeAwareConfig()
		if cfg.CodeChunkSize > 0 {
			c.ChunkSize = cfg.CodeChunkSize
		}
		if cfg.CodeChunkOverlap > 0 {
			c.ChunkOverlap = cfg.CodeChunkOverlap
		}
		return splitter.NewCodeAwareSplitter(c, splitter.FindCodeSpans, logger)
	}

	c := splitter.DefaultConfig()
	if cfg.ChunkSize > 0 {
		c.ChunkSize = cfg.ChunkSize
	}
	if cfg.ChunkOverlap >= 0 {
		c.ChunkOverlap = cfg.ChunkOverlap
	}
	return splitter.NewTextSplitter(c, logger)
}

// =============================================================================
// 📥 ingest 命令
// =============================================================================

func runIngest(args []string) {
	a, rest := setup("ingest", args)
	defer a.close()

	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: edurag ingest [--config config.yaml] <file>...")
		os.Exit(1)
	}

	sp, err := newSplitter(a.cfg.Chunking, a.logger)
	if err != nil {
		a.logger.Fatal("invalid chunking config", zap.Error(err))
	}

	ctx, cancel := signalContext()
	defer cancel()

	registry := loader.NewRegistry()
	for _, path := range rest {
		doc, err := registry.Load(ctx, path)
		if err != nil {
			a.logger.Fatal("failed to load file", zap.String("path", path), zap.Error(err))
		}

		chunks := sp.SplitDocument(*doc)
		result, err := a.knowledge.AddDocument(ctx, chunks, doc.ID, doc.Name)
		if err != nil {
			a.logger.Fatal("failed to index document", zap.String("path", path), zap.Error(err))
		}

		fmt.Printf("已导入 %s：%d 个片段（document_id=%s）\n",
			result.Filename, result.ChunksAdded, result.DocumentID)
	}
}

// =============================================================================
// 💬 query 命令
// =============================================================================

func runQuery(args []string) {
	a, rest := setup("query", args)
	defer a.close()

	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: edurag query [--config config.yaml] <question>")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.service.Answer(ctx, rest[0], rag.WithTopK(a.cfg.Retrieval.TopK))
	if err != nil {
		a.logger.Fatal("query failed", zap.Error(err))
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\n参考来源：")
		for _, src := range result.Sources {
			fmt.Printf("  - %s（相关度 %.2f）\n", src.Source, src.Relevance)
		}
	}
}

// =============================================================================
// 🔍 search 命令
// =============================================================================

func runSearch(args []string) {
	a, rest := setup("search", args)
	defer a.close()

	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: edurag search [--config config.yaml] <question>")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := a.service.RelevantContext(ctx, rest[0], a.cfg.Retrieval.TopK, nil)
	if err != nil {
		a.logger.Fatal("search failed", zap.Error(err))
	}
	if len(results) == 0 {
		fmt.Println("没有找到相关内容")
		return
	}

	for i, r := range results {
		fmt.Printf("[%d] %s 第%s页（相关度 %.2f）\n%s\n\n",
			i+1, r.Metadata[types.MetaSource], r.Metadata[types.MetaPage],
			r.Relevance, r.Content)
	}
}

// =============================================================================
// 📋 list / stats / delete 命令
// =============================================================================

func runList(args []string) {
	a, _ := setup("list", args)
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	docs, err := a.knowledge.ListDocuments(ctx)
	if err != nil {
		a.logger.Fatal("failed to list documents", zap.Error(err))
	}
	if len(docs) == 0 {
		fmt.Println("知识库为空")
		return
	}

	for _, d := range docs {
		fmt.Printf("%s  %s  %d 个片段  %s\n",
			d.ID, d.Source, d.ChunkCount, d.AddedAt.Format(time.RFC3339))
	}
}

func runStats(args []string) {
	a, _ := setup("stats", args)
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := a.knowledge.Stats(ctx)
	if err != nil {
		a.logger.Fatal("failed to read stats", zap.Error(err))
	}
	fmt.Printf("文档数：%d\n片段数：%d\n", stats.TotalDocuments, stats.TotalChunks)
}

func runDelete(args []string) {
	a, rest := setup("delete", args)
	defer a.close()

	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: edurag delete [--config config.yaml] <document_id>")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.knowledge.DeleteDocument(ctx, rest[0])
	if err != nil {
		a.logger.Fatal("failed to delete document", zap.Error(err))
	}

	if result.Status == rag.StatusNotFound {
		fmt.Printf("未找到文档 %s\n", rest[0])
		return
	}
	fmt.Printf("已删除 %s：%d 个片段\n", result.DocumentID, result.ChunksDeleted)
}

// =============================================================================
// ℹ️ version / help
// =============================================================================

func printVersion() {
	fmt.Printf("edurag %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
}

func printUsage() {
	fmt.Print(`EduRAG - 课程知识库检索问答工具

Usage:
  edurag <command> [--config config.yaml] [args]

Commands:
  ingest <file>...     导入文档到知识库
  query <question>     检索并生成回答
  search <question>    只检索，不生成回答
  list                 列出知识库中的文档
  stats                知识库统计
  delete <id>          删除文档
  version              显示版本信息
  help                 显示本帮助
`)
}
