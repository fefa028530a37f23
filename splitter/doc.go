// Package splitter 将原始文档文本切分为有界、重叠、结构感知的块。
//
// 核心算法是递归边界切分：按从粗到细的分隔符层级
// （段落 > 行 > 句末标点 > 子句标点 > 空格 > 字符）切分文本，
// 贪心累积到 chunk_size 上限，相邻块之间保留 chunk_overlap 个字符的重叠。
// 代码感知变体在此之上保护围栏代码块与缩进代码段不被拦腰切断。
//
// 切分是纯 CPU 计算，无外部依赖，同步执行。
package splitter
