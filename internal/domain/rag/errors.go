package rag

import "errors"

// ErrNotFound 引用的源/数据集不存在（未解析、未导出、未索引）。
// 调用方用 errors.Is 判断并映射为 404。
var ErrNotFound = errors.New("not found")
