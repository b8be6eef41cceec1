// Package repository 数据访问层
package repository

// Pagination 分页参数
type Pagination struct {
	Page     int // 页码，从 1 开始
	PageSize int // 每页数量
}

// Offset 计算偏移量
func (p *Pagination) Offset() int {
	if p == nil || p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Valid 分页参数是否可用
func (p *Pagination) Valid() bool {
	return p != nil && p.Page > 0 && p.PageSize > 0
}
