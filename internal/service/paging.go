package service

import "sort"

func normalizePage(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	return page, pageSize
}

// paginate 对已排序的 id 列表做 offset 分页
func paginate(ids []string, page, pageSize int) []string {
	page, pageSize = normalizePage(page, pageSize, 10)
	offset := (page - 1) * pageSize
	if offset >= len(ids) {
		return []string{}
	}
	end := offset + pageSize
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]string, end-offset)
	copy(out, ids[offset:end])
	return out
}

func sortStrings(s []string) { sort.Strings(s) }
