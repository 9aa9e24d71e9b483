package models

import "testing"

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantSize     int
		wantOffset   int
	}{
		{"defaults", 0, 0, 1, 20, 0},
		{"negative page", -3, 10, 1, 10, 0},
		{"oversized page size", 2, 500, 2, 100, 100},
		{"plain", 3, 25, 3, 25, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PageRequest{Page: tt.page, PageSize: tt.size}
			p.Normalize()
			if p.Page != tt.wantPage || p.PageSize != tt.wantSize {
				t.Errorf("normalized to page=%d size=%d, want page=%d size=%d", p.Page, p.PageSize, tt.wantPage, tt.wantSize)
			}
			if got := p.Offset(); got != tt.wantOffset {
				t.Errorf("offset: got %d, want %d", got, tt.wantOffset)
			}
		})
	}
}

func TestNewPageResponseTotalPages(t *testing.T) {
	resp := NewPageResponse([]string{"a", "b"}, 41, PageRequest{Page: 1, PageSize: 20})
	if resp.TotalPages != 3 {
		t.Errorf("total pages: got %d, want 3 (41 rows / 20 per page)", resp.TotalPages)
	}
	resp = NewPageResponse([]string{}, 0, PageRequest{Page: 1, PageSize: 20})
	if resp.TotalPages != 0 {
		t.Errorf("total pages for empty result: got %d, want 0", resp.TotalPages)
	}
}

func TestNewPageResponseUnnormalizedRequest(t *testing.T) {
	resp := NewPageResponse([]string{"a"}, 41, PageRequest{})
	if resp.PageSize != 20 || resp.Page != 1 {
		t.Errorf("zero request must be normalized, got page=%d size=%d", resp.Page, resp.PageSize)
	}
	if resp.TotalPages != 3 {
		t.Errorf("total pages: got %d, want 3", resp.TotalPages)
	}
}
