package repositories

// ===== SHARED FILTER STRUCTS =====

type ItemFilters struct {
	Name      *string `json:"name"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`    // "created_at", "updated_at", "id", "name"
	SortOrder string  `json:"sort_order"` // "asc", "desc"
}
