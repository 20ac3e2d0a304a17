package category

type CategoryResponse struct {
	ID   int64  `json:"categoryId"`
	Name string `json:"categoryName"`
}

func ToResponses(categories []*Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryResponse{ID: c.ID, Name: c.Name})
	}
	return out
}
