package user

type UserResponse struct {
	ID        int64  `json:"userId"`
	Name      string `json:"userName"`
	Email     string `json:"email"`
	RoleName  string `json:"roleName"`
	IsManager bool   `json:"isManager"`
}

func ToResponses(users []*User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			RoleName:  u.RoleName,
			IsManager: u.IsManager(),
		})
	}
	return out
}
