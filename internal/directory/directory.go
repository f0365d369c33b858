package directory

// Role distinguishes the two active viewer kinds. SECURITY is reserved for a
// gate-checkout extension.
type Role string

const (
	RoleStudent  Role = "STUDENT"
	RoleWarden   Role = "WARDEN"
	RoleSecurity Role = "SECURITY"
)

// User is one selectable identity. There is no authentication; "login" picks
// an entry from this list.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	RoomNumber string `json:"room_number,omitempty"`
	Department string `json:"department,omitempty"`
}

var users = []User{
	{ID: "s1", Name: "Rahul Kumar", Role: RoleStudent, RoomNumber: "B-204", Department: "CS"},
	{ID: "s2", Name: "Amit Singh", Role: RoleStudent, RoomNumber: "A-101", Department: "ME"},
	{ID: "w1", Name: "Dr. Sharma (Warden)", Role: RoleWarden},
}

// All returns the fixed identity list.
func All() []User {
	out := make([]User, len(users))
	copy(out, users)
	return out
}

// ByID looks up a user; ok is false for unknown ids.
func ByID(id string) (User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// ByRole returns every user holding the given role.
func ByRole(role Role) []User {
	var out []User
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

// Branch resolves the department used in exports, or "N/A" when the user is
// unknown or carries none.
func Branch(userID string) string {
	if u, ok := ByID(userID); ok && u.Department != "" {
		return u.Department
	}
	return "N/A"
}
