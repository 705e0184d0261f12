package mongodb

const (
	// UsersCollection stores user accounts.
	UsersCollection = "users"
)
