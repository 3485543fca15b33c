package constants

// Static route constants
const (
	PublicRoute    = "/"
	LoginRoute     = "/login"
	DirectoryRoute = "/directory"
	AdminRoute     = "/admin"
)
