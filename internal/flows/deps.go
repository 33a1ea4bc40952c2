package flows

// Deps groups flow dependency sets. The root client builds this once and
// delegates to the matching flow implementation.
type Deps struct {
	Establish EstablishDeps
	Refresh   RefreshDeps
	Logout    LogoutDeps
	Validate  ValidateDeps
}
