package repoargs

type EnsureUser struct {
	ID          int64
	DisplayName string
}
