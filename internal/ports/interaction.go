package ports

// Confirmer asks the user a yes/no question. done runs on the event loop.
type Confirmer interface {
	Confirm(prompt string, done func(confirmed bool))
}

// FileLister provides project file paths for @-mentions
type FileLister interface {
	Files() []string
}
