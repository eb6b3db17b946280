package interfaces

// RootSecretGenerator produces the deployment-wide root of trust.
type RootSecretGenerator interface {
	// Generate creates a fresh SecretBundle. Every call yields a new, independent
	// root of trust.
	Generate() (*SecretBundle, error)
}
