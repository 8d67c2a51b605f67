package logging

import "go.uber.org/zap"

// New returns the application logger: JSON in prod, console otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
